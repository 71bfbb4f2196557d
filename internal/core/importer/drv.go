package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/core/nutrient"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// drvHeaders 參考值檔案的必要欄位
var drvHeaders = []string{
	"Category", "Nutrient", "Target population", "Age", "Gender",
	"frequency", "unit", "AI", "AR", "PRI", "RI", "UL",
}

// errDryRun 讓 dry-run 在交易結尾觸發回滾的哨兵錯誤
var errDryRun = errors.New("dry run rollback")

// DRVOptions 參考值匯入選項
type DRVOptions struct {
	// UpdateExisting 既有列覆寫數值欄；否則跳過
	UpdateExisting bool
	// DryRun 完整跑一遍流程後回滾，只輸出統計
	DryRun bool
}

// DRVSummary 匯入結果統計
type DRVSummary struct {
	Created  int
	Updated  int
	Skipped  int
	NotFound int
	Errors   int
}

var firstNumberPattern = regexp.MustCompile(`[+-]?\d*\.?\d+`)

// parseFloatOrNone 寬鬆解析數值欄。
// 空白、NA、ND、"-" 視為缺值；"2,500"、"(+) 1 g/day"、"<0.5" 取第一個數字。
func parseFloatOrNone(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch strings.ToUpper(s) {
	case "NA", "NA.", "ND", "-":
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return &v
	}
	m := firstNumberPattern.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

// headerIndex 把表頭對應成欄位索引；缺必要欄位時回報
func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, want := range drvHeaders {
		if _, ok := index[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ImportDRVCSV 從 CSV 匯入參考值；表頭必須含 drvHeaders 的全部欄位
func ImportDRVCSV(store *catalog.Store, r io.Reader, opts DRVOptions) (*DRVSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read DRV CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("DRV CSV is empty")
	}
	return importDRVRows(store, rows[0], rows[1:], opts)
}

// ImportDRVXLSX 從 Excel 工作表匯入參考值；sheet 為空時讀 Sheet1
func ImportDRVXLSX(store *catalog.Store, path, sheet string, opts DRVOptions) (*DRVSummary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open DRV workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return importDRVRows(store, rows[0], rows[1:], opts)
}

// importDRVRows 共用的逐列匯入流程，CSV 與 XLSX 都走這裡。
// 跑在單一交易內；dry-run 以回滾收尾。
func importDRVRows(store *catalog.Store, header []string, rows [][]string, opts DRVOptions) (*DRVSummary, error) {
	col, err := headerIndex(header)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		common.LogWarn("dry-run 模式：不會寫入資料庫")
	}

	summary := &DRVSummary{}
	err = store.WithTx(func(tx *catalog.Store) error {
		nutrients, err := tx.ListNutrientsWithAliases()
		if err != nil {
			return err
		}
		resolver := nutrient.NewResolver(nutrients)

		for rowNum, row := range rows {
			name := cell(row, col["Nutrient"])
			if name == "" {
				common.LogWarn("營養素欄空白，略過", zap.Int("row", rowNum+2))
				summary.Skipped++
				continue
			}

			n, err := resolver.Resolve(name)
			if err != nil {
				// resolver 已對每個名稱記過一次 log
				summary.NotFound++
				summary.Skipped++
				continue
			}

			genderText := cell(row, col["Gender"])
			if genderText == "" {
				common.LogWarn("性別欄空白，略過",
					zap.Int("row", rowNum+2), zap.String("nutrient", name))
				summary.Skipped++
				continue
			}
			gender, err := catalog.ParseGender(genderText)
			if err != nil {
				common.LogWarn("性別無法解析，略過",
					zap.Int("row", rowNum+2),
					zap.String("nutrient", name),
					zap.String("gender", genderText))
				summary.Skipped++
				continue
			}

			created, updated, err := tx.UpsertDRV(catalog.DietaryReferenceValue{
				NutrientID:       n.ID,
				SourceCategory:   cell(row, col["Category"]),
				TargetPopulation: cell(row, col["Target population"]),
				AgeRangeText:     cell(row, col["Age"]),
				Gender:           gender,
				Frequency:        cell(row, col["frequency"]),
				ValueUnit:        cell(row, col["unit"]),
				AI:               parseFloatOrNone(cell(row, col["AI"])),
				AR:               parseFloatOrNone(cell(row, col["AR"])),
				PRI:              parseFloatOrNone(cell(row, col["PRI"])),
				RI:               parseFloatOrNone(cell(row, col["RI"])),
				UL:               parseFloatOrNone(cell(row, col["UL"])),
			}, opts.UpdateExisting)
			if err != nil {
				common.LogError("參考值寫入失敗",
					zap.Int("row", rowNum+2),
					zap.String("nutrient", name),
					zap.Error(err))
				summary.Errors++
				continue
			}
			switch {
			case created:
				summary.Created++
			case updated:
				summary.Updated++
			default:
				summary.Skipped++
			}
		}

		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}

	common.LogInfo("參考值匯入完成",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("not_found", summary.NotFound),
		zap.Int("errors", summary.Errors),
	)
	return summary, nil
}
