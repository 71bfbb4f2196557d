package importer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"go.uber.org/zap"
)

// AuthoritativeNutrient 授權營養素清單的 JSON 條目
type AuthoritativeNutrient struct {
	FDCNutrientID *int     `json:"fdc_nutrient_id"`
	Name          string   `json:"name"`
	Unit          string   `json:"unit"`
	Number        string   `json:"fdc_nutrient_number"`
	Category      string   `json:"category"`
	IsEssential   bool     `json:"is_essential"`
	Description   string   `json:"description"`
	SourceNotes   string   `json:"source_notes"`
	Aliases       []string `json:"aliases"`
}

// NutrientsOptions 授權清單匯入選項
type NutrientsOptions struct {
	// DeleteAll 匯入前先清空全部營養素與別名；否則以同步模式刪除孤兒
	DeleteAll bool
}

// NutrientsSummary 匯入結果統計
type NutrientsSummary struct {
	Created        int
	Updated        int
	Skipped        int
	AliasesCreated int
	OrphansDeleted int64
}

// ImportNutrients 從 JSON 同步授權營養素清單。
// 預設行為：以 external id upsert 清單內的營養素、整批換掉別名，
// 再刪掉 external id 不在清單內的孤兒列；--delete-all 改成先清空再重建。
// 整個匯入跑在單一交易內。
func ImportNutrients(store *catalog.Store, r io.Reader, opts NutrientsOptions) (*NutrientsSummary, error) {
	var entries []AuthoritativeNutrient
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode authoritative nutrients: %w", err)
	}

	summary := &NutrientsSummary{}
	err := store.WithTx(func(tx *catalog.Store) error {
		if opts.DeleteAll {
			common.LogWarn("清空既有營養素與別名（--delete-all）")
			if err := tx.DeleteAllNutrients(); err != nil {
				return err
			}
		}

		processedIDs := make([]int, 0, len(entries))
		for _, entry := range entries {
			if entry.FDCNutrientID == nil {
				common.LogWarn("營養素缺 fdc_nutrient_id，略過",
					zap.String("name", entry.Name))
				summary.Skipped++
				continue
			}
			if entry.Name == "" || entry.Unit == "" || entry.Category == "" {
				common.LogWarn("營養素缺 name/unit/category，略過",
					zap.Int("fdc_nutrient_id", *entry.FDCNutrientID))
				summary.Skipped++
				continue
			}
			category, err := catalog.ParseNutrientCategory(entry.Category)
			if err != nil {
				common.LogWarn("營養素分類無效，略過",
					zap.String("name", entry.Name),
					zap.String("category", entry.Category))
				summary.Skipped++
				continue
			}
			processedIDs = append(processedIDs, *entry.FDCNutrientID)

			n, created, _, err := tx.UpsertNutrientByExternalID(*entry.FDCNutrientID, catalog.Nutrient{
				Name:           entry.Name,
				Unit:           entry.Unit,
				ExternalNumber: entry.Number,
				Category:       category,
				IsEssential:    entry.IsEssential,
				Description:    entry.Description,
				SourceNotes:    entry.SourceNotes,
			}, true)
			if err != nil {
				return err
			}
			if created {
				summary.Created++
			} else {
				summary.Updated++
			}

			aliasCount, err := tx.ReplaceAliases(n, entry.Aliases)
			if err != nil {
				return err
			}
			summary.AliasesCreated += aliasCount
		}

		if !opts.DeleteAll {
			deleted, err := tx.DeleteNutrientsNotIn(processedIDs)
			if err != nil {
				return err
			}
			summary.OrphansDeleted = deleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	common.LogInfo("授權營養素匯入完成",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("aliases", summary.AliasesCreated),
		zap.Int64("orphans_deleted", summary.OrphansDeleted),
	)
	return summary, nil
}
