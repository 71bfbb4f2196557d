package importer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/core/nutrient"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"go.uber.org/zap"
)

// blockedNutrientIDs 不追蹤的 FDC 營養素（水分、個別脂肪酸、胺基酸細項等）。
// 命中的列直接跳過，不記 warning，避免匯入輸出被淹沒。
var blockedNutrientIDs = map[int]struct{}{}

func init() {
	for _, id := range []int{
		1051, // Water
		1002, // Nitrogen
		1009, // Starch
		2038,
		2047, 2048, 2058, 2065, 1007,
		1127, 1131, 1130, 1129, 1125, 1128, // tocopherols
		1272, 1278, 1276, 1271, // PUFA
		1259, 1260, 1261, 1262, 1263, 1264, 1265, 1266, 1267, // SFA
		1226, 1228, 1268, 1269, 1270, 1275, 1279, 1018, 1057, 1058, 1177, 1186, 1187, 1242, 1246,
		1280, 1301, 1312, 1292, 1293, 1321, 1304, 1273, 1108,
		1107, 1013, 1313, 1299, 1085, 2026, 2025, 2024, 2023, 2010, 2016, 2018, 2020, 2009, 2012, 2022, 1199, 1196,
		1409, 1411, 135, 1414, 1334, 1194, 1316, 1404, 1300, 1258, 1323, 1333, 1012, 1120, 1122, 1123, 2014,
		1329, 1330, 1331, 1317, 1062, 1075, 1010, 1011, 1014, 1126,
		1311, 1314, 1406, 1306, 1305, 1277, 1198, 1050, 1195, 1197,
		1210, 1211, 1215, 1217, 1218, 1222, 1224, 1225, 126, 1212, 1213, 1214, 1216, 1219, 1220, 1221, 1223, 1227, 1084, 1082,
		1405, 1105, 1303, 1315, 1113, 1112, 1335, 2019, 1257, 1119, 1121, 1160, 1161, 1159, 2028, 2032,
	} {
		blockedNutrientIDs[id] = struct{}{}
	}
}

// fdcFoodCategory FDC 的分類欄位，foundation 是物件、survey 可能是純字串
type fdcFoodCategory struct {
	Description string
}

func (c *fdcFoodCategory) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Description = s
		return nil
	}
	var obj struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Description = obj.Description
	return nil
}

type fdcNutrientBlock struct {
	ID       *int   `json:"id"`
	Name     string `json:"name"`
	UnitName string `json:"unitName"`
	Number   string `json:"number"`
}

type fdcFoodNutrient struct {
	Nutrient fdcNutrientBlock `json:"nutrient"`
	Amount   *float64         `json:"amount"`
}

type fdcMeasureUnit struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type fdcFoodPortion struct {
	ID                 *int            `json:"id"`
	Amount             float64         `json:"amount"`
	GramWeight         float64         `json:"gramWeight"`
	Modifier           string          `json:"modifier"`
	PortionDescription string          `json:"portionDescription"`
	SequenceNumber     *int            `json:"sequenceNumber"`
	DataPoints         *int            `json:"dataPoints"`
	MeasureUnit        *fdcMeasureUnit `json:"measureUnit"`
}

type fdcFood struct {
	FDCID         *int              `json:"fdcId"`
	Description   string            `json:"description"`
	FoodClass     string            `json:"foodClass"`
	FoodCategory  *fdcFoodCategory  `json:"foodCategory"`
	FoodNutrients []fdcFoodNutrient `json:"foodNutrients"`
	FoodPortions  []fdcFoodPortion  `json:"foodPortions"`
}

// FoodsOptions FDC 食品匯入選項
type FoodsOptions struct {
	// UpdateExisting 既有食材改成覆寫（連結先清空重建）；否則整個食材跳過
	UpdateExisting bool
	// DeleteBeforeImport 匯入前清空食材層資料（不動 canonical 營養素清單）
	DeleteBeforeImport bool
}

// FoodsSummary 匯入結果統計
type FoodsSummary struct {
	IngredientsCreated int
	IngredientsUpdated int
	IngredientsSkipped int
	LinksCreated       int
	LinksUpdated       int
	NutrientsSkipped   int
	PortionsCreated    int
	PortionsUpdated    int
}

// decodeFoods FDC 檔可能是直接的陣列，或單一 key 包陣列
// （"FoundationFoods"、"SurveyFoods"、"SRLegacyFoods"）
func decodeFoods(r io.Reader) ([]fdcFood, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var foods []fdcFood
	if err := json.Unmarshal(raw, &foods); err == nil {
		return foods, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped) != 1 {
		return nil, fmt.Errorf("expected a list of food items or a single wrapping key")
	}
	for _, inner := range wrapped {
		if err := json.Unmarshal(inner, &foods); err != nil {
			return nil, fmt.Errorf("decode wrapped food list: %w", err)
		}
	}
	return foods, nil
}

// ImportFoods 匯入 FDC 食品資料：食材 upsert、營養素列經正規化後建連結、份量 upsert。
// 量為 0 的營養素不建連結；blocklist 內的營養素直接跳過。
// 整個匯入跑在單一交易內。
func ImportFoods(store *catalog.Store, r io.Reader, opts FoodsOptions) (*FoodsSummary, error) {
	foods, err := decodeFoods(r)
	if err != nil {
		return nil, fmt.Errorf("decode FDC foods: %w", err)
	}

	summary := &FoodsSummary{}
	err = store.WithTx(func(tx *catalog.Store) error {
		if opts.DeleteBeforeImport {
			common.LogWarn("清空既有食材資料（--delete-before-import）")
			if err := tx.DeleteAllFoodData(); err != nil {
				return err
			}
		}

		canon := nutrient.NewCanonicalizer(tx)

		for _, food := range foods {
			if food.FDCID == nil || food.Description == "" {
				common.LogWarn("食品缺 fdcId 或 description，略過")
				summary.IngredientsSkipped++
				continue
			}

			defaults := catalog.Ingredient{
				Name:      food.Description,
				FoodClass: food.FoodClass,
			}
			if food.FoodCategory != nil {
				defaults.Category = food.FoodCategory.Description
			}
			ing, created, _, err := tx.UpsertIngredientByExternalID(*food.FDCID, defaults, opts.UpdateExisting)
			if err != nil {
				return err
			}
			switch {
			case created:
				summary.IngredientsCreated++
			case opts.UpdateExisting:
				summary.IngredientsUpdated++
				// 重建連結前先清掉舊的，讓檔案內容成為唯一真相
				if err := tx.DeleteIngredientLinks(ing.ID); err != nil {
					return err
				}
			default:
				common.LogDebug("食材已存在，略過",
					zap.String("name", food.Description),
					zap.Int("fdc_id", *food.FDCID))
				summary.IngredientsSkipped++
				continue
			}

			for _, fn := range food.FoodNutrients {
				if fn.Nutrient.ID == nil || fn.Amount == nil {
					summary.NutrientsSkipped++
					continue
				}
				if _, blocked := blockedNutrientIDs[*fn.Nutrient.ID]; blocked {
					continue
				}
				res, err := canon.Process(nutrient.SourceNutrient{
					ExternalID: fn.Nutrient.ID,
					Name:       fn.Nutrient.Name,
					UnitName:   fn.Nutrient.UnitName,
					Number:     fn.Nutrient.Number,
				}, *fn.Amount)
				if err != nil {
					return err
				}
				if res.Skipped {
					summary.NutrientsSkipped++
					continue
				}
				if res.Amount <= 0 {
					continue
				}
				linkCreated, err := tx.UpsertIngredientNutrientLink(ing.ID, res.Nutrient.ID, res.Amount)
				if err != nil {
					return err
				}
				if linkCreated {
					summary.LinksCreated++
				} else {
					summary.LinksUpdated++
				}
			}

			for _, fp := range food.FoodPortions {
				portion := catalog.FoodPortion{
					IngredientID:       ing.ID,
					ExternalPortionID:  fp.ID,
					Amount:             fp.Amount,
					GramWeight:         fp.GramWeight,
					Modifier:           fp.Modifier,
					PortionDescription: fp.PortionDescription,
					SequenceNumber:     fp.SequenceNumber,
					DataPoints:         fp.DataPoints,
				}
				if fp.MeasureUnit != nil {
					portion.MeasureUnitName = fp.MeasureUnit.Name
					portion.MeasureUnitAbbrev = fp.MeasureUnit.Abbreviation
				}
				portionCreated, err := tx.UpsertFoodPortion(portion)
				if err != nil {
					return err
				}
				if portionCreated {
					summary.PortionsCreated++
				} else {
					summary.PortionsUpdated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	common.LogInfo("FDC 食品匯入完成",
		zap.Int("ingredients_created", summary.IngredientsCreated),
		zap.Int("ingredients_updated", summary.IngredientsUpdated),
		zap.Int("ingredients_skipped", summary.IngredientsSkipped),
		zap.Int("links_created", summary.LinksCreated),
		zap.Int("links_updated", summary.LinksUpdated),
		zap.Int("nutrients_skipped", summary.NutrientsSkipped),
		zap.Int("portions_created", summary.PortionsCreated),
		zap.Int("portions_updated", summary.PortionsUpdated),
	)
	return summary, nil
}
