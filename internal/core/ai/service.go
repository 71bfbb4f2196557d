package ai

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/core/nutrient"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"go.uber.org/zap"
)

// trackedNutrients 提示詞裡的營養素對照表（FDC id → 名稱）。
// 模型被要求對每一項都給出數值。
var trackedNutrients = map[int]string{
	1008: "Energy",
	1003: "Protein",
	1004: "Total lipid (fat)",
	1258: "Fatty acids, total saturated",
	1292: "Fatty acids, total monounsaturated",
	1293: "Fatty acids, total polyunsaturated",
	1005: "Carbohydrate, by difference",
	2000: "Sugars, total",
	1093: "Sodium, Na",
	1158: "PUFA 18:3 n-3 (ALA)",
	1278: "PUFA 20:5 n-3 (EPA)",
	1279: "PUFA 22:6 n-3 (DHA)",
	1087: "Calcium, Ca",
	1089: "Iron, Fe",
	1090: "Magnesium, Mg",
	1091: "Phosphorus, P",
	1092: "Potassium, K",
	1095: "Zinc, Zn",
	1098: "Copper, Cu",
	1101: "Manganese, Mn",
	1103: "Selenium, Se",
	1100: "Iodine, I",
	1106: "Vitamin A, RAE",
	1107: "Carotene, beta",
	1109: "Vitamin E",
	1190: "Folate, DFE",
	1165: "Thiamin (B1)",
	1166: "Riboflavin (B2)",
	1167: "Niacin (B3 equivalent)",
	1170: "Pantothenic acid (B5)",
	1175: "Vitamin B-6",
	1176: "Biotin (B7)",
	1178: "Vitamin B-12",
	1185: "Vitamin K",
	1114: "Vitamin D",
	1102: "Molybdenum, Mo",
	1253: "Cholesterol",
	1180: "Choline",
}

// FoodClassGenerated AI 產生的食材固定掛這個 food class
const FoodClassGenerated = "ChatGPT"

// GeneratedFood 模型回傳的食品資料，結構沿用 FDC
type GeneratedFood struct {
	FDCID       int    `json:"fdcId"`
	Description string `json:"description"`
	FoodClass   string `json:"foodClass"`

	FoodCategory *struct {
		Description string `json:"description"`
	} `json:"foodCategory"`

	FoodNutrients []struct {
		Nutrient struct {
			ID       *int   `json:"id"`
			UnitName string `json:"unitName"`
		} `json:"nutrient"`
		Amount float64 `json:"amount"`
	} `json:"foodNutrients"`

	FoodPortions []struct {
		ID                 *int    `json:"id"`
		Amount             float64 `json:"amount"`
		GramWeight         float64 `json:"gramWeight"`
		Modifier           string  `json:"modifier"`
		PortionDescription string  `json:"portionDescription"`
		SequenceNumber     *int    `json:"sequenceNumber"`
		MeasureUnit        *struct {
			Name         string `json:"name"`
			Abbreviation string `json:"abbreviation"`
		} `json:"measureUnit"`
	} `json:"foodPortions"`
}

// Service AI 食品生成服務：提示詞、回應解析、落庫一條龍
type Service struct {
	store  *catalog.Store
	client *Client
	cache  *Cache
}

// NewService 創建生成服務
func NewService(store *catalog.Store, client *Client, cache *Cache) *Service {
	return &Service{store: store, client: client, cache: cache}
}

// systemPrompt 產生帶營養素對照表的提示詞
func systemPrompt() string {
	ids := make([]int, 0, len(trackedNutrients))
	for id := range trackedNutrients {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var table strings.Builder
	table.WriteString("{\n")
	for i, id := range ids {
		table.WriteString("  " + strconv.Quote(strconv.Itoa(id)) + ": " + strconv.Quote(trackedNutrients[id]))
		if i < len(ids)-1 {
			table.WriteString(",")
		}
		table.WriteString("\n")
	}
	table.WriteString("}")

	return `I'm building a meal prepping app and tracking the following nutrients (ID:NAME):
` + table.String() + `

The user will provide information and instructions to build a new entry in my food database. This is the desired structure:
{
    "fdcId": -3919,
    "description": "Hähnchenbrustfilet, roh, ohne Haut (Deutschland)",
    "foodClass": "ChatGPT",
    "foodCategory": {
        "description": "Poultry Products",
        "code": "9999",
        "id": -1
    },
    "foodNutrients": [
        {
            "nutrient": {
                "id": 1008,
                "unitName": "kcal"
            },
            "amount": 107.0
        }
    ],
    "foodPortions": [
        {
            "id": -1901,
            "amount": 1.0,
            "gramWeight": 100.0,
            "modifier": "raw, skinless",
            "portionDescription": "100 g",
            "sequenceNumber": 1,
            "measureUnit": {
                "id": -190101,
                "name": "g",
                "abbreviation": "g"
            }
        }
    ]
}

Do not include json comments, output a pojo. Choose a random negative 5 digit id for fdcId and related ids. Make sure to include all nutrients from the list above with realistic values based on the food description.`
}

// stripFences 去掉模型常見的 ```json 圍欄
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = content[len("```json"):]
	} else if strings.HasPrefix(content, "```") {
		content = content[len("```"):]
	}
	if strings.HasSuffix(content, "```") {
		content = content[:len(content)-len("```")]
	}
	return strings.TrimSpace(content)
}

// parseGeneratedFood 解析並驗證模型輸出。
// 第一次解析失敗時補上缺引號的鍵再試一次。
func parseGeneratedFood(content string) (*GeneratedFood, error) {
	raw := stripFences(content)
	var food GeneratedFood
	if err := common.ParseJSON(raw, &food); err != nil {
		food = GeneratedFood{}
		if retryErr := common.ParseJSON(common.QuoteJSONKeys(raw), &food); retryErr != nil {
			return nil, fmt.Errorf("invalid JSON response from AI: %w", err)
		}
	}
	if err := validateGeneratedFood(&food); err != nil {
		return nil, err
	}
	return &food, nil
}

// generatedNutrientRow 模型輸出裡一筆可入庫的營養素
type generatedNutrientRow struct {
	id       int
	name     string
	unitName string
	amount   float64
}

// usableNutrients 篩掉缺 id 或不在追蹤清單內的營養素列。
// 未追蹤的 id 記 warning 後跳過，不能讓它建出沒有名稱的 canonical row。
func usableNutrients(food *GeneratedFood) []generatedNutrientRow {
	rows := make([]generatedNutrientRow, 0, len(food.FoodNutrients))
	for _, fn := range food.FoodNutrients {
		if fn.Nutrient.ID == nil {
			continue
		}
		name, tracked := trackedNutrients[*fn.Nutrient.ID]
		if !tracked {
			common.LogWarn("模型回傳未追蹤的營養素，略過",
				zap.Int("fdc_nutrient_id", *fn.Nutrient.ID),
				zap.String("food", food.Description))
			continue
		}
		rows = append(rows, generatedNutrientRow{
			id:       *fn.Nutrient.ID,
			name:     name,
			unitName: fn.Nutrient.UnitName,
			amount:   fn.Amount,
		})
	}
	return rows
}

func validateGeneratedFood(food *GeneratedFood) error {
	if food.FDCID == 0 {
		return fmt.Errorf("missing required field: fdcId")
	}
	if food.Description == "" {
		return fmt.Errorf("missing required field: description")
	}
	if food.FoodClass != FoodClassGenerated {
		return fmt.Errorf("foodClass must be %q for AI-generated foods", FoodClassGenerated)
	}
	if food.FoodCategory == nil {
		return fmt.Errorf("missing required field: foodCategory")
	}
	if len(food.FoodNutrients) == 0 {
		return fmt.Errorf("foodNutrients must be a non-empty list")
	}
	if len(food.FoodPortions) == 0 {
		return fmt.Errorf("foodPortions must be a non-empty list")
	}
	return nil
}

// GenerateIngredient 依使用者描述產生食材並落庫。
// 模型輸出先查快取；食材、營養連結、份量在同一交易內建立。
func (s *Service) GenerateIngredient(ctx context.Context, description string) (*catalog.Ingredient, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("food description is required")
	}

	content, cached := "", false
	if s.cache != nil {
		content, cached = s.cache.Get(ctx, description)
	}
	if !cached {
		start := time.Now()
		raw, err := s.client.Chat(ctx, systemPrompt(),
			"Please create a food database entry for: "+description)
		common.LogAICall(description, time.Since(start), err, "")
		if err != nil {
			return nil, fmt.Errorf("AI food generation failed: %w", err)
		}
		content = raw
		if s.cache != nil {
			s.cache.Set(ctx, description, content)
		}
	}

	food, err := parseGeneratedFood(content)
	if err != nil {
		return nil, err
	}

	var created *catalog.Ingredient
	err = s.store.WithTx(func(tx *catalog.Store) error {
		canon := nutrient.NewCanonicalizer(tx)

		ing := &catalog.Ingredient{
			Name:       food.Description,
			ExternalID: &food.FDCID,
			FoodClass:  food.FoodClass,
			Category:   food.FoodCategory.Description,
			BaseUnit:   "g",
		}
		if err := tx.CreateIngredient(ing); err != nil {
			return fmt.Errorf("create generated ingredient: %w", err)
		}

		for _, row := range usableNutrients(food) {
			id := row.id
			res, err := canon.Process(nutrient.SourceNutrient{
				ExternalID: &id,
				Name:       row.name,
				UnitName:   row.unitName,
			}, row.amount)
			if err != nil {
				return err
			}
			if res.Skipped || res.Amount <= 0 {
				continue
			}
			if _, err := tx.UpsertIngredientNutrientLink(ing.ID, res.Nutrient.ID, res.Amount); err != nil {
				return err
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
			}
			if fp.MeasureUnit != nil {
				portion.MeasureUnitName = fp.MeasureUnit.Name
				portion.MeasureUnitAbbrev = fp.MeasureUnit.Abbreviation
			}
			if _, err := tx.UpsertFoodPortion(portion); err != nil {
				return err
			}
		}

		created = ing
		return nil
	})
	if err != nil {
		return nil, err
	}

	common.LogInfo("AI 食材生成完成",
		zap.String("description", description),
		zap.Bool("cache_hit", cached),
		zap.Uint("ingredient_id", created.ID),
	)
	return created, nil
}
