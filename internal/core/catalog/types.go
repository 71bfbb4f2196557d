package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Gender 性別列舉（與參考值資料來源一致）
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
	GenderNoSay  Gender = "NO_SAY"
)

// NutrientCategory 營養素分類
type NutrientCategory string

const (
	CategoryMacronutrient NutrientCategory = "MACRO"
	CategoryVitamin       NutrientCategory = "VITAMIN"
	CategoryMineral       NutrientCategory = "MINERAL"
	CategoryGeneral       NutrientCategory = "GENERAL"
)

// ParseNutrientCategory 解析分類字串（大小寫不敏感）
func ParseNutrientCategory(s string) (NutrientCategory, error) {
	c := NutrientCategory(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CategoryMacronutrient, CategoryVitamin, CategoryMineral, CategoryGeneral:
		return c, nil
	}
	return "", fmt.Errorf("unknown nutrient category %q", s)
}

// Nutrient 正規化後的營養素（canonical row）
// name 全域唯一；external id 來自 FoodData Central（nutrient.id），可為空
type Nutrient struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	Name           string           `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Unit           string           `gorm:"size:20;not null" json:"unit"`
	ExternalID     *int             `gorm:"uniqueIndex" json:"external_id,omitempty"`
	ExternalNumber string           `gorm:"size:10;index" json:"external_number,omitempty"`
	Category       NutrientCategory `gorm:"size:20;default:GENERAL" json:"category"`
	Description    string           `json:"description,omitempty"`
	IsEssential    bool             `json:"is_essential"`
	SourceNotes    string           `json:"source_notes,omitempty"`

	Aliases []NutrientAlias         `gorm:"constraint:OnDelete:CASCADE" json:"aliases,omitempty"`
	DRVs    []DietaryReferenceValue `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// NutrientAlias 營養素別名，全域唯一，多個別名對應一個 canonical nutrient
type NutrientAlias struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	Name       string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	NutrientID uint   `gorm:"index;not null" json:"-"`
}

// DietaryReferenceValue 飲食參考值（DRV）
// tuple (nutrient, population, age text, gender, source category, unit) 唯一
// 五個數值欄位皆可為空；由匯入工具批次寫入，請求端只讀
type DietaryReferenceValue struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	NutrientID       uint    `gorm:"not null;uniqueIndex:idx_drv_tuple" json:"nutrient_id"`
	SourceCategory   string  `gorm:"size:100;uniqueIndex:idx_drv_tuple" json:"source_category"`
	TargetPopulation string  `gorm:"size:100;uniqueIndex:idx_drv_tuple" json:"target_population"`
	AgeRangeText     string  `gorm:"size:50;uniqueIndex:idx_drv_tuple" json:"age_range_text"`
	Gender           *Gender `gorm:"size:10;uniqueIndex:idx_drv_tuple" json:"gender,omitempty"`
	Frequency        string  `gorm:"size:50" json:"frequency"`
	ValueUnit        string  `gorm:"size:20;uniqueIndex:idx_drv_tuple" json:"value_unit"`

	AI  *float64 `json:"ai,omitempty"`  // Adequate Intake
	AR  *float64 `json:"ar,omitempty"`  // Average Requirement
	PRI *float64 `json:"pri,omitempty"` // Population Reference Intake
	RI  *float64 `json:"ri,omitempty"`  // Reference Intake
	UL  *float64 `json:"ul,omitempty"`  // Tolerable Upper Intake Level

	Nutrient Nutrient `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// PersonProfile 個人檔案；age 與 gender 可缺（此時只看 custom targets）
type PersonProfile struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	Name     string   `gorm:"size:100;not null" json:"name"`
	AgeYears *int     `json:"age_years,omitempty"`
	Gender   *Gender  `gorm:"size:10" json:"gender,omitempty"`
	WeightKG *float64 `json:"weight_kg,omitempty"`
	HeightCM *float64 `json:"height_cm,omitempty"`
	Notes    string   `json:"notes,omitempty"`

	CustomTargets []CustomTarget `gorm:"constraint:OnDelete:CASCADE" json:"custom_targets,omitempty"`
}

// CustomTarget 使用者自訂目標，key 可以是 canonical 名稱或別名
type CustomTarget struct {
	ID           uint    `gorm:"primaryKey" json:"-"`
	ProfileID    uint    `gorm:"not null;uniqueIndex:idx_profile_target" json:"-"`
	NutrientName string  `gorm:"size:100;not null;uniqueIndex:idx_profile_target" json:"nutrient_name"`
	Target       float64 `json:"target"`
	Unit         string  `gorm:"size:20" json:"unit"`
	IsOverride   bool    `json:"is_override"`
}

// MealPlan 餐食計畫，掛多個 profile；聚合目標每次請求重算
type MealPlan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:200;not null" json:"name"`
	Description  string          `json:"description,omitempty"`
	DurationDays int             `gorm:"default:7" json:"duration_days"`
	Profiles     []PersonProfile `gorm:"many2many:meal_plan_profiles" json:"profiles,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Ingredient 食材，營養值以每 100 base unit 計
type Ingredient struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:255;not null" json:"name"`
	ExternalID *int   `gorm:"uniqueIndex" json:"external_id,omitempty"` // FDC food id
	FoodClass  string `gorm:"size:50" json:"food_class,omitempty"`
	Category   string `gorm:"size:20" json:"category,omitempty"`
	BaseUnit   string `gorm:"size:10;default:g" json:"base_unit"`
	Notes      string `json:"notes,omitempty"`

	NutrientLinks []IngredientNutrientLink `gorm:"constraint:OnDelete:CASCADE" json:"nutrient_links,omitempty"`
	Portions      []FoodPortion            `gorm:"constraint:OnDelete:CASCADE" json:"portions,omitempty"`
}

// IngredientNutrientLink 食材與營養素的中介表，每組唯一
type IngredientNutrientLink struct {
	ID                uint    `gorm:"primaryKey" json:"-"`
	IngredientID      uint    `gorm:"not null;uniqueIndex:idx_ingredient_nutrient" json:"-"`
	NutrientID        uint    `gorm:"not null;uniqueIndex:idx_ingredient_nutrient" json:"nutrient_id"`
	AmountPer100Units float64 `json:"amount_per_100_units"`

	Nutrient Nutrient `gorm:"constraint:OnDelete:CASCADE" json:"nutrient"`
}

// FoodPortion 份量描述（例如 "1 cup" 對應幾克）
type FoodPortion struct {
	ID                 uint    `gorm:"primaryKey" json:"-"`
	IngredientID       uint    `gorm:"index;not null" json:"-"`
	ExternalPortionID  *int    `gorm:"index" json:"external_portion_id,omitempty"`
	Amount             float64 `json:"amount"`
	PortionDescription string  `gorm:"size:100" json:"portion_description"`
	GramWeight         float64 `json:"gram_weight"`
	Modifier           string  `gorm:"size:100" json:"modifier,omitempty"`
	MeasureUnitName    string  `gorm:"size:50" json:"measure_unit_name,omitempty"`
	MeasureUnitAbbrev  string  `gorm:"size:50" json:"measure_unit_abbreviation,omitempty"`
	SequenceNumber     *int    `json:"sequence_number,omitempty"`
	DataPoints         *int    `json:"data_points,omitempty"`
}

// ParseGender 解析來源資料的性別字串；"both genders" 會對應成 nil（兩性皆適用）
func ParseGender(s string) (*Gender, error) {
	switch {
	case strings.TrimSpace(s) == "":
		return nil, nil
	case strings.EqualFold(s, "male"):
		g := GenderMale
		return &g, nil
	case strings.EqualFold(s, "female"):
		g := GenderFemale
		return &g, nil
	case strings.EqualFold(s, "both genders"):
		return nil, nil
	}
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderOther, GenderNoSay:
		g := Gender(s)
		return &g, nil
	}
	return nil, fmt.Errorf("unknown gender %q", s)
}
