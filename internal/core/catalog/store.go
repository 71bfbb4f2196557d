package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arpheno/mealprep/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store 營養型錄的持久層。匯入工具與請求端共用；
// 匯入透過 WithTx 以單一交易執行，請求端只做讀取。
type Store struct {
	db *gorm.DB
}

// NewStore 建立型錄 store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx 在單一交易內執行 fn；fn 回傳錯誤時整批回滾
func (s *Store) WithTx(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// UpsertNutrientByExternalID 依 external id 建立或更新 canonical nutrient。
// 回傳 (nutrient, created, updated)。update 為 false 時已存在的列不覆寫。
func (s *Store) UpsertNutrientByExternalID(externalID int, defaults Nutrient, update bool) (*Nutrient, bool, bool, error) {
	var n Nutrient
	err := s.db.Where("external_id = ?", externalID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		n = defaults
		n.ExternalID = &externalID
		if err := s.db.Create(&n).Error; err != nil {
			return nil, false, false, fmt.Errorf("create nutrient (external id %d): %w", externalID, err)
		}
		return &n, true, false, nil
	}
	if err != nil {
		return nil, false, false, err
	}
	if !update {
		return &n, false, false, nil
	}
	changed := false
	if defaults.Name != "" && n.Name != defaults.Name {
		n.Name = defaults.Name
		changed = true
	}
	if defaults.Unit != "" && n.Unit != defaults.Unit {
		n.Unit = defaults.Unit
		changed = true
	}
	if defaults.ExternalNumber != "" && n.ExternalNumber != defaults.ExternalNumber {
		n.ExternalNumber = defaults.ExternalNumber
		changed = true
	}
	if defaults.Category != "" && n.Category != defaults.Category {
		n.Category = defaults.Category
		changed = true
	}
	if changed {
		if err := s.db.Save(&n).Error; err != nil {
			return nil, false, false, fmt.Errorf("update nutrient %q: %w", n.Name, err)
		}
	}
	return &n, false, changed, nil
}

// GetOrCreateNutrientByName 依 canonical 名稱查詢，不存在時以 defaults 建立。
// Energy 這類以名稱收斂的營養素走這條路，kcal/kJ 變體才會合併成同一列。
func (s *Store) GetOrCreateNutrientByName(name string, defaults Nutrient) (*Nutrient, bool, error) {
	var n Nutrient
	err := s.db.Where("name = ?", name).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		n = defaults
		n.Name = name
		if err := s.db.Create(&n).Error; err != nil {
			return nil, false, fmt.Errorf("create nutrient %q: %w", name, err)
		}
		return &n, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &n, false, nil
}

// SaveNutrient 寫回既有的 nutrient
func (s *Store) SaveNutrient(n *Nutrient) error {
	return s.db.Save(n).Error
}

// GetNutrientByExternalID 依 external id 查詢；找不到回傳 gorm.ErrRecordNotFound
func (s *Store) GetNutrientByExternalID(externalID int) (*Nutrient, error) {
	var n Nutrient
	if err := s.db.Where("external_id = ?", externalID).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNutrientsWithAliases 取出全部營養素與別名，供 resolver 建 cache
func (s *Store) ListNutrientsWithAliases() ([]Nutrient, error) {
	var nutrients []Nutrient
	if err := s.db.Preload("Aliases").Order("name").Find(&nutrients).Error; err != nil {
		return nil, err
	}
	return nutrients, nil
}

// ReplaceAliases 以 aliases 取代 nutrient 現有的別名集合。
// 與其他營養素的名稱或別名衝突的項目會被略過並記 warning，
// 維持「一個名稱/別名只對應一個營養素」的不變量。
func (s *Store) ReplaceAliases(n *Nutrient, aliases []string) (int, error) {
	if err := s.db.Where("nutrient_id = ?", n.ID).Delete(&NutrientAlias{}).Error; err != nil {
		return 0, fmt.Errorf("delete aliases of %q: %w", n.Name, err)
	}
	created := 0
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		var conflict int64
		if err := s.db.Model(&Nutrient{}).
			Where("name = ? AND id <> ?", alias, n.ID).
			Count(&conflict).Error; err != nil {
			return created, err
		}
		if conflict > 0 {
			common.LogWarn("別名與其他營養素名稱衝突，略過",
				zap.String("alias", alias),
				zap.String("nutrient", n.Name),
			)
			continue
		}
		if err := s.db.Create(&NutrientAlias{Name: alias, NutrientID: n.ID}).Error; err != nil {
			common.LogWarn("別名建立失敗，略過",
				zap.String("alias", alias),
				zap.String("nutrient", n.Name),
				zap.Error(err),
			)
			continue
		}
		created++
	}
	return created, nil
}

// DeleteNutrientsNotIn 刪掉 external id 不在授權清單內的孤兒營養素。
// external id 為 NULL 的列（手動建立）不受影響。
func (s *Store) DeleteNutrientsNotIn(externalIDs []int) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}
	res := s.db.Where("external_id IS NOT NULL AND external_id NOT IN ?", externalIDs).
		Delete(&Nutrient{})
	return res.RowsAffected, res.Error
}

// DeleteAllNutrients 清空營養素與別名（--delete-all）
func (s *Store) DeleteAllNutrients() error {
	if err := s.db.Where("1 = 1").Delete(&NutrientAlias{}).Error; err != nil {
		return err
	}
	return s.db.Where("1 = 1").Delete(&Nutrient{}).Error
}

// drvKey 唯一 tuple 查詢條件
func drvKey(q *gorm.DB, d DietaryReferenceValue) *gorm.DB {
	q = q.Where(
		"nutrient_id = ? AND source_category = ? AND target_population = ? AND age_range_text = ? AND value_unit = ?",
		d.NutrientID, d.SourceCategory, d.TargetPopulation, d.AgeRangeText, d.ValueUnit,
	)
	if d.Gender == nil {
		return q.Where("gender IS NULL")
	}
	return q.Where("gender = ?", *d.Gender)
}

// UpsertDRV 依唯一 tuple 建立或更新參考值列。
// update 為 false 時既有列保持原樣；回傳 (created, updated)。
func (s *Store) UpsertDRV(d DietaryReferenceValue, update bool) (bool, bool, error) {
	var existing DietaryReferenceValue
	err := drvKey(s.db, d).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.Create(&d).Error; err != nil {
			return false, false, fmt.Errorf("create DRV (nutrient %d): %w", d.NutrientID, err)
		}
		return true, false, nil
	}
	if err != nil {
		return false, false, err
	}
	if !update {
		return false, false, nil
	}
	changed := false
	for _, pair := range []struct {
		dst **float64
		src *float64
	}{
		{&existing.AI, d.AI},
		{&existing.AR, d.AR},
		{&existing.PRI, d.PRI},
		{&existing.RI, d.RI},
		{&existing.UL, d.UL},
	} {
		if !floatPtrEqual(*pair.dst, pair.src) {
			*pair.dst = pair.src
			changed = true
		}
	}
	if existing.Frequency != d.Frequency && d.Frequency != "" {
		existing.Frequency = d.Frequency
		changed = true
	}
	if changed {
		if err := s.db.Save(&existing).Error; err != nil {
			return false, false, err
		}
	}
	return false, changed, nil
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ListDRVs 取出全部參考值列（含 nutrient），供 DRV resolver 過濾
func (s *Store) ListDRVs() ([]DietaryReferenceValue, error) {
	var drvs []DietaryReferenceValue
	if err := s.db.Preload("Nutrient").Find(&drvs).Error; err != nil {
		return nil, err
	}
	return drvs, nil
}

// GetProfile 取出個人檔案（含 custom targets）
func (s *Store) GetProfile(id uint) (*PersonProfile, error) {
	var p PersonProfile
	if err := s.db.Preload("CustomTargets").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPlan 取出餐食計畫與所屬 profiles
func (s *Store) GetPlan(id uint) (*MealPlan, error) {
	var plan MealPlan
	if err := s.db.Preload("Profiles.CustomTargets").First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// UpsertIngredientByExternalID 依 FDC food id 建立或更新食材
func (s *Store) UpsertIngredientByExternalID(externalID int, defaults Ingredient, update bool) (*Ingredient, bool, bool, error) {
	var ing Ingredient
	err := s.db.Where("external_id = ?", externalID).First(&ing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ing = defaults
		ing.ExternalID = &externalID
		if ing.BaseUnit == "" {
			ing.BaseUnit = "g"
		}
		if err := s.db.Create(&ing).Error; err != nil {
			return nil, false, false, fmt.Errorf("create ingredient (external id %d): %w", externalID, err)
		}
		return &ing, true, false, nil
	}
	if err != nil {
		return nil, false, false, err
	}
	if !update {
		return &ing, false, false, nil
	}
	changed := false
	if defaults.Name != "" && ing.Name != defaults.Name {
		ing.Name = defaults.Name
		changed = true
	}
	if defaults.FoodClass != "" && ing.FoodClass != defaults.FoodClass {
		ing.FoodClass = defaults.FoodClass
		changed = true
	}
	if changed {
		if err := s.db.Save(&ing).Error; err != nil {
			return nil, false, false, err
		}
	}
	return &ing, false, changed, nil
}

// CreateIngredient 建立新的食材列（AI 產生的食材走這裡）
func (s *Store) CreateIngredient(ing *Ingredient) error {
	return s.db.Create(ing).Error
}

// DeleteIngredientLinks 清掉食材的舊營養連結（重新匯入前）
func (s *Store) DeleteIngredientLinks(ingredientID uint) error {
	return s.db.Where("ingredient_id = ?", ingredientID).Delete(&IngredientNutrientLink{}).Error
}

// UpsertIngredientNutrientLink 建立或更新食材-營養素連結
func (s *Store) UpsertIngredientNutrientLink(ingredientID, nutrientID uint, amount float64) (bool, error) {
	var link IngredientNutrientLink
	err := s.db.Where("ingredient_id = ? AND nutrient_id = ?", ingredientID, nutrientID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		link = IngredientNutrientLink{
			IngredientID:      ingredientID,
			NutrientID:        nutrientID,
			AmountPer100Units: amount,
		}
		return true, s.db.Create(&link).Error
	}
	if err != nil {
		return false, err
	}
	if link.AmountPer100Units != amount {
		link.AmountPer100Units = amount
		return false, s.db.Save(&link).Error
	}
	return false, nil
}

// UpsertFoodPortion 建立或更新份量列（以 external portion id 為 key）
func (s *Store) UpsertFoodPortion(p FoodPortion) (bool, error) {
	var existing FoodPortion
	q := s.db.Where("ingredient_id = ?", p.IngredientID)
	if p.ExternalPortionID == nil {
		q = q.Where("external_portion_id IS NULL AND portion_description = ?", p.PortionDescription)
	} else {
		q = q.Where("external_portion_id = ?", *p.ExternalPortionID)
	}
	err := q.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, s.db.Create(&p).Error
	}
	if err != nil {
		return false, err
	}
	p.ID = existing.ID
	return false, s.db.Save(&p).Error
}

// DeleteAllFoodData 清空食材層資料（--delete-before-import）。
// 營養素不在此清除，canonical 清單由 nutrients 匯入維護。
func (s *Store) DeleteAllFoodData() error {
	if err := s.db.Where("1 = 1").Delete(&FoodPortion{}).Error; err != nil {
		return err
	}
	if err := s.db.Where("1 = 1").Delete(&IngredientNutrientLink{}).Error; err != nil {
		return err
	}
	return s.db.Where("1 = 1").Delete(&Ingredient{}).Error
}

// SearchIngredients 名稱模糊查詢，給列表端點用
func (s *Store) SearchIngredients(query string, limit int) ([]Ingredient, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var ingredients []Ingredient
	q := s.db.Order("name").Limit(limit)
	if query != "" {
		q = q.Where("name LIKE ?", "%"+query+"%")
	}
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}
