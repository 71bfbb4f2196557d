package nutrient

import (
	"strings"

	"github.com/arpheno/mealprep/internal/core/catalog"
	"github.com/arpheno/mealprep/internal/pkg/common"

	"go.uber.org/zap"
)

// KcalPerKJ 千焦換算大卡
const KcalPerKJ = 1 / 4.184

// SourceNutrient 外部資料列的營養素描述（尚未正規化）
type SourceNutrient struct {
	ExternalID *int   // FDC nutrient id
	Name       string
	UnitName   string
	Number     string // FDC nutrient number，字串型
}

// Result 正規化單列的結果
type Result struct {
	Nutrient *catalog.Nutrient
	Amount   float64 // 換算後的量
	Created  bool
	Updated  bool
	Skipped  bool
}

// Catalog 正規化所需的最小儲存介面
type Catalog interface {
	UpsertNutrientByExternalID(externalID int, defaults catalog.Nutrient, update bool) (*catalog.Nutrient, bool, bool, error)
	GetOrCreateNutrientByName(name string, defaults catalog.Nutrient) (*catalog.Nutrient, bool, error)
	SaveNutrient(n *catalog.Nutrient) error
}

// strategy 單一營養素家族的正規化規則。
// Matches 判斷來源列是否屬於這個家族；Process 負責合併到 canonical row 並換算數值。
type strategy interface {
	Matches(src SourceNutrient) bool
	Process(store Catalog, src SourceNutrient, amount float64) (Result, error)
}

// Canonicalizer 把外部營養素列折疊到 canonical nutrient。
// 規則依序嘗試，第一個命中的生效；重複執行同一批資料不會產生新 row。
type Canonicalizer struct {
	store      Catalog
	strategies []strategy
}

// NewCanonicalizer 建立預設規則鏈：能量 → 膽鹼 → 葉酸 DFE → 一般
func NewCanonicalizer(store Catalog) *Canonicalizer {
	return &Canonicalizer{
		store: store,
		strategies: []strategy{
			energyStrategy{},
			cholineStrategy{},
			folateDFEStrategy{},
			defaultStrategy{},
		},
	}
}

// Process 正規化一列來源資料
func (c *Canonicalizer) Process(src SourceNutrient, amount float64) (Result, error) {
	for _, s := range c.strategies {
		if s.Matches(src) {
			return s.Process(c.store, src, amount)
		}
	}
	// defaultStrategy 永遠命中，不會走到這裡
	return Result{Skipped: true}, nil
}

func intIn(p *int, values ...int) bool {
	if p == nil {
		return false
	}
	for _, v := range values {
		if *p == v {
			return true
		}
	}
	return false
}

func stringIn(s string, values ...string) bool {
	for _, v := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }

// energyStrategy 把 kcal 與 kJ 的能量列折疊成單一 "Energy" row（kcal）。
// FDC 同時帶 1008/208（kcal）與 2047/957（kJ），不處理的話會變成兩個營養素。
type energyStrategy struct{}

func (energyStrategy) Matches(src SourceNutrient) bool {
	if stringIn(src.Number, "208", "957") {
		return true
	}
	if intIn(src.ExternalID, 1008, 2047) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(src.Name), "energy") &&
		stringIn(src.UnitName, "kcal", "kj")
}

func (energyStrategy) Process(store Catalog, src SourceNutrient, amount float64) (Result, error) {
	var converted float64
	switch {
	case strings.EqualFold(src.UnitName, "kcal"):
		converted = amount
	case strings.EqualFold(src.UnitName, "kj"):
		converted = amount * KcalPerKJ
	default:
		common.LogWarn("能量單位不支援，略過",
			zap.String("unit", src.UnitName),
			zap.String("name", src.Name))
		return Result{Skipped: true}, nil
	}

	// 以名稱合併：kcal 與 kJ 兩種來源列都要落到同一個 canonical row
	n, created, err := store.GetOrCreateNutrientByName("Energy", catalog.Nutrient{
		Name:           "Energy",
		Unit:           "kcal",
		ExternalID:     intPtr(1008),
		ExternalNumber: "208",
		Category:       catalog.CategoryGeneral,
	})
	if err != nil {
		return Result{}, err
	}

	updated := false
	if !created {
		if n.Unit != "kcal" || n.ExternalID == nil || *n.ExternalID != 1008 || n.ExternalNumber != "208" {
			n.Unit = "kcal"
			n.ExternalID = intPtr(1008)
			n.ExternalNumber = "208"
			if err := store.SaveNutrient(n); err != nil {
				return Result{}, err
			}
			updated = true
		}
	}
	return Result{Nutrient: n, Amount: converted, Created: created, Updated: updated}, nil
}

// cholineStrategy 把舊編號 437 的膽鹼列導向 canonical 的 1180（Choline, total）
type cholineStrategy struct{}

func (cholineStrategy) Matches(src SourceNutrient) bool {
	if stringIn(src.Number, "437") {
		return true
	}
	return intIn(src.ExternalID, 1186, 1180)
}

func (cholineStrategy) Process(store Catalog, src SourceNutrient, amount float64) (Result, error) {
	n, created, updated, err := store.UpsertNutrientByExternalID(1180, catalog.Nutrient{
		Name:           "Choline, total",
		Unit:           "mg",
		ExternalID:     intPtr(1180),
		ExternalNumber: "421",
		Category:       catalog.CategoryGeneral,
	}, true)
	if err != nil {
		return Result{}, err
	}
	return Result{Nutrient: n, Amount: amount, Created: created, Updated: updated}, nil
}

// folateDFEStrategy 葉酸（DFE）固定落到 1190，單位 µg
type folateDFEStrategy struct{}

func (folateDFEStrategy) Matches(src SourceNutrient) bool {
	if stringIn(src.Number, "435") {
		return true
	}
	if intIn(src.ExternalID, 1190) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(src.Name), "folate, dfe") &&
		stringIn(src.UnitName, "µg", "ug", "mcg")
}

func (folateDFEStrategy) Process(store Catalog, src SourceNutrient, amount float64) (Result, error) {
	n, created, updated, err := store.UpsertNutrientByExternalID(1190, catalog.Nutrient{
		Name:           "Folate, DFE",
		Unit:           "µg",
		ExternalID:     intPtr(1190),
		ExternalNumber: "435",
		Category:       catalog.CategoryGeneral,
	}, true)
	if err != nil {
		return Result{}, err
	}
	return Result{Nutrient: n, Amount: amount, Created: created, Updated: updated}, nil
}

// defaultStrategy 其餘營養素：以來源的 external id upsert，缺 id 時退回名稱合併
type defaultStrategy struct{}

func (defaultStrategy) Matches(SourceNutrient) bool { return true }

func (defaultStrategy) Process(store Catalog, src SourceNutrient, amount float64) (Result, error) {
	defaults := catalog.Nutrient{
		Name:           src.Name,
		Unit:           src.UnitName,
		ExternalID:     src.ExternalID,
		ExternalNumber: src.Number,
		Category:       catalog.CategoryGeneral,
	}
	if src.ExternalID == nil {
		n, created, err := store.GetOrCreateNutrientByName(src.Name, defaults)
		if err != nil {
			return Result{}, err
		}
		return Result{Nutrient: n, Amount: amount, Created: created}, nil
	}

	n, created, updated, err := store.UpsertNutrientByExternalID(*src.ExternalID, defaults, true)
	if err != nil {
		return Result{}, err
	}
	return Result{Nutrient: n, Amount: amount, Created: created, Updated: updated}, nil
}
