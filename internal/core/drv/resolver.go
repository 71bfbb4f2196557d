package drv

import (
	"github.com/arpheno/mealprep/internal/core/catalog"
)

// 目標值來源標記
const (
	SourceRDA            = "rda"
	SourceCustom         = "custom"
	SourceCustomOverride = "custom_override"
)

// ResolvedTarget 單一營養素對單一 profile 的每日目標。
// RDA 與 UL 都可能缺值；輸出是稀疏的，沒有任何值的營養素不會出現。
type ResolvedTarget struct {
	RDA    *float64 `json:"rda,omitempty"`
	UL     *float64 `json:"ul,omitempty"`
	Unit   string   `json:"unit"`
	Source string   `json:"source"`
}

// NameResolver 把自訂目標的 key（可能是別名）對應到 canonical nutrient
type NameResolver interface {
	Resolve(name string) (*catalog.Nutrient, error)
}

// Resolver 依 profile 的年齡與性別挑出適用的參考值，再疊上自訂目標
type Resolver struct {
	names NameResolver
}

// NewResolver 建立 DRV resolver；names 可為 nil（此時自訂目標不做名稱正規化）
func NewResolver(names NameResolver) *Resolver {
	return &Resolver{names: names}
}

// Resolve 計算一個 profile 的營養素目標，以 canonical 名稱為 key。
// 規則：
//   - 年齡或性別缺值時跳過參考值，只看自訂目標
//   - 性別為空的參考值適用所有人；OTHER/NO_SAY 只吃性別為空的列
//   - RDA 取第一筆 PRI；完全沒有 PRI 時才用 AI
//   - UL 取所有適用列的最小值
//   - 自訂目標無條件蓋過參考值，來源標記 custom_override
func (r *Resolver) Resolve(profile *catalog.PersonProfile, records []catalog.DietaryReferenceValue) map[string]ResolvedTarget {
	targets := make(map[string]ResolvedTarget)
	priSet := make(map[string]bool)

	if profile.AgeYears != nil && profile.Gender != nil {
		for i := range records {
			rec := &records[i]
			if !genderApplies(rec.Gender, *profile.Gender) {
				continue
			}
			if !MatchesAge(rec.AgeRangeText, *profile.AgeYears) {
				continue
			}

			name := rec.Nutrient.Name
			entry, ok := targets[name]
			if !ok {
				entry = ResolvedTarget{Unit: rec.ValueUnit, Source: SourceRDA}
			}

			if rec.PRI != nil && !priSet[name] {
				v := *rec.PRI
				entry.RDA = &v
				priSet[name] = true
			} else if rec.AI != nil && !priSet[name] && entry.RDA == nil {
				v := *rec.AI
				entry.RDA = &v
			}
			if rec.UL != nil && (entry.UL == nil || *rec.UL < *entry.UL) {
				v := *rec.UL
				entry.UL = &v
			}

			targets[name] = entry
		}

		// 沒湊出任何數值的營養素不輸出
		for name, entry := range targets {
			if entry.RDA == nil && entry.UL == nil {
				delete(targets, name)
			}
		}
	}

	for i := range profile.CustomTargets {
		ct := &profile.CustomTargets[i]
		name := ct.NutrientName
		if r.names != nil {
			if n, err := r.names.Resolve(ct.NutrientName); err == nil {
				name = n.Name
			}
			// 對不到型錄時保留原始 key，自訂目標不因此丟失
		}

		v := ct.Target
		entry, existed := targets[name]
		entry.RDA = &v
		if ct.Unit != "" {
			entry.Unit = ct.Unit
		}
		if existed {
			entry.Source = SourceCustomOverride
		} else {
			entry.Source = SourceCustom
		}
		targets[name] = entry
	}

	return targets
}

// genderApplies 性別為空的列適用所有人；OTHER 與 NO_SAY 只匹配空值列
func genderApplies(recordGender *catalog.Gender, profileGender catalog.Gender) bool {
	if recordGender == nil {
		return true
	}
	return *recordGender == profileGender
}
