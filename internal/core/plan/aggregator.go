package plan

import (
	"fmt"
	"strings"

	"github.com/arpheno/mealprep/internal/core/drv"
)

// AggregatedTarget 整個計畫的營養素總目標。
// RDA 是各 profile 的加總（缺值以 0 計）；UL 取最小值，確保對每個成員都安全。
type AggregatedTarget struct {
	RDA  float64  `json:"rda"`
	UL   *float64 `json:"ul,omitempty"`
	Unit string   `json:"unit"`
}

// ProfileTargets 單一 profile 的已解析目標，順序即 plan 上的成員順序
type ProfileTargets struct {
	ProfileID uint
	Targets   map[string]drv.ResolvedTarget
}

// UnitConflict 單筆單位衝突：某個 profile 對同一營養素回報了不同單位
type UnitConflict struct {
	Nutrient  string
	ProfileID uint
	Unit      string
	Want      string
}

// UnitMismatchError 聚合時發現單位不一致。
// 衝突的貢獻會被跳過，呼叫端仍會拿到其餘營養素的部分結果。
type UnitMismatchError struct {
	Conflicts []UnitConflict
}

func (e *UnitMismatchError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = fmt.Sprintf("%s: profile %d reported %q, want %q",
			c.Nutrient, c.ProfileID, c.Unit, c.Want)
	}
	return "unit mismatch while aggregating plan targets: " + strings.Join(parts, "; ")
}

// Aggregate 把多個 profile 的目標合併成計畫層級的目標。
// 單位以第一個回報非空單位的 profile 為準，後續不一致的貢獻跳過並回報錯誤；
// 空的 profile 清單回傳空 map。
func Aggregate(profiles []ProfileTargets) (map[string]AggregatedTarget, error) {
	out := make(map[string]AggregatedTarget)
	var conflicts []UnitConflict

	for _, p := range profiles {
		for name, target := range p.Targets {
			entry, ok := out[name]
			switch {
			case !ok:
				entry = AggregatedTarget{Unit: target.Unit}
			case entry.Unit == "":
				// 首位回報者沒帶單位時，基準改採第一個非空單位
				entry.Unit = target.Unit
			case target.Unit != "" && target.Unit != entry.Unit:
				conflicts = append(conflicts, UnitConflict{
					Nutrient:  name,
					ProfileID: p.ProfileID,
					Unit:      target.Unit,
					Want:      entry.Unit,
				})
				continue
			}

			if target.RDA != nil {
				entry.RDA += *target.RDA
			}
			if target.UL != nil && (entry.UL == nil || *target.UL < *entry.UL) {
				v := *target.UL
				entry.UL = &v
			}
			out[name] = entry
		}
	}

	if len(conflicts) > 0 {
		return out, &UnitMismatchError{Conflicts: conflicts}
	}
	return out, nil
}
