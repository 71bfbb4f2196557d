package plan

import (
	"errors"
	"testing"

	"github.com/arpheno/mealprep/internal/core/drv"
)

func fptr(v float64) *float64 { return &v }

func TestAggregateSumsRDA(t *testing.T) {
	got, err := Aggregate([]ProfileTargets{
		{ProfileID: 1, Targets: map[string]drv.ResolvedTarget{
			"Vitamin C": {RDA: fptr(90), Unit: "mg", Source: drv.SourceRDA},
		}},
		{ProfileID: 2, Targets: map[string]drv.ResolvedTarget{
			"Vitamin C": {RDA: fptr(75), Unit: "mg", Source: drv.SourceRDA},
		}},
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	entry, ok := got["Vitamin C"]
	if !ok {
		t.Fatal("Vitamin C missing")
	}
	if entry.RDA != 165 {
		t.Errorf("RDA = %v, want 165", entry.RDA)
	}
	if entry.Unit != "mg" {
		t.Errorf("unit = %q, want mg", entry.Unit)
	}
}

func TestAggregateNilRDACountsAsZero(t *testing.T) {
	got, err := Aggregate([]ProfileTargets{
		{ProfileID: 1, Targets: map[string]drv.ResolvedTarget{
			"Zinc": {RDA: fptr(11), Unit: "mg"},
		}},
		{ProfileID: 2, Targets: map[string]drv.ResolvedTarget{
			"Zinc": {UL: fptr(25), Unit: "mg"}, // 只有上限
		}},
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if entry := got["Zinc"]; entry.RDA != 11 {
		t.Errorf("RDA = %v, want 11 (nil counted as zero)", entry.RDA)
	}
}

func TestAggregateMinimumUL(t *testing.T) {
	got, err := Aggregate([]ProfileTargets{
		{ProfileID: 1, Targets: map[string]drv.ResolvedTarget{
			"Vitamin D": {UL: fptr(4000), Unit: "IU"},
		}},
		{ProfileID: 2, Targets: map[string]drv.ResolvedTarget{
			"Vitamin D": {UL: fptr(2000), Unit: "IU"},
		}},
		{ProfileID: 3, Targets: map[string]drv.ResolvedTarget{
			"Vitamin D": {RDA: fptr(600), Unit: "IU"}, // UL 缺值不參與取 min
		}},
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if entry := got["Vitamin D"]; entry.UL == nil || *entry.UL != 2000 {
		t.Errorf("UL = %v, want 2000", entry.UL)
	}
}

func TestAggregateEmptyProfiles(t *testing.T) {
	got, err := Aggregate(nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("targets = %v, want empty", got)
	}
}

func TestAggregateAdoptsFirstNonEmptyUnit(t *testing.T) {
	got, err := Aggregate([]ProfileTargets{
		{ProfileID: 1, Targets: map[string]drv.ResolvedTarget{
			"Creatine": {RDA: fptr(3), Source: drv.SourceCustom}, // 自訂目標沒帶單位
		}},
		{ProfileID: 2, Targets: map[string]drv.ResolvedTarget{
			"Creatine": {RDA: fptr(5), Unit: "g", Source: drv.SourceCustom},
		}},
		{ProfileID: 3, Targets: map[string]drv.ResolvedTarget{
			"Creatine": {RDA: fptr(4), Unit: "mg", Source: drv.SourceCustom},
		}},
	})

	// 基準是第一個非空單位 g，mg 的貢獻算衝突
	var mismatch *UnitMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *UnitMismatchError", err)
	}
	if len(mismatch.Conflicts) != 1 || mismatch.Conflicts[0].ProfileID != 3 ||
		mismatch.Conflicts[0].Want != "g" {
		t.Fatalf("conflicts = %+v, want profile 3 against g", mismatch.Conflicts)
	}

	entry := got["Creatine"]
	if entry.Unit != "g" {
		t.Errorf("unit = %q, want g", entry.Unit)
	}
	if entry.RDA != 8 {
		t.Errorf("RDA = %v, want 8 (unitless and g contributions)", entry.RDA)
	}
}

func TestAggregateUnitMismatchSkipsConflict(t *testing.T) {
	got, err := Aggregate([]ProfileTargets{
		{ProfileID: 1, Targets: map[string]drv.ResolvedTarget{
			"Vitamin D": {RDA: fptr(15), Unit: "µg"},
			"Calcium":   {RDA: fptr(1000), Unit: "mg"},
		}},
		{ProfileID: 2, Targets: map[string]drv.ResolvedTarget{
			"Vitamin D": {RDA: fptr(600), Unit: "IU"}, // 單位不一致
			"Calcium":   {RDA: fptr(1000), Unit: "mg"},
		}},
	})

	var mismatch *UnitMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *UnitMismatchError", err)
	}
	if len(mismatch.Conflicts) != 1 {
		t.Fatalf("conflicts = %v, want exactly one", mismatch.Conflicts)
	}
	c := mismatch.Conflicts[0]
	if c.Nutrient != "Vitamin D" || c.ProfileID != 2 || c.Unit != "IU" || c.Want != "µg" {
		t.Errorf("conflict = %+v", c)
	}

	// 衝突的貢獻跳過，其餘照常回傳
	if entry := got["Vitamin D"]; entry.RDA != 15 {
		t.Errorf("Vitamin D RDA = %v, want first profile's 15 only", entry.RDA)
	}
	if entry := got["Calcium"]; entry.RDA != 2000 {
		t.Errorf("Calcium RDA = %v, want 2000", entry.RDA)
	}
}
