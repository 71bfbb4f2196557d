package drv

import (
	"errors"
	"testing"

	"github.com/arpheno/mealprep/internal/core/catalog"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func gptr(g catalog.Gender) *catalog.Gender {
	return &g
}

// identityResolver 測試用：所有名稱都對不到型錄，保留原 key
type identityResolver struct{}

func (identityResolver) Resolve(name string) (*catalog.Nutrient, error) {
	return nil, errors.New("not found")
}

func adultMale() *catalog.PersonProfile {
	return &catalog.PersonProfile{
		ID: 1, Name: "Alex", AgeYears: iptr(30), Gender: gptr(catalog.GenderMale),
	}
}

func drvRecord(nutrient string, gender *catalog.Gender, ageRange string) catalog.DietaryReferenceValue {
	return catalog.DietaryReferenceValue{
		Nutrient:     catalog.Nutrient{Name: nutrient},
		Gender:       gender,
		AgeRangeText: ageRange,
		ValueUnit:    "mg",
	}
}

func TestResolvePRIPreferredOverAI(t *testing.T) {
	rec := drvRecord("Vitamin C", gptr(catalog.GenderMale), "≥ 18 years")
	rec.AI = fptr(75)
	rec.PRI = fptr(80)

	targets := NewResolver(nil).Resolve(adultMale(), []catalog.DietaryReferenceValue{rec})

	got, ok := targets["Vitamin C"]
	if !ok {
		t.Fatal("Vitamin C missing from targets")
	}
	if got.RDA == nil || *got.RDA != 80 {
		t.Errorf("RDA = %v, want 80 (PRI wins over AI)", got.RDA)
	}
	if got.Source != SourceRDA {
		t.Errorf("source = %q, want %q", got.Source, SourceRDA)
	}
}

func TestResolveAIUsedWhenNoPRI(t *testing.T) {
	rec := drvRecord("Vitamin C", gptr(catalog.GenderMale), "≥ 18 years")
	rec.AI = fptr(75)

	targets := NewResolver(nil).Resolve(adultMale(), []catalog.DietaryReferenceValue{rec})

	if got := targets["Vitamin C"]; got.RDA == nil || *got.RDA != 75 {
		t.Errorf("RDA = %v, want 75 from AI", got.RDA)
	}
}

func TestResolveLaterPRIDoesNotOverrideFirst(t *testing.T) {
	first := drvRecord("Iron", gptr(catalog.GenderMale), "≥ 18 years")
	first.PRI = fptr(11)
	second := drvRecord("Iron", nil, "19-30 years")
	second.PRI = fptr(14)

	targets := NewResolver(nil).Resolve(adultMale(), []catalog.DietaryReferenceValue{first, second})

	if got := targets["Iron"]; got.RDA == nil || *got.RDA != 11 {
		t.Errorf("RDA = %v, want first PRI 11", got.RDA)
	}
}

func TestResolveMinimumUL(t *testing.T) {
	a := drvRecord("Zinc", nil, "≥ 18 years")
	a.UL = fptr(40)
	b := drvRecord("Zinc", gptr(catalog.GenderMale), "19-30 years")
	b.UL = fptr(25)

	targets := NewResolver(nil).Resolve(adultMale(), []catalog.DietaryReferenceValue{a, b})

	if got := targets["Zinc"]; got.UL == nil || *got.UL != 25 {
		t.Errorf("UL = %v, want min 25", got.UL)
	}
}

func TestResolveGenderFiltering(t *testing.T) {
	female := drvRecord("Iron", gptr(catalog.GenderFemale), "≥ 18 years")
	female.PRI = fptr(16)
	anyGender := drvRecord("Magnesium", nil, "≥ 18 years")
	anyGender.PRI = fptr(350)

	targets := NewResolver(nil).Resolve(adultMale(), []catalog.DietaryReferenceValue{female, anyGender})

	if _, ok := targets["Iron"]; ok {
		t.Error("female-only record applied to male profile")
	}
	if got, ok := targets["Magnesium"]; !ok || got.RDA == nil || *got.RDA != 350 {
		t.Errorf("gender-neutral record missing or wrong: %+v", got)
	}
}

func TestResolveOtherGenderOnlyMatchesNeutralRecords(t *testing.T) {
	profile := &catalog.PersonProfile{
		ID: 2, Name: "Sam", AgeYears: iptr(25), Gender: gptr(catalog.GenderOther),
	}
	male := drvRecord("Iron", gptr(catalog.GenderMale), "≥ 18 years")
	male.PRI = fptr(11)
	neutral := drvRecord("Magnesium", nil, "≥ 18 years")
	neutral.PRI = fptr(350)

	targets := NewResolver(nil).Resolve(profile, []catalog.DietaryReferenceValue{male, neutral})

	if _, ok := targets["Iron"]; ok {
		t.Error("male record applied to OTHER profile")
	}
	if _, ok := targets["Magnesium"]; !ok {
		t.Error("neutral record not applied to OTHER profile")
	}
}

func TestResolveMissingAgeUsesCustomOnly(t *testing.T) {
	profile := &catalog.PersonProfile{
		ID: 3, Name: "NoAge", Gender: gptr(catalog.GenderMale),
		CustomTargets: []catalog.CustomTarget{
			{NutrientName: "Creatine", Target: 5, Unit: "g"},
		},
	}
	rec := drvRecord("Vitamin C", nil, "≥ 18 years")
	rec.PRI = fptr(80)

	targets := NewResolver(identityResolver{}).Resolve(profile, []catalog.DietaryReferenceValue{rec})

	if _, ok := targets["Vitamin C"]; ok {
		t.Error("reference values applied despite missing age")
	}
	got, ok := targets["Creatine"]
	if !ok {
		t.Fatal("custom target missing")
	}
	if got.RDA == nil || *got.RDA != 5 || got.Unit != "g" || got.Source != SourceCustom {
		t.Errorf("custom target = %+v, want 5 g from custom", got)
	}
}

func TestResolveCustomOverride(t *testing.T) {
	profile := adultMale()
	profile.CustomTargets = []catalog.CustomTarget{
		{NutrientName: "Protein", Target: 120, Unit: "g", IsOverride: true},
	}
	rec := drvRecord("Protein", gptr(catalog.GenderMale), "≥ 18 years")
	rec.ValueUnit = "g"
	rec.PRI = fptr(56)
	rec.UL = fptr(250)

	targets := NewResolver(identityResolver{}).Resolve(profile, []catalog.DietaryReferenceValue{rec})

	got, ok := targets["Protein"]
	if !ok {
		t.Fatal("Protein missing from targets")
	}
	if got.RDA == nil || *got.RDA != 120 {
		t.Errorf("RDA = %v, want custom 120", got.RDA)
	}
	if got.Source != SourceCustomOverride {
		t.Errorf("source = %q, want %q", got.Source, SourceCustomOverride)
	}
	if got.UL == nil || *got.UL != 250 {
		t.Errorf("UL = %v, want reference UL 250 retained", got.UL)
	}
}

func TestResolveSparseOutput(t *testing.T) {
	rec := drvRecord("Chromium", gptr(catalog.GenderMale), "≥ 18 years")
	// 適用但五個數值全空

	targets := NewResolver(nil).Resolve(adultMale(), []catalog.DietaryReferenceValue{rec})

	if _, ok := targets["Chromium"]; ok {
		t.Error("value-less nutrient present in output")
	}
	if len(targets) != 0 {
		t.Errorf("targets = %v, want empty", targets)
	}
}
