package nutrient

import (
	"errors"
	"testing"

	"github.com/arpheno/mealprep/internal/core/catalog"
)

func testCatalog() []catalog.Nutrient {
	return []catalog.Nutrient{
		{ID: 1, Name: "Vitamin B-12", Unit: "µg"},
		{ID: 2, Name: "Vitamin B-6", Unit: "mg"},
		{ID: 3, Name: "Calcium, Ca", Unit: "mg", Aliases: []catalog.NutrientAlias{
			{Name: "Calcium"},
		}},
		{ID: 4, Name: "Folate, DFE", Unit: "µg", Aliases: []catalog.NutrientAlias{
			{Name: "Folate"},
			{Name: "Folic acid"},
		}},
		{ID: 5, Name: "Energy", Unit: "kcal"},
		{ID: 6, Name: "Protein", Unit: "g"},
	}
}

func TestResolveCanonicalName(t *testing.T) {
	r := NewResolver(testCatalog())

	for input, wantID := range map[string]uint{
		"Vitamin B-12": 1,
		"vitamin b-12": 1,
		"Vitamin B12":  1, // 連字號差異
		"Energy":       5,
		"ENERGY":       5,
		"Protein":      6,
	} {
		got, err := r.Resolve(input)
		if err != nil {
			t.Errorf("Resolve(%q): unexpected error %v", input, err)
			continue
		}
		if got.ID != wantID {
			t.Errorf("Resolve(%q) = %q (id %d), want id %d", input, got.Name, got.ID, wantID)
		}
	}
}

func TestResolveAlias(t *testing.T) {
	r := NewResolver(testCatalog())

	got, err := r.Resolve("Folic acid")
	if err != nil {
		t.Fatalf("Resolve alias: %v", err)
	}
	if got.Name != "Folate, DFE" {
		t.Errorf("Resolve(%q) = %q, want Folate, DFE", "Folic acid", got.Name)
	}

	// 別名也應大小寫不敏感
	got, err = r.Resolve("folate")
	if err != nil {
		t.Fatalf("Resolve alias lowercase: %v", err)
	}
	if got.ID != 4 {
		t.Errorf("Resolve(%q) = id %d, want 4", "folate", got.ID)
	}
}

func TestResolveVariantForms(t *testing.T) {
	r := NewResolver(testCatalog())

	// "Calcium, Ca" 的逗號前主體應可直接比對 canonical name
	got, err := r.Resolve("Calcium (Ca)")
	if err != nil {
		t.Fatalf("Resolve(%q): %v", "Calcium (Ca)", err)
	}
	if got.ID != 3 {
		t.Errorf("Resolve(%q) = id %d, want 3", "Calcium (Ca)", got.ID)
	}

	// Vitamin B6 沒連字號也要對到 Vitamin B-6
	got, err = r.Resolve("Vitamin B6")
	if err != nil {
		t.Fatalf("Resolve(%q): %v", "Vitamin B6", err)
	}
	if got.ID != 2 {
		t.Errorf("Resolve(%q) = id %d, want 2", "Vitamin B6", got.ID)
	}
}

func TestResolveUnresolved(t *testing.T) {
	r := NewResolver(testCatalog())

	_, err := r.Resolve("Astaxanthin")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Resolve unknown name: err = %v, want ErrUnresolved", err)
	}

	_, err = r.Resolve("")
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Resolve empty name: err = %v, want ErrUnresolved", err)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	cat := append(testCatalog(), catalog.Nutrient{
		ID: 7, Name: "Vitamin D2", Unit: "µg", Aliases: []catalog.NutrientAlias{
			{Name: "Vitamin D"},
		},
	}, catalog.Nutrient{
		ID: 8, Name: "Vitamin D3", Unit: "µg", Aliases: []catalog.NutrientAlias{
			{Name: "Vitamin D"},
		},
	})
	r := NewResolver(cat)

	_, err := r.Resolve("Vitamin D")
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("Resolve ambiguous alias: err = %v, want ErrAmbiguous", err)
	}
}

func TestResolveShortNamesNeverPrefixMatch(t *testing.T) {
	cat := append(testCatalog(), catalog.Nutrient{ID: 9, Name: "Boron, B", Unit: "mg"})
	r := NewResolver(cat)

	// "B6" 展開後的 "b6" 長度 < 3，不應靠前綴比對誤配到 "b"
	if got, err := r.Resolve("B6"); err == nil {
		if got.ID == 9 {
			t.Errorf("Resolve(%q) prefix-matched short string to %q", "B6", got.Name)
		}
	}
}

func TestResolveWarnsOncePerName(t *testing.T) {
	r := NewResolver(testCatalog())

	// 重複查同一個未知名稱不應 panic，且始終回傳相同錯誤
	for i := 0; i < 3; i++ {
		if _, err := r.Resolve("Unknownium"); !errors.Is(err, ErrUnresolved) {
			t.Fatalf("repeat %d: err = %v, want ErrUnresolved", i, err)
		}
	}
	if _, ok := r.warned["Unknownium"]; !ok {
		t.Errorf("unresolved name not recorded in warned set")
	}
}
