package nutrient

import (
	"sort"
	"testing"
)

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestVariantsEmptyInput(t *testing.T) {
	if got := Variants(""); len(got) != 0 {
		t.Fatalf("Variants(\"\") = %v, want empty", got)
	}
	if got := Variants("   "); len(got) != 0 {
		t.Fatalf("Variants(whitespace) = %v, want empty", got)
	}
}

func TestVariantsBasicForms(t *testing.T) {
	got := Variants("Vitamin B-12")

	for _, want := range []string{
		"Vitamin B-12", // 原字串
		"vitamin b-12",
		"Vitamin B12", // 連字號移除
		"vitamin b12",
		"Vitamin B 12", // 連字號改空格
		"vitamin b 12",
	} {
		if !contains(got, want) {
			t.Errorf("Variants(%q) missing %q, got %v", "Vitamin B-12", want, got)
		}
	}

	if got[0] != "Vitamin B-12" {
		t.Errorf("first variant = %q, want verbatim input first", got[0])
	}
}

func TestVariantsParenthetical(t *testing.T) {
	got := Variants("Thiamin (B1)")

	for _, want := range []string{"B1", "b1", "Thiamin", "thiamin"} {
		if !contains(got, want) {
			t.Errorf("Variants missing %q, got %v", want, got)
		}
	}
}

func TestVariantsBaseBeforeComma(t *testing.T) {
	got := Variants("Calcium, Ca")
	if !contains(got, "Calcium") || !contains(got, "calcium") {
		t.Errorf("Variants(%q) missing base form, got %v", "Calcium, Ca", got)
	}

	got = Variants("Niacin as niacin equivalents")
	if !contains(got, "Niacin") {
		t.Errorf("Variants missing %q base before \" as \", got %v", "Niacin", got)
	}
}

func TestVariantsVitaminBHyphenInsertion(t *testing.T) {
	got := Variants("Vitamin B6")
	if !contains(got, "Vitamin B-6") || !contains(got, "vitamin b-6") {
		t.Errorf("Variants(%q) missing hyphen-inserted form, got %v", "Vitamin B6", got)
	}

	// 已有連字號時不再插入
	got = Variants("Vitamin B-6")
	for _, v := range got {
		if v == "Vitamin B--6" {
			t.Errorf("double hyphen variant produced: %v", got)
		}
	}
}

func TestVariantsWhitespaceNormalized(t *testing.T) {
	a := Variants("Vitamin   K ")
	b := Variants("Vitamin K")
	sort.Strings(a)
	sort.Strings(b)
	if len(a) != len(b) {
		t.Fatalf("whitespace-normalized inputs differ: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("whitespace-normalized inputs differ: %v vs %v", a, b)
		}
	}
}

// 展開結果再展開不應產生新的候選（集合意義上的冪等）
func TestVariantsIdempotent(t *testing.T) {
	for _, name := range []string{
		"Vitamin B-12",
		"Thiamin (B1)",
		"Calcium, Ca",
		"Folate, DFE",
		"Energy",
	} {
		// 每個第一輪候選的展開結果必須包含自身
		for _, v := range Variants(name) {
			second := Variants(v)
			if !contains(second, v) {
				t.Errorf("Variants(%q) does not contain itself: %v", v, second)
			}
		}
	}
}
