package importer

import "testing"

func TestParseFloatOrNone(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{"80", fp(80)},
		{" 12.5 ", fp(12.5)},
		{"2,500", fp(2500)},
		{"(+) 1 g/day", fp(1)},
		{"<0.5", fp(0.5)},
		{"10.5 mg/day", fp(10.5)},
		{"", nil},
		{"   ", nil},
		{"NA", nil},
		{"na", nil},
		{"ND", nil},
		{"-", nil},
		{"n/a/x", nil},
	}
	for _, c := range cases {
		got := parseFloatOrNone(c.in)
		switch {
		case got == nil && c.want == nil:
		case got == nil || c.want == nil:
			t.Errorf("parseFloatOrNone(%q) = %v, want %v", c.in, deref(got), deref(c.want))
		case *got != *c.want:
			t.Errorf("parseFloatOrNone(%q) = %v, want %v", c.in, *got, *c.want)
		}
	}
}

func fp(v float64) *float64 { return &v }

func deref(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func TestHeaderIndex(t *testing.T) {
	header := []string{
		"Category", "Nutrient", "Target population", "Age", "Gender",
		"frequency", "unit", "AI", "AR", "PRI", "RI", "UL",
	}
	col, err := headerIndex(header)
	if err != nil {
		t.Fatalf("headerIndex: %v", err)
	}
	if col["Nutrient"] != 1 || col["UL"] != 11 {
		t.Errorf("column positions wrong: %v", col)
	}

	// 欄位順序打亂也要能對應
	shuffled := []string{
		"UL", "RI", "PRI", "AR", "AI", "unit",
		"frequency", "Gender", "Age", "Target population", "Nutrient", "Category",
	}
	col, err = headerIndex(shuffled)
	if err != nil {
		t.Fatalf("headerIndex shuffled: %v", err)
	}
	if col["Nutrient"] != 10 {
		t.Errorf("shuffled Nutrient index = %d, want 10", col["Nutrient"])
	}
}

func TestHeaderIndexMissingColumns(t *testing.T) {
	_, err := headerIndex([]string{"Category", "Nutrient", "Age"})
	if err == nil {
		t.Fatal("headerIndex accepted incomplete header")
	}
}

func TestCellOutOfRange(t *testing.T) {
	row := []string{"a", " b "}
	if got := cell(row, 1); got != "b" {
		t.Errorf("cell trim = %q, want b", got)
	}
	// XLSX 的短列不應 panic
	if got := cell(row, 5); got != "" {
		t.Errorf("cell out of range = %q, want empty", got)
	}
}
