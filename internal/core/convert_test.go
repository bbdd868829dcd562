package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

// ----------------------------------------------------------------------------
// ParseDecimal Tests
// ----------------------------------------------------------------------------

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   string
	}{
		// Valid: plain numbers
		{name: "integer", input: "123", wantOK: true, want: "123"},
		{name: "zero", input: "0", wantOK: true, want: "0"},
		{name: "negative", input: "-456", wantOK: true, want: "-456"},
		{name: "decimal", input: "123.45", wantOK: true, want: "123.45"},
		{name: "leading decimal point", input: ".99", wantOK: true, want: "0.99"},
		{name: "trailing decimal point", input: "99.", wantOK: true, want: "99"},
		{name: "scientific", input: "1e3", wantOK: true, want: "1000"},
		{name: "surrounding whitespace", input: "  4.5  ", wantOK: true, want: "4.5"},

		// Valid: spreadsheet formatting
		{name: "dollar and thousands", input: "$1,234.56", wantOK: true, want: "1234.56"},
		{name: "euro sign", input: "€12.50", wantOK: true, want: "12.5"},
		{name: "pound sign", input: "£3", wantOK: true, want: "3"},
		{name: "accounting negative", input: "(12.50)", wantOK: true, want: "-12.5"},

		// Invalid
		{name: "empty", input: "", wantOK: false},
		{name: "whitespace only", input: "   ", wantOK: false},
		{name: "letters", input: "abc", wantOK: false},
		{name: "number with unit", input: "250ml", wantOK: false},
		{name: "two points", input: "1.2.3", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDecimal(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDecimal(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
				t.Errorf("ParseDecimal(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseInt / ParseBool / ParseID Tests
// ----------------------------------------------------------------------------

func TestParseInt(t *testing.T) {
	tests := []struct {
		input  string
		want   int64
		wantOK bool
	}{
		{"12", 12, true},
		{"12.0", 12, true},
		{"-3", -3, true},
		{"1,000", 1000, true},
		{"12.5", 0, false},
		{"", 0, false},
		{"lots", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseInt(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseInt(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input  string
		want   bool
		wantOK bool
	}{
		{"true", true, true},
		{"TRUE", true, true},
		{"Yes", true, true},
		{"y", true, true},
		{"1", true, true},
		{"false", false, true},
		{"No", false, true},
		{"0", false, true},
		{" f ", false, true},
		{"", false, false},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseBool(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseBool(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		input  string
		want   int64
		wantOK bool
	}{
		{"5", 5, true},
		{" 42 ", 42, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"1.5", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseID(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseID(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple string unchanged", input: "hello", want: "hello"},
		{name: "empty string", input: "", want: ""},
		{name: "surrounded by whitespace", input: "  hello  ", want: "hello"},
		{name: "Excel formula with quotes", input: `="12345"`, want: "12345"},
		{name: "bare equals sign", input: "=SUM(A1)", want: "SUM(A1)"},
		{name: "double quotes removed", input: `"hello"`, want: "hello"},
		{name: "leading single quote (Excel text prefix)", input: "'0012", want: "0012"},
		{name: "whitespace and quotes", input: `  "hello"  `, want: "hello"},
		{name: "only quotes", input: `""`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCell(tt.input)
			if got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReadAttributes_TextKeepsQuotes(t *testing.T) {
	header := MakeHeaderIndex([]string{"name", "display_name", "description", "sku", "price", "on_hand"})
	row := []string{` 'Ohana Farm' `, `"Big" Box`, `=fresh today`, `'0012`, `="3.50"`, `'7`}

	a := ReadAttributes(header, row)

	tests := []struct {
		column string
		want   string
	}{
		{"name", `'Ohana Farm'`},
		{"display_name", `"Big" Box`},
		{"description", `=fresh today`},
		{"sku", "0012"},
		{"price", "3.50"},
		{"on_hand", "7"},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			if got := a.Get(tt.column); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.column, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Header Tests
// ----------------------------------------------------------------------------

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"name", "name"},
		{"Name", "name"},
		{"Display Name", "display_name"},
		{"display_name", "display_name"},
		{"Supplier *", "supplier"},
		{"On Hand*", "on_hand"},
		{"  Variant   Unit Name ", "variant_unit_name"},
		{`="Units"`, "units"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeHeader(tt.input); got != tt.want {
				t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		checks map[string]int // key -> expected index
	}{
		{
			name:   "template headers",
			header: []string{"Supplier *", "Name *", "Display Name", "Units *"},
			checks: map[string]int{
				"supplier":     0,
				"name":         1,
				"display_name": 2,
				"units":        3,
			},
		},
		{
			name:   "blank headers skipped",
			header: []string{"", "name", "  "},
			checks: map[string]int{"name": 1},
		},
		{
			name:   "empty header",
			header: []string{},
			checks: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := MakeHeaderIndex(tt.header)
			if len(idx) != len(tt.checks) {
				t.Errorf("MakeHeaderIndex(%v) has %d keys, want %d", tt.header, len(idx), len(tt.checks))
			}
			for key, wantPos := range tt.checks {
				gotPos, ok := idx[key]
				if !ok {
					t.Errorf("MakeHeaderIndex(%v)[%q] not found, want index %d", tt.header, key, wantPos)
					continue
				}
				if gotPos != wantPos {
					t.Errorf("MakeHeaderIndex(%v)[%q] = %d, want %d", tt.header, key, gotPos, wantPos)
				}
			}
		})
	}
}

// TestMakeHeaderIndex_DuplicateHeaders verifies the first of two equal
// columns is the one read.
func TestMakeHeaderIndex_DuplicateHeaders(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Name", "Price", "name"})

	if gotPos, ok := idx["name"]; !ok || gotPos != 0 {
		t.Errorf("MakeHeaderIndex with duplicates: name index = %d, want 0", gotPos)
	}
}
