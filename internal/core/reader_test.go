package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ====================================================================
// CSV
// ====================================================================

func TestReadSpreadsheet_CSV(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want [][]string
	}{
		{
			name: "plain utf-8",
			data: []byte("name,price\nApple,3.50\n"),
			want: [][]string{{"name", "price"}, {"Apple", "3.50"}},
		},
		{
			name: "byte order mark stripped",
			data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,price\nApple,3.50\n")...),
			want: [][]string{{"name", "price"}, {"Apple", "3.50"}},
		},
		{
			name: "windows-1252 decoded",
			data: []byte("name,price\nCr\xe8me fra\xeeche,2.00\n"),
			want: [][]string{{"name", "price"}, {"Crème fraîche", "2.00"}},
		},
		{
			name: "ragged rows allowed",
			data: []byte("name,price,on_hand\nApple,3.50\n"),
			want: [][]string{{"name", "price", "on_hand"}, {"Apple", "3.50"}},
		},
		{
			name: "stray quote tolerated",
			data: []byte("name,price\n12\" Pizza,9.00\n"),
			want: [][]string{{"name", "price"}, {`12" Pizza`, "9.00"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadSpreadsheet("import.csv", bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("ReadSpreadsheet: %v", err)
			}
			assertRows(t, rows, tt.want)
		})
	}
}

func TestReadSpreadsheet_Unsupported(t *testing.T) {
	_, err := ReadSpreadsheet("import.ods", strings.NewReader(""))
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("err = %v, want ErrUnsupportedFile", err)
	}

	for _, name := range []string{"a.csv", "A.CSV", "b.xlsx", "B.XlSx"} {
		if !SupportedExtension(name) {
			t.Errorf("SupportedExtension(%q) = false", name)
		}
	}
	for _, name := range []string{"a.xls", "a.txt", "csv", ""} {
		if SupportedExtension(name) {
			t.Errorf("SupportedExtension(%q) = true", name)
		}
	}
}

// ====================================================================
// XLSX
// ====================================================================

func buildWorkbook(t *testing.T, sheets map[string][][]interface{}, order ...string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			values := row
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestReadSpreadsheet_XLSX(t *testing.T) {
	t.Run("first sheet", func(t *testing.T) {
		buf := buildWorkbook(t, map[string][][]interface{}{
			"Data": {{"name", "units"}, {"Apple", 1.5}},
		}, "Data")

		rows, err := ReadSpreadsheet("import.xlsx", buf)
		if err != nil {
			t.Fatalf("ReadSpreadsheet: %v", err)
		}
		assertRows(t, rows, [][]string{{"name", "units"}, {"Apple", "1.5"}})
	})

	t.Run("named sheet preferred", func(t *testing.T) {
		buf := buildWorkbook(t, map[string][][]interface{}{
			"Notes":    {{"read me"}},
			"Products": {{"name"}, {"Pear"}},
		}, "Notes", "Products")

		rows, err := ReadSpreadsheet("import.xlsx", buf)
		if err != nil {
			t.Fatalf("ReadSpreadsheet: %v", err)
		}
		assertRows(t, rows, [][]string{{"name"}, {"Pear"}})
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := ReadSpreadsheet("import.xlsx", strings.NewReader("name,price\n"))
		if !errors.Is(err, ErrUnreadableFile) {
			t.Errorf("err = %v, want ErrUnreadableFile", err)
		}
	})
}

func TestOpen_XLSXRun(t *testing.T) {
	env := newTestEnv()
	buf := buildWorkbook(t, map[string][][]interface{}{
		"Sheet": {
			{"supplier", "name", "category", "units", "unit_type", "price", "on_hand"},
			{"Acme", "Apple Box", "Fruit", 1, "kg", 3.5, 10},
		},
	}, "Sheet")

	r := env.importer.Open(t.Context(), Source{Name: "import.xlsx", Reader: buf}, User{ID: 9}, nil)
	r.ValidateEntries(t.Context())

	e := entryAt(t, r, 2)
	assertValidatesAs(t, e, "new_product")
	if !e.Price.Decimal.Equal(dec("3.5")) || e.OnHand != 10 {
		t.Errorf("price = %s, on_hand = %d", e.Price.Decimal, e.OnHand)
	}
}

func assertRows(t *testing.T, got, want [][]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("rows = %q, want %q", got, want)
	}
	for i := range want {
		if strings.Join(got[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
}
