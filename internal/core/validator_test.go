package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const catalogHeader = "supplier,name,display_name,category,units,unit_type,variant_unit_name,price,on_hand,on_demand,tax_category,shipping_category"

func assertError(t *testing.T, e *Entry, field string, code ErrorCode) {
	t.Helper()
	for _, ve := range e.Errors() {
		if ve.Field == field && ve.Code == code {
			return
		}
	}
	t.Errorf("line %d: want %s error on %q, got %+v", e.LineNumber, code, field, e.Errors())
}

func assertValidatesAs(t *testing.T, e *Entry, want string) {
	t.Helper()
	if got := e.ValidatesAs(); got != want {
		t.Errorf("line %d validates as %q, want %q (errors %+v)", e.LineNumber, got, want, e.Errors())
	}
}

// ====================================================================
// Supplier resolution
// ====================================================================

func TestValidate_Supplier(t *testing.T) {
	tests := []struct {
		name     string
		supplier string
		code     ErrorCode
	}{
		{"blank", "", CodeRequired},
		{"unknown", "Nobody", CodeNotFound},
		{"not editable", "Rival", CodeNoPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			r := env.open(t, nil,
				catalogHeader,
				tt.supplier+",Apple Box,,Fruit,1,kg,,3.50,10,,,",
			)
			r.ValidateEntries(context.Background())

			e := entryAt(t, r, 2)
			assertError(t, e, "supplier", tt.code)
			assertValidatesAs(t, e, "")
			if e.SupplierID != 0 {
				t.Errorf("SupplierID = %d, want 0", e.SupplierID)
			}
		})
	}
}

func TestValidate_PermissionGateBlocksSave(t *testing.T) {
	env := newTestEnv()
	r := env.open(t, nil,
		catalogHeader,
		"Rival,Apple Box,,Fruit,1,kg,,3.50,10,,,",
	)
	r.SaveEntries(context.Background())

	assertError(t, entryAt(t, r, 2), "supplier", CodeNoPermission)
	if len(env.catalog.calls) != 0 {
		t.Errorf("catalog writes = %v, want none", env.catalog.calls)
	}
	if r.TotalSavedCount() != 0 {
		t.Errorf("TotalSavedCount = %d, want 0", r.TotalSavedCount())
	}
}

// ====================================================================
// Units and formats
// ====================================================================

func TestValidate_UnitsAndFormats(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		field string
		code  ErrorCode
	}{
		{"units missing", "Acme,Apple Box,,Fruit,,kg,,3.50,10,,,", "units", CodeRequired},
		{"unknown unit type", "Acme,Apple Box,,Fruit,1,bushel,,3.50,10,,,", "unit_type", CodeInvalid},
		{"neither unit type nor name", "Acme,Apple Box,,Fruit,1,,,3.50,10,,,", "unit_type", CodeRequired},
		{"weight units not numeric", "Acme,Apple Box,,Fruit,one,kg,,3.50,10,,,", "units", CodeInvalid},
		{"price not numeric", "Acme,Apple Box,,Fruit,1,kg,,cheap,10,,,", "price", CodeInvalid},
		{"price negative", "Acme,Apple Box,,Fruit,1,kg,,-1,10,,,", "price", CodeInvalid},
		{"on hand fractional", "Acme,Apple Box,,Fruit,1,kg,,3.50,1.5,,,", "on_hand", CodeInvalid},
		{"on demand not boolean", "Acme,Apple Box,,Fruit,1,kg,,3.50,10,maybe,,", "on_demand", CodeInvalid},
		{"name missing", "Acme,,,Fruit,1,kg,,3.50,10,,,", "name", CodeRequired},
		{"category missing", "Acme,Apple Box,,,1,kg,,3.50,10,,,", "category", CodeRequired},
		{"category unknown", "Acme,Apple Box,,Dairy,1,kg,,3.50,10,,,", "category", CodeNotFound},
		{"tax category unknown", "Acme,Apple Box,,Fruit,1,kg,,3.50,10,,VAT,", "tax_category", CodeNotFound},
		{"shipping category unknown", "Acme,Apple Box,,Fruit,1,kg,,3.50,10,,,Frozen", "shipping_category", CodeNotFound},
		{"price missing", "Acme,Apple Box,,Fruit,1,kg,,,10,,,", "price", CodeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			r := env.open(t, nil, catalogHeader, tt.row)
			r.ValidateEntries(context.Background())

			e := entryAt(t, r, 2)
			assertError(t, e, tt.field, tt.code)
			assertValidatesAs(t, e, "")
		})
	}
}

func TestValidate_BlankOnHandIsCoerced(t *testing.T) {
	env := newTestEnv()
	r := env.open(t, nil,
		catalogHeader,
		"Acme,Apple Box,,Fruit,1,kg,,3.50,,yes,GST,Chilled",
	)
	r.ValidateEntries(context.Background())

	e := entryAt(t, r, 2)
	assertValidatesAs(t, e, "new_product")
	if e.OnHand != 0 || !e.OnHandNil {
		t.Errorf("OnHand = %d, OnHandNil = %v; want 0, true", e.OnHand, e.OnHandNil)
	}
	if !e.OnDemand || e.TaxCategoryID != 11 || e.ShippingCategoryID != 21 {
		t.Errorf("derived fields = %+v", e)
	}
}

func TestValidate_ActiveDefaultSuppressesRecordError(t *testing.T) {
	env := newTestEnv()
	settings := mustSettings(t, `{"settings": {"1": {"defaults": {
		"price": {"active": true, "mode": "overwrite_empty", "value": "2.00"}
	}}}}`)
	r := env.open(t, settings,
		catalogHeader,
		"Acme,Apple Box,,Fruit,1,kg,,,10,,,",
	)
	r.ValidateEntries(context.Background())

	assertValidatesAs(t, entryAt(t, r, 2), "new_product")
}

// ====================================================================
// Catalog classification
// ====================================================================

func TestValidate_DeduplicatesNewProducts(t *testing.T) {
	env := newTestEnv()
	r := env.open(t, nil,
		catalogHeader,
		"Acme,Apple Box,Small,Fruit,1,kg,,3.50,10,,,",
		"Acme,Apple Box,Large,Fruit,2,kg,,6.00,5,,,",
		"Acme,Apple Box,Huge,Fruit,5,kg,,12.00,1,,,",
		"Acme,Pear Box,,Fruit,1,kg,,4.00,3,,,",
	)
	r.ValidateEntries(context.Background())

	first := entryAt(t, r, 2)
	assertValidatesAs(t, first, "new_product")
	pending := first.Classification().(NewProduct).Product

	for _, line := range []int{3, 4} {
		e := entryAt(t, r, line)
		assertValidatesAs(t, e, "new_variant")
		nv, ok := e.Classification().(NewVariant)
		if !ok || nv.Product != pending {
			t.Errorf("line %d should be a variant of the product pending on line 2", line)
		}
	}
	assertValidatesAs(t, entryAt(t, r, 5), "new_product")
}

func TestValidate_InvalidFirstRowDoesNotClaimProduct(t *testing.T) {
	env := newTestEnv()
	r := env.open(t, nil,
		catalogHeader,
		"Acme,Apple Box,Small,Fruit,1,kg,,bad,10,,,",
		"Acme,Apple Box,Large,Fruit,2,kg,,6.00,5,,,",
	)
	r.ValidateEntries(context.Background())

	assertValidatesAs(t, entryAt(t, r, 2), "")
	assertValidatesAs(t, entryAt(t, r, 3), "new_product")
}

func TestValidate_VariantMatching(t *testing.T) {
	env := newTestEnv()
	product := env.catalog.seedProduct(1, "Apple Box",
		Variant{DisplayName: "", UnitValue: dec("1000"), OnHand: 4},
		Variant{DisplayName: "Large", UnitValue: dec("2000"), OnHand: 2},
	)

	r := env.open(t, nil,
		catalogHeader,
		"Acme,Apple Box,,Fruit,1,kg,,3.50,10,,,",       // blank matches blank, 1kg == 1000g
		"Acme,Apple Box,,Fruit,1000,g,,3.50,10,,,",     // same value in other units
		"Acme,Apple Box,Small,Fruit,1,kg,,3.50,10,,,",  // display name differs
		"Acme,Apple Box,Large,Fruit,2,kg,,6.00,10,,,",  // named match
		"Acme,Apple Box,Large,Fruit,2.5,kg,,6.00,10,,,", // same name other size
	)
	r.ValidateEntries(context.Background())

	for line, want := range map[int]string{
		2: "existing_variant",
		3: "existing_variant",
		4: "new_variant",
		5: "existing_variant",
		6: "new_variant",
	} {
		assertValidatesAs(t, entryAt(t, r, line), want)
	}

	ev := entryAt(t, r, 2).Classification().(ExistingVariant)
	if ev.Variant.ID != product.Variants[0].ID {
		t.Errorf("matched variant %d, want %d", ev.Variant.ID, product.Variants[0].ID)
	}
	nv := entryAt(t, r, 4).Classification().(NewVariant)
	if nv.Product.ID != product.ID || nv.Variant.ProductID != product.ID {
		t.Errorf("new variant attached to product %d, want %d", nv.Product.ID, product.ID)
	}
}

// ====================================================================
// Inventory classification
// ====================================================================

const inventoryHeader = "supplier,producer,name,display_name,units,unit_type,price,on_hand"

func inventorySettings(t *testing.T) *Settings {
	t.Helper()
	return mustSettings(t, `{"settings": {"3": {"import_into": "inventories"}}}`)
}

func TestValidate_QuotedNameMatchesProduct(t *testing.T) {
	env := newTestEnv()
	env.catalog.seedProduct(1, "'Ohana Farm' Box", Variant{UnitValue: dec("1000"), OnHand: 4})

	r := env.open(t, nil,
		catalogHeader,
		"Acme,'Ohana Farm' Box,,Fruit,1,kg,,3.50,10,,,",
	)
	r.ValidateEntries(context.Background())

	assertValidatesAs(t, entryAt(t, r, 2), "existing_variant")
}

func TestValidate_InventoryItems(t *testing.T) {
	env := newTestEnv()
	carrots := env.catalog.seedProduct(4, "Carrots",
		Variant{DisplayName: "", UnitValue: dec("500")},
		Variant{DisplayName: "Bunch", UnitValue: dec("1")},
	)
	env.catalog.overrides = append(env.catalog.overrides, &VariantOverride{
		ID: 900, VariantID: carrots.Variants[1].ID, HubID: 3, CountOnHand: 7,
	})
	env.catalog.seedProduct(5, "Beets", Variant{UnitValue: dec("500")})

	r := env.open(t, inventorySettings(t),
		inventoryHeader,
		"Hub,Farm,Carrots,,500,g,2.00,12",
		"Hub,Farm,Carrots,Bunch,1,,1.50,3",
		"Hub,Farm,Carrots,,750,g,2.00,12",
		"Hub,Farm,Parsnips,,500,g,2.00,12",
		"Hub,Rival,Beets,,500,g,2.00,12",
		"Hub,,Carrots,,500,g,2.00,12",
		"Hub,Nobody,Carrots,,500,g,2.00,12",
	)
	r.ValidateEntries(context.Background())

	assertValidatesAs(t, entryAt(t, r, 2), "new_inventory_item")
	assertValidatesAs(t, entryAt(t, r, 3), "existing_inventory_item")
	assertError(t, entryAt(t, r, 4), "product", CodeNotFound)
	assertError(t, entryAt(t, r, 5), "name", CodeNotFound)
	assertError(t, entryAt(t, r, 6), "producer", CodeNoPermission)
	assertError(t, entryAt(t, r, 7), "producer", CodeRequired)
	assertError(t, entryAt(t, r, 8), "producer", CodeNotFound)

	o := entryAt(t, r, 3).Classification().(ExistingInventoryItem).Override
	if o.ID != 900 || o.CountOnHand != 3 || !o.Price.Decimal.Equal(dec("1.5")) {
		t.Errorf("override = %+v", o)
	}
	if !o.ImportDate.Equal(testImportDate) {
		t.Errorf("ImportDate = %v, want %v", o.ImportDate, testImportDate)
	}
}

func TestValidate_AdminBypassesInventoryPermission(t *testing.T) {
	env := newTestEnv()
	env.catalog.seedProduct(5, "Beets", Variant{UnitValue: dec("500")})

	src := Source{Name: "import.csv", Reader: strings.NewReader(inventoryHeader + "\nHub,Rival,Beets,,500,g,2.00,12")}
	r := env.importer.Open(context.Background(), src, User{ID: 1, Admin: true}, inventorySettings(t))
	r.ValidateEntries(context.Background())

	assertValidatesAs(t, entryAt(t, r, 2), "new_inventory_item")
}

// ====================================================================
// Lookups
// ====================================================================

func TestValidate_LookupsAreMemoized(t *testing.T) {
	env := newTestEnv()
	r := env.open(t, nil,
		catalogHeader,
		"Acme,A,,Fruit,1,kg,,1,1,,,",
		"Acme,B,,Fruit,1,kg,,1,1,,,",
		"Nobody,C,,Fruit,1,kg,,1,1,,,",
	)
	r.ValidateEntries(context.Background())

	if env.lookups.enterpriseCalls != 1 {
		t.Errorf("enterprise lookups = %d, want 1", env.lookups.enterpriseCalls)
	}
}

func TestValidate_LookupFailureIsRowError(t *testing.T) {
	env := newTestEnv()
	env.lookups.err = errors.New("dial tcp: connection refused")
	r := env.open(t, nil,
		catalogHeader,
		"Acme,A,,Fruit,1,kg,,1,1,,,",
		"Acme,B,,Fruit,1,kg,,1,1,,,",
	)
	r.ValidateEntries(context.Background())

	for _, e := range r.Entries() {
		assertError(t, e, "supplier", CodeLookup)
	}
	if env.lookups.enterpriseCalls != 1 {
		t.Errorf("failed lookup retried %d times, want 1 call", env.lookups.enterpriseCalls)
	}
}
