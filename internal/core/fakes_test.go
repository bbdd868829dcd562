package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// ====================================================================
// In-memory collaborators
// ====================================================================

// memCatalog stores records in memory. Reads return copies so that only
// explicit saves change stored state, as with a database.
type memCatalog struct {
	nextID    int64
	products  []*Product
	overrides []*VariantOverride
	visible   map[[2]int64]bool

	createErr      error
	saveVariantErr error
	inventoryErr   map[int64]error
	calls          []string
}

func newMemCatalog() *memCatalog {
	return &memCatalog{nextID: 100, visible: make(map[[2]int64]bool)}
}

func (c *memCatalog) id() int64 {
	c.nextID++
	return c.nextID
}

func (c *memCatalog) FindProduct(_ context.Context, supplierID int64, name string) (*Product, error) {
	for _, p := range c.products {
		if p.SupplierID == supplierID && p.Name == name {
			cp := *p
			cp.Variants = nil
			for _, v := range p.Variants {
				vc := *v
				cp.Variants = append(cp.Variants, &vc)
			}
			return &cp, nil
		}
	}
	return nil, nil
}

func (c *memCatalog) FindOverride(_ context.Context, variantID, hubID int64) (*VariantOverride, error) {
	for _, o := range c.overrides {
		if o.VariantID == variantID && o.HubID == hubID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (c *memCatalog) CreateProduct(_ context.Context, p *Product) error {
	c.calls = append(c.calls, "create_product:"+p.Name)
	if c.createErr != nil {
		return c.createErr
	}
	p.ID = c.id()
	stored := *p
	stored.Variants = nil
	for _, v := range p.Variants {
		v.ID = c.id()
		v.ProductID = p.ID
		vc := *v
		stored.Variants = append(stored.Variants, &vc)
	}
	c.products = append(c.products, &stored)
	return nil
}

func (c *memCatalog) SaveVariant(_ context.Context, v *Variant) error {
	if c.saveVariantErr != nil {
		return c.saveVariantErr
	}
	p := c.product(v.ProductID)
	if p == nil {
		return errors.New("violates foreign key constraint \"variants_product_id_fkey\"")
	}
	if v.ID == 0 {
		v.ID = c.id()
		vc := *v
		p.Variants = append(p.Variants, &vc)
		return nil
	}
	for i, sv := range p.Variants {
		if sv.ID == v.ID {
			vc := *v
			p.Variants[i] = &vc
			return nil
		}
	}
	return errors.New("variant not found")
}

// SaveInventoryItem writes the override and its visibility together; a
// failure configured for the variant leaves both untouched.
func (c *memCatalog) SaveInventoryItem(_ context.Context, o *VariantOverride) error {
	if err := c.inventoryErr[o.VariantID]; err != nil {
		return err
	}
	if o.ID == 0 {
		o.ID = c.id()
		oc := *o
		c.overrides = append(c.overrides, &oc)
		c.visible[[2]int64{o.VariantID, o.HubID}] = true
		return nil
	}
	for i, so := range c.overrides {
		if so.ID == o.ID {
			oc := *o
			c.overrides[i] = &oc
			c.visible[[2]int64{o.VariantID, o.HubID}] = true
			return nil
		}
	}
	return errors.New("override not found")
}

func (c *memCatalog) CountItems(_ context.Context, supplierID int64, target ImportTarget) (int64, error) {
	var n int64
	if target == TargetInventory {
		for _, o := range c.overrides {
			if o.HubID == supplierID {
				n++
			}
		}
		return n, nil
	}
	for _, p := range c.products {
		if p.SupplierID == supplierID {
			n += int64(len(p.Variants))
		}
	}
	return n, nil
}

func (c *memCatalog) ResetStock(_ context.Context, target ImportTarget, supplierIDs, keepIDs []int64) (int64, error) {
	suppliers := make(map[int64]bool)
	for _, id := range supplierIDs {
		suppliers[id] = true
	}
	keep := make(map[int64]bool)
	for _, id := range keepIDs {
		keep[id] = true
	}

	var n int64
	if target == TargetInventory {
		for _, o := range c.overrides {
			if suppliers[o.HubID] && !keep[o.ID] {
				o.CountOnHand = 0
				n++
			}
		}
		return n, nil
	}
	for _, p := range c.products {
		if !suppliers[p.SupplierID] {
			continue
		}
		for _, v := range p.Variants {
			if !keep[v.ID] {
				v.OnHand = 0
				n++
			}
		}
	}
	return n, nil
}

func (c *memCatalog) product(id int64) *Product {
	for _, p := range c.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (c *memCatalog) variant(id int64) *Variant {
	for _, p := range c.products {
		for _, v := range p.Variants {
			if v.ID == id {
				return v
			}
		}
	}
	return nil
}

// seedProduct stores a weight product owned by supplierID with the given
// variants. Variants without a price cost 1.
func (c *memCatalog) seedProduct(supplierID int64, name string, variants ...Variant) *Product {
	p := &Product{
		ID:          c.id(),
		SupplierID:  supplierID,
		Name:        name,
		CategoryID:  1,
		VariantUnit: UnitWeight,
		VariantUnitScale: decimal.NullDecimal{
			Decimal: decimal.NewFromInt(1), Valid: true,
		},
	}
	for i := range variants {
		v := variants[i]
		v.ID = c.id()
		v.ProductID = p.ID
		if !v.Price.Valid {
			v.Price = decimal.NewNullDecimal(decimal.NewFromInt(1))
		}
		p.Variants = append(p.Variants, &v)
	}
	c.products = append(c.products, p)
	return p
}

type memLookups struct {
	enterprises map[string]int64
	categories  map[string]int64
	tax         map[string]int64
	shipping    map[string]int64

	enterpriseCalls int
	err             error
}

func newMemLookups() *memLookups {
	return &memLookups{
		enterprises: map[string]int64{"Acme": 1, "Hub": 3, "Farm": 4, "Rival": 5},
		categories:  map[string]int64{"Fruit": 1, "Vegetables": 2},
		tax:         map[string]int64{"GST": 11},
		shipping:    map[string]int64{"Chilled": 21},
	}
}

func (l *memLookups) EnterprisesByName(_ context.Context, names []string) (map[string]int64, error) {
	l.enterpriseCalls++
	if l.err != nil {
		return nil, l.err
	}
	out := make(map[string]int64)
	for _, n := range names {
		if id, ok := l.enterprises[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func (l *memLookups) Categories(context.Context) (map[string]int64, error) {
	return l.categories, l.err
}

func (l *memLookups) TaxCategories(context.Context) (map[string]int64, error) {
	return l.tax, l.err
}

func (l *memLookups) ShippingCategories(context.Context) (map[string]int64, error) {
	return l.shipping, l.err
}

type memPermissions struct {
	editable  map[string]int64
	inventory map[int64][]int64
	err       error
}

func newMemPermissions() *memPermissions {
	return &memPermissions{
		editable:  map[string]int64{"Acme": 1, "Hub": 3},
		inventory: map[int64][]int64{3: {3, 4}},
	}
}

func (p *memPermissions) EditableEnterprises(context.Context, User) (map[string]int64, error) {
	return p.editable, p.err
}

func (p *memPermissions) InventoryPermissions(context.Context, User) (map[int64][]int64, error) {
	return p.inventory, p.err
}

// ====================================================================
// Helpers
// ====================================================================

var testImportDate = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	catalog  *memCatalog
	lookups  *memLookups
	perms    *memPermissions
	importer *Importer
}

func newTestEnv() *testEnv {
	env := &testEnv{
		catalog: newMemCatalog(),
		lookups: newMemLookups(),
		perms:   newMemPermissions(),
	}
	env.importer = NewImporter(env.catalog, env.lookups, env.perms)
	env.importer.now = func() time.Time { return testImportDate }
	return env
}

// open starts a run over CSV text given as lines.
func (env *testEnv) open(t *testing.T, settings *Settings, lines ...string) *Run {
	t.Helper()
	src := Source{Name: "import.csv", Reader: strings.NewReader(strings.Join(lines, "\n"))}
	return env.importer.Open(context.Background(), src, User{ID: 9}, settings)
}

func mustSettings(t *testing.T, s string) *Settings {
	t.Helper()
	settings, err := ParseSettings(s)
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	return settings
}

func entryAt(t *testing.T, r *Run, line int) *Entry {
	t.Helper()
	for _, e := range r.Entries() {
		if e.LineNumber == line {
			return e
		}
	}
	t.Fatalf("no entry on line %d", line)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
