package core

import (
	"context"
	"sort"
)

// lazyIndex is a name -> id index loaded on first use and kept for the run.
// A load failure is remembered too, so a broken lookup is queried once.
type lazyIndex struct {
	load   func(ctx context.Context) (map[string]int64, error)
	loaded bool
	index  map[string]int64
	err    error
}

func (l *lazyIndex) lookup(ctx context.Context, name string) (int64, bool, error) {
	if !l.loaded {
		l.index, l.err = l.load(ctx)
		l.loaded = true
	}
	if l.err != nil {
		return 0, false, l.err
	}
	id, ok := l.index[name]
	return id, ok, nil
}

// SpreadsheetData holds the lookup indices for one run.
type SpreadsheetData struct {
	suppliers          lazyIndex
	producers          lazyIndex
	categories         lazyIndex
	taxCategories      lazyIndex
	shippingCategories lazyIndex
}

// NewSpreadsheetData prepares indices for the names used by entries.
// Nothing is queried until the first lookup.
func NewSpreadsheetData(entries []*Entry, src LookupSource) *SpreadsheetData {
	supplierNames := distinct(entries, func(a Attributes) string { return a.Supplier })
	producerNames := distinct(entries, func(a Attributes) string { return a.Producer })

	return &SpreadsheetData{
		suppliers: lazyIndex{load: func(ctx context.Context) (map[string]int64, error) {
			return src.EnterprisesByName(ctx, supplierNames)
		}},
		producers: lazyIndex{load: func(ctx context.Context) (map[string]int64, error) {
			return src.EnterprisesByName(ctx, producerNames)
		}},
		categories:         lazyIndex{load: src.Categories},
		taxCategories:      lazyIndex{load: src.TaxCategories},
		shippingCategories: lazyIndex{load: src.ShippingCategories},
	}
}

func (d *SpreadsheetData) SupplierID(ctx context.Context, name string) (int64, bool, error) {
	return d.suppliers.lookup(ctx, name)
}

func (d *SpreadsheetData) ProducerID(ctx context.Context, name string) (int64, bool, error) {
	return d.producers.lookup(ctx, name)
}

func (d *SpreadsheetData) CategoryID(ctx context.Context, name string) (int64, bool, error) {
	return d.categories.lookup(ctx, name)
}

func (d *SpreadsheetData) TaxCategoryID(ctx context.Context, name string) (int64, bool, error) {
	return d.taxCategories.lookup(ctx, name)
}

func (d *SpreadsheetData) ShippingCategoryID(ctx context.Context, name string) (int64, bool, error) {
	return d.shippingCategories.lookup(ctx, name)
}

func distinct(entries []*Entry, pick func(Attributes) string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		n := pick(e.Attrs)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
