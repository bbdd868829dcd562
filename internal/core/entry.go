package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Attributes holds the raw spreadsheet cells an entry understands.
// Columns outside this set are ignored.
type Attributes struct {
	Supplier         string
	Producer         string
	SKU              string
	Name             string
	DisplayName      string
	Category         string
	Description      string
	Units            string
	UnitType         string
	VariantUnitName  string
	Price            string
	OnHand           string
	OnDemand         string
	TaxCategory      string
	ShippingCategory string
}

// attributeColumn is one recognised column. Text columns keep quotes and
// a leading '=' as typed; value columns have spreadsheet artifacts removed.
type attributeColumn struct {
	name  string
	text  bool
	field func(*Attributes) *string
}

// attributeColumns is the allow-list of columns, in display order.
var attributeColumns = []attributeColumn{
	{"supplier", true, func(a *Attributes) *string { return &a.Supplier }},
	{"producer", true, func(a *Attributes) *string { return &a.Producer }},
	{"sku", false, func(a *Attributes) *string { return &a.SKU }},
	{"name", true, func(a *Attributes) *string { return &a.Name }},
	{"display_name", true, func(a *Attributes) *string { return &a.DisplayName }},
	{"category", true, func(a *Attributes) *string { return &a.Category }},
	{"description", true, func(a *Attributes) *string { return &a.Description }},
	{"units", false, func(a *Attributes) *string { return &a.Units }},
	{"unit_type", true, func(a *Attributes) *string { return &a.UnitType }},
	{"variant_unit_name", true, func(a *Attributes) *string { return &a.VariantUnitName }},
	{"price", false, func(a *Attributes) *string { return &a.Price }},
	{"on_hand", false, func(a *Attributes) *string { return &a.OnHand }},
	{"on_demand", false, func(a *Attributes) *string { return &a.OnDemand }},
	{"tax_category", true, func(a *Attributes) *string { return &a.TaxCategory }},
	{"shipping_category", true, func(a *Attributes) *string { return &a.ShippingCategory }},
}

// AttributeColumns returns the recognised column names in display order.
func AttributeColumns() []string {
	cols := make([]string, len(attributeColumns))
	for i, c := range attributeColumns {
		cols[i] = c.name
	}
	return cols
}

// ReadAttributes picks the recognised columns out of a data row.
func ReadAttributes(header HeaderIndex, row []string) Attributes {
	var a Attributes
	for _, c := range attributeColumns {
		i, ok := header[c.name]
		if !ok || i >= len(row) {
			continue
		}
		if c.text {
			*c.field(&a) = strings.TrimSpace(row[i])
		} else {
			*c.field(&a) = CleanCell(row[i])
		}
	}
	return a
}

// Map returns the non-blank attributes keyed by column name.
func (a Attributes) Map() map[string]string {
	m := make(map[string]string)
	for _, c := range attributeColumns {
		if v := *c.field(&a); v != "" {
			m[c.name] = v
		}
	}
	return m
}

// Get returns the cell for a recognised column.
func (a Attributes) Get(column string) string {
	for _, c := range attributeColumns {
		if c.name == column {
			return *c.field(&a)
		}
	}
	return ""
}

// Entry is one data row of an import and everything derived from it.
//
// An entry carrying any error never carries a classification.
type Entry struct {
	LineNumber int
	Attrs      Attributes

	SupplierID         int64
	ProducerID         int64
	CategoryID         int64
	TaxCategoryID      int64
	ShippingCategoryID int64

	Unit      UnitFields
	UnitValue decimal.Decimal // Unit.Value, or the parsed units when no unit fields applied

	Price     decimal.NullDecimal
	OnHand    int64
	OnHandNil bool // on_hand cell was blank and coerced to 0
	OnDemand  bool

	classification Classification
	errors         []ValidationError
}

// NewEntry creates an entry for a data row.
func NewEntry(lineNumber int, attrs Attributes) *Entry {
	return &Entry{LineNumber: lineNumber, Attrs: attrs}
}

// AddError records a problem with one column and drops any classification.
func (e *Entry) AddError(field string, code ErrorCode, msg string) {
	e.errors = append(e.errors, ValidationError{
		Field:   field,
		Value:   e.Attrs.Get(field),
		Code:    code,
		Message: msg,
	})
	e.classification = nil
}

// replaceErrors swaps the entry's errors for errs, typically a record's own
// validation messages after a failed save.
func (e *Entry) replaceErrors(errs []ValidationError) {
	e.errors = append([]ValidationError(nil), errs...)
	e.classification = nil
}

// Errors returns the entry's errors in the order they were found.
func (e *Entry) Errors() []ValidationError { return e.errors }

// HasErrors reports whether any error was recorded.
func (e *Entry) HasErrors() bool { return len(e.errors) > 0 }

// HasErrorOn reports whether field already has an error.
func (e *Entry) HasErrorOn(field string) bool {
	for _, ve := range e.errors {
		if ve.Field == field {
			return true
		}
	}
	return false
}

// ErrorMap returns one message per field; repeated messages are joined.
func (e *Entry) ErrorMap() map[string]string {
	m := make(map[string]string, len(e.errors))
	for _, ve := range e.errors {
		if prev, ok := m[ve.Field]; ok {
			m[ve.Field] = prev + ", " + ve.Message
			continue
		}
		m[ve.Field] = ve.Message
	}
	return m
}

// Classification returns the validator's decision, or nil if invalid.
func (e *Entry) Classification() Classification { return e.classification }

// ValidatesAs returns the classification name, or "" for invalid entries.
func (e *Entry) ValidatesAs() string {
	if e.classification == nil {
		return ""
	}
	return e.classification.ValidatesAs()
}

func (e *Entry) classify(c Classification) {
	if e.HasErrors() {
		return
	}
	e.classification = c
}

// InRange reports whether the entry's line falls within [start, end].
// A zero bound is open.
func (e *Entry) InRange(start, end int) bool {
	if start > 0 && e.LineNumber < start {
		return false
	}
	if end > 0 && e.LineNumber > end {
		return false
	}
	return true
}
