package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog product owned by a supplier.
type Product struct {
	ID                 int64
	SupplierID         int64
	Name               string
	Description        string
	CategoryID         int64
	ShippingCategoryID int64 // 0 when unset
	VariantUnit        string
	VariantUnitScale   decimal.NullDecimal
	VariantUnitName    string

	// Variants holds the product's non-deleted, non-master variants.
	Variants []*Variant
}

// Variant is a sellable unit of a product.
type Variant struct {
	ID            int64
	ProductID     int64
	DisplayName   string
	SKU           string
	UnitValue     decimal.Decimal
	Price         decimal.NullDecimal
	OnHand        int64
	OnDemand      bool
	TaxCategoryID int64 // 0 when unset
	ImportDate    time.Time
}

// VariantOverride is a hub-specific price and stock override of another
// enterprise's variant.
type VariantOverride struct {
	ID          int64
	VariantID   int64
	HubID       int64
	Price       decimal.NullDecimal
	CountOnHand int64
	OnDemand    bool
	ImportDate  time.Time
}

// Validate checks the product and its first variant before creation.
func (p *Product) Validate() error {
	re := &recordErrors{record: "product"}
	if isBlank(p.Name) {
		re.add("name", CodeRequired, msgBlank)
	}
	if p.SupplierID == 0 {
		re.add("supplier", CodeRequired, msgBlank)
	}
	if p.CategoryID == 0 {
		re.add("category", CodeRequired, msgBlank)
	}
	switch p.VariantUnit {
	case UnitWeight, UnitVolume:
		if !p.VariantUnitScale.Valid {
			re.add("unit_type", CodeRequired, msgBlank)
		}
	case UnitItems:
		if isBlank(p.VariantUnitName) {
			re.add("variant_unit_name", CodeRequired, msgBlank)
		}
	default:
		re.add("unit_type", CodeRequired, msgUnitMissing)
	}
	if len(p.Variants) == 0 {
		re.add("base", CodeRequired, "product must have a variant")
	} else {
		re.errs = append(re.errs, p.Variants[0].fieldErrors()...)
	}
	return re.err()
}

// Validate checks the variant before it is created or updated.
func (v *Variant) Validate() error {
	re := &recordErrors{record: "variant", errs: v.fieldErrors()}
	return re.err()
}

func (v *Variant) fieldErrors() []ValidationError {
	re := &recordErrors{}
	if !v.Price.Valid {
		re.add("price", CodeRequired, msgBlank)
	} else if v.Price.Decimal.IsNegative() {
		re.add("price", CodeInvalid, msgNotNegative)
	}
	if !v.UnitValue.IsPositive() {
		re.add("units", CodeInvalid, "must be greater than 0")
	}
	if !v.OnDemand && v.OnHand < 0 {
		re.add("on_hand", CodeInvalid, msgNotNegative)
	}
	return re.errs
}

// Validate checks the override before it is created or updated.
func (o *VariantOverride) Validate() error {
	re := &recordErrors{record: "inventory item"}
	if o.VariantID == 0 {
		re.add("product", CodeRequired, msgBlank)
	}
	if o.HubID == 0 {
		re.add("supplier", CodeRequired, msgBlank)
	}
	if o.Price.Valid && o.Price.Decimal.IsNegative() {
		re.add("price", CodeInvalid, msgNotNegative)
	}
	if !o.OnDemand && o.CountOnHand < 0 {
		re.add("on_hand", CodeInvalid, msgNotNegative)
	}
	return re.err()
}
