package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

type productKey struct {
	supplierID int64
	name       string
}

// EntryValidator classifies entries against the catalog.
//
// Entries must be validated in row order: the first row naming a product
// that does not exist yet becomes its new_product, later rows with the same
// supplier and name become new variants of that pending product.
type EntryValidator struct {
	catalog    Catalog
	data       *SpreadsheetData
	perms      PermissionMaps
	settings   *Settings
	importDate time.Time

	alreadyCreated map[productKey]*Product
}

// NewEntryValidator creates a validator for one run.
func NewEntryValidator(catalog Catalog, data *SpreadsheetData, perms PermissionMaps, settings *Settings, importDate time.Time) *EntryValidator {
	return &EntryValidator{
		catalog:        catalog,
		data:           data,
		perms:          perms,
		settings:       settings,
		importDate:     importDate,
		alreadyCreated: make(map[productKey]*Product),
	}
}

// Validate classifies e or attaches the reasons it cannot be saved.
func (v *EntryValidator) Validate(ctx context.Context, e *Entry) {
	supplierOK := v.validateSupplier(ctx, e)
	target := v.settings.For(e.SupplierID).Target()

	v.validateUnits(e, target)
	v.validateFormats(e)

	if !supplierOK {
		return
	}

	if target == TargetInventory {
		v.validateInventoryItem(ctx, e)
		return
	}
	v.validateCatalogItem(ctx, e)
}

// ====================================================================
// Phase 1
// ====================================================================

func (v *EntryValidator) validateSupplier(ctx context.Context, e *Entry) bool {
	name := e.Attrs.Supplier
	if isBlank(name) {
		e.AddError("supplier", CodeRequired, msgBlank)
		return false
	}

	id, found, err := v.data.SupplierID(ctx, name)
	if err != nil {
		e.AddError("supplier", CodeLookup, MapError(err).Message)
		return false
	}
	if !found {
		e.AddError("supplier", CodeNotFound, msgNotFound)
		return false
	}
	if _, ok := v.perms.Editable[name]; !ok {
		e.AddError("supplier", CodeNoPermission, msgNoPermission)
		return false
	}

	e.SupplierID = id
	return true
}

func (v *EntryValidator) validateUnits(e *Entry, target ImportTarget) {
	a := e.Attrs
	e.Unit = ConvertUnits(a.Units, a.UnitType, a.VariantUnitName)

	if isBlank(a.Units) {
		e.AddError("units", CodeRequired, msgBlank)
		return
	}
	if !isBlank(a.UnitType) && !KnownUnitType(a.UnitType) {
		e.AddError("unit_type", CodeInvalid, msgInvalidUnit)
		return
	}

	n, numeric := ParseDecimal(a.Units)
	if !isBlank(a.UnitType) && !numeric {
		e.AddError("units", CodeInvalid, msgInvalidNum)
		return
	}
	if e.Unit.Assigned {
		e.UnitValue = e.Unit.Value
		return
	}
	if target == TargetCatalog {
		e.AddError("unit_type", CodeRequired, msgUnitMissing)
		return
	}

	// Inventory rows may omit unit fields and match on the plain value.
	if !numeric {
		e.AddError("units", CodeInvalid, msgInvalidNum)
		return
	}
	e.UnitValue = n
}

func (v *EntryValidator) validateFormats(e *Entry) {
	a := e.Attrs

	if isBlank(a.Name) {
		e.AddError("name", CodeRequired, msgBlank)
	}

	if !isBlank(a.Price) {
		d, ok := ParseDecimal(a.Price)
		switch {
		case !ok:
			e.AddError("price", CodeInvalid, msgInvalidNum)
		case d.IsNegative():
			e.AddError("price", CodeInvalid, msgNotNegative)
		default:
			e.Price.Decimal, e.Price.Valid = d, true
		}
	}

	if isBlank(a.OnHand) {
		e.OnHand = 0
		e.OnHandNil = true
	} else if n, ok := ParseInt(a.OnHand); ok {
		e.OnHand = n
	} else {
		e.AddError("on_hand", CodeInvalid, msgInvalidInt)
	}

	if !isBlank(a.OnDemand) {
		b, ok := ParseBool(a.OnDemand)
		if !ok {
			e.AddError("on_demand", CodeInvalid, msgInvalidBool)
		}
		e.OnDemand = b
	}
}

// ====================================================================
// Phase 2: inventory rows
// ====================================================================

func (v *EntryValidator) validateInventoryItem(ctx context.Context, e *Entry) {
	if !v.validateProducer(ctx, e) || e.HasErrors() {
		return
	}

	product, err := v.catalog.FindProduct(ctx, e.ProducerID, strings.TrimSpace(e.Attrs.Name))
	if err != nil {
		e.AddError("name", CodeLookup, MapError(err).Message)
		return
	}
	if product == nil {
		e.AddError("name", CodeNotFound, msgNoProduct)
		return
	}

	variant := matchVariant(product.Variants, e)
	if variant == nil {
		e.AddError("product", CodeNotFound, msgNoVariant)
		return
	}

	override, err := v.catalog.FindOverride(ctx, variant.ID, e.SupplierID)
	if err != nil {
		e.AddError("product", CodeLookup, MapError(err).Message)
		return
	}
	existing := override != nil
	if !existing {
		override = &VariantOverride{VariantID: variant.ID, HubID: e.SupplierID}
	}
	e.fillOverride(override, v.importDate)
	v.checkRecord(e, override.Validate())

	if existing {
		e.classify(ExistingInventoryItem{Override: override})
	} else {
		e.classify(NewInventoryItem{Override: override})
	}
}

func (v *EntryValidator) validateProducer(ctx context.Context, e *Entry) bool {
	name := e.Attrs.Producer
	if isBlank(name) {
		e.AddError("producer", CodeRequired, msgBlank)
		return false
	}

	id, found, err := v.data.ProducerID(ctx, name)
	if err != nil {
		e.AddError("producer", CodeLookup, MapError(err).Message)
		return false
	}
	if !found {
		e.AddError("producer", CodeNotFound, msgNotFound)
		return false
	}
	if !v.perms.CanListInventory(e.SupplierID, id) {
		e.AddError("producer", CodeNoPermission, msgNoInventory)
		return false
	}

	e.ProducerID = id
	return true
}

// ====================================================================
// Phase 2: catalog rows
// ====================================================================

func (v *EntryValidator) validateCatalogItem(ctx context.Context, e *Entry) {
	v.validateCategories(ctx, e)
	if e.HasErrors() {
		return
	}

	name := strings.TrimSpace(e.Attrs.Name)
	product, err := v.catalog.FindProduct(ctx, e.SupplierID, name)
	if err != nil {
		e.AddError("name", CodeLookup, MapError(err).Message)
		return
	}

	if product == nil {
		key := productKey{supplierID: e.SupplierID, name: name}
		if pending, ok := v.alreadyCreated[key]; ok {
			variant := e.newVariant(v.importDate)
			v.checkRecord(e, variant.Validate())
			e.classify(NewVariant{Product: pending, Variant: variant})
			return
		}

		p := e.newProduct(v.importDate)
		v.checkRecord(e, p.Validate())
		e.classify(NewProduct{Product: p})
		if e.Classification() != nil {
			v.alreadyCreated[key] = p
		}
		return
	}

	if variant := matchVariant(product.Variants, e); variant != nil {
		e.fillVariant(variant, v.importDate)
		v.checkRecord(e, variant.Validate())
		e.classify(ExistingVariant{Variant: variant})
		return
	}

	variant := e.newVariant(v.importDate)
	variant.ProductID = product.ID
	v.checkRecord(e, variant.Validate())
	e.classify(NewVariant{Product: product, Variant: variant})
}

func (v *EntryValidator) validateCategories(ctx context.Context, e *Entry) {
	a := e.Attrs

	if isBlank(a.Category) {
		e.AddError("category", CodeRequired, msgBlank)
	} else if id, ok := v.resolve(ctx, e, "category", a.Category, v.data.CategoryID); ok {
		e.CategoryID = id
	}

	if !isBlank(a.TaxCategory) {
		if id, ok := v.resolve(ctx, e, "tax_category", a.TaxCategory, v.data.TaxCategoryID); ok {
			e.TaxCategoryID = id
		}
	}
	if !isBlank(a.ShippingCategory) {
		if id, ok := v.resolve(ctx, e, "shipping_category", a.ShippingCategory, v.data.ShippingCategoryID); ok {
			e.ShippingCategoryID = id
		}
	}
}

func (v *EntryValidator) resolve(ctx context.Context, e *Entry, field, name string,
	lookup func(context.Context, string) (int64, bool, error)) (int64, bool) {
	id, found, err := lookup(ctx, name)
	if err != nil {
		e.AddError(field, CodeLookup, MapError(err).Message)
		return 0, false
	}
	if !found {
		e.AddError(field, CodeNotFound, msgNotFound)
		return 0, false
	}
	return id, true
}

// checkRecord copies a record's own validation failures onto the entry,
// skipping fields a supplier default will fill at save time.
func (v *EntryValidator) checkRecord(e *Entry, err error) {
	var rie *RecordInvalidError
	if !errors.As(err, &rie) {
		return
	}
	ss := v.settings.For(e.SupplierID)
	for _, ve := range rie.Errors {
		if _, ok := ss.ActiveDefault(DefaultField(ve.Field)); ok {
			continue
		}
		if e.HasErrorOn(ve.Field) {
			continue
		}
		e.AddError(ve.Field, ve.Code, ve.Message)
	}
}

// matchVariant finds the variant with the entry's display name and unit
// value. A blank display name only matches a blank one.
func matchVariant(variants []*Variant, e *Entry) *Variant {
	for _, v := range variants {
		if v.DisplayName == e.Attrs.DisplayName && v.UnitValue.Equal(e.UnitValue) {
			return v
		}
	}
	return nil
}

// ====================================================================
// Record building
// ====================================================================

func (e *Entry) newProduct(importDate time.Time) *Product {
	p := &Product{
		SupplierID:       e.SupplierID,
		Name:             strings.TrimSpace(e.Attrs.Name),
		CategoryID:       e.CategoryID,
		VariantUnit:      e.Unit.VariantUnit,
		VariantUnitScale: e.Unit.Scale,
		VariantUnitName:  e.Attrs.VariantUnitName,
	}
	e.fillProduct(p)
	p.Variants = []*Variant{e.newVariant(importDate)}
	return p
}

func (e *Entry) newVariant(importDate time.Time) *Variant {
	v := &Variant{}
	e.fillVariant(v, importDate)
	return v
}

// fillProduct copies the product-level fields a default may change.
func (e *Entry) fillProduct(p *Product) {
	p.Description = e.Attrs.Description
	p.ShippingCategoryID = e.ShippingCategoryID
}

func (e *Entry) fillVariant(v *Variant, importDate time.Time) {
	v.DisplayName = e.Attrs.DisplayName
	if e.Attrs.SKU != "" {
		v.SKU = e.Attrs.SKU
	}
	v.UnitValue = e.UnitValue
	v.Price = e.Price
	v.OnHand = e.OnHand
	v.OnDemand = e.OnDemand
	if e.TaxCategoryID != 0 {
		v.TaxCategoryID = e.TaxCategoryID
	}
	v.ImportDate = importDate
}

func (e *Entry) fillOverride(o *VariantOverride, importDate time.Time) {
	o.Price = e.Price
	o.CountOnHand = e.OnHand
	o.OnDemand = e.OnDemand
	o.ImportDate = importDate
}
