package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Counts are the persistence outcomes of a run.
type Counts struct {
	ProductsCreated  int
	VariantsCreated  int
	VariantsUpdated  int
	InventoryCreated int
	InventoryUpdated int
	ProductsReset    int64
}

// TotalSaved is the number of entries that reached a successful save.
func (c Counts) TotalSaved() int {
	return c.ProductsCreated + c.VariantsCreated + c.VariantsUpdated +
		c.InventoryCreated + c.InventoryUpdated
}

// EntryProcessor saves classified entries and keeps the run's counters.
type EntryProcessor struct {
	catalog    Catalog
	settings   *Settings
	logger     *slog.Logger
	importDate time.Time

	counts     Counts
	updatedIDs []int64
	touched    TouchedIDs
	existing   map[int64]int64
}

// NewEntryProcessor creates a processor. touched carries the ids saved by
// earlier stages of the same import; it is only ever appended to.
func NewEntryProcessor(catalog Catalog, settings *Settings, logger *slog.Logger, importDate time.Time, touched TouchedIDs) *EntryProcessor {
	return &EntryProcessor{
		catalog:    catalog,
		settings:   settings,
		logger:     logger,
		importDate: importDate,
		updatedIDs: touched.All(),
		touched:    touched.clone(),
	}
}

// Counts returns the counters so far.
func (p *EntryProcessor) Counts() Counts { return p.counts }

// UpdatedIDs returns every id touched, including those passed in, in the
// order they were saved.
func (p *EntryProcessor) UpdatedIDs() []int64 { return p.updatedIDs }

// Touched returns the touched ids split by target.
func (p *EntryProcessor) Touched() TouchedIDs { return p.touched }

func (p *EntryProcessor) touchVariant(id int64) {
	p.updatedIDs = append(p.updatedIDs, id)
	p.touched.Variants = append(p.touched.Variants, id)
}

func (p *EntryProcessor) touchOverride(id int64) {
	p.updatedIDs = append(p.updatedIDs, id)
	p.touched.Overrides = append(p.touched.Overrides, id)
}

// ExistingCounts returns the per-supplier baseline captured before saving.
func (p *EntryProcessor) ExistingCounts() map[int64]int64 { return p.existing }

// CountExistingItems records how many items each supplier in entries owns
// in its import target. It only runs once per processor.
func (p *EntryProcessor) CountExistingItems(ctx context.Context, entries []*Entry) error {
	if p.existing != nil {
		return nil
	}

	var suppliers []int64
	seen := make(map[int64]bool)
	for _, e := range entries {
		if e.SupplierID == 0 || seen[e.SupplierID] {
			continue
		}
		seen[e.SupplierID] = true
		suppliers = append(suppliers, e.SupplierID)
	}
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i] < suppliers[j] })

	existing := make(map[int64]int64, len(suppliers))
	for _, id := range suppliers {
		n, err := p.catalog.CountItems(ctx, id, p.settings.For(id).Target())
		if err != nil {
			return fmt.Errorf("count items for supplier %d: %w", id, err)
		}
		existing[id] = n
	}
	p.existing = existing
	return nil
}

// SaveEntries saves every classified entry in order.
func (p *EntryProcessor) SaveEntries(ctx context.Context, entries []*Entry) {
	for _, e := range entries {
		if e.Classification() == nil {
			continue
		}
		if err := p.saveEntry(ctx, e); err != nil {
			p.fail(e, err)
		}
	}
}

func (p *EntryProcessor) saveEntry(ctx context.Context, e *Entry) error {
	if err := applyDefaults(e, p.settings.For(e.SupplierID)); err != nil {
		return err
	}

	switch c := e.Classification().(type) {
	case NewProduct:
		return p.createProduct(ctx, e, c.Product)
	case NewVariant:
		return p.createVariant(ctx, e, c.Product, c.Variant)
	case ExistingVariant:
		return p.updateVariant(ctx, e, c.Variant)
	case NewInventoryItem:
		if err := p.saveOverride(ctx, e, c.Override); err != nil {
			return err
		}
		p.counts.InventoryCreated++
		return nil
	case ExistingInventoryItem:
		if err := p.saveOverride(ctx, e, c.Override); err != nil {
			return err
		}
		p.counts.InventoryUpdated++
		return nil
	default:
		return fmt.Errorf("unhandled classification %T", c)
	}
}

func (p *EntryProcessor) createProduct(ctx context.Context, e *Entry, product *Product) error {
	e.fillProduct(product)
	e.fillVariant(product.Variants[0], p.importDate)
	if err := product.Validate(); err != nil {
		return err
	}
	if err := p.catalog.CreateProduct(ctx, product); err != nil {
		return err
	}
	p.counts.ProductsCreated++
	p.touchVariant(product.Variants[0].ID)
	return nil
}

func (p *EntryProcessor) createVariant(ctx context.Context, e *Entry, product *Product, variant *Variant) error {
	if product.ID == 0 {
		return ValidationError{Field: "name", Value: product.Name, Code: CodeNotSaved, Message: msgPendingSave}
	}
	variant.ProductID = product.ID
	e.fillVariant(variant, p.importDate)
	if err := variant.Validate(); err != nil {
		return err
	}
	if err := p.catalog.SaveVariant(ctx, variant); err != nil {
		return err
	}
	product.Variants = append(product.Variants, variant)
	p.counts.VariantsCreated++
	p.touchVariant(variant.ID)
	return nil
}

func (p *EntryProcessor) updateVariant(ctx context.Context, e *Entry, variant *Variant) error {
	e.fillVariant(variant, p.importDate)
	if err := variant.Validate(); err != nil {
		return err
	}
	if err := p.catalog.SaveVariant(ctx, variant); err != nil {
		return err
	}
	p.counts.VariantsUpdated++
	p.touchVariant(variant.ID)
	return nil
}

func (p *EntryProcessor) saveOverride(ctx context.Context, e *Entry, o *VariantOverride) error {
	e.fillOverride(o, p.importDate)
	if err := o.Validate(); err != nil {
		return err
	}
	if err := p.catalog.SaveInventoryItem(ctx, o); err != nil {
		return err
	}
	p.touchOverride(o.ID)
	return nil
}

// fail replaces the entry's errors with the reason its save failed.
func (p *EntryProcessor) fail(e *Entry, err error) {
	var rie *RecordInvalidError
	var ve ValidationError
	switch {
	case errors.As(err, &rie):
		e.replaceErrors(rie.Errors)
	case errors.As(err, &ve):
		e.replaceErrors([]ValidationError{ve})
	default:
		e.replaceErrors([]ValidationError{{
			Field:   "base",
			Code:    CodeNotSaved,
			Message: FormatUserError(err),
		}})
	}
	p.logger.Warn("entry not saved", "line", e.LineNumber, "error", err)
}

// ResetAbsentItems zeroes stock for items of opted-in suppliers that this
// run did not touch. It does nothing when no entry saved, no id was
// touched or no settings were supplied.
func (p *EntryProcessor) ResetAbsentItems(ctx context.Context, perms PermissionMaps) error {
	if p.counts.TotalSaved() == 0 {
		return nil
	}
	return p.resetAbsent(ctx, perms)
}

func (p *EntryProcessor) resetAbsent(ctx context.Context, perms PermissionMaps) error {
	if p.touched.Empty() || p.settings.Empty() {
		return nil
	}

	n, suppliers, err := resetAbsent(ctx, p.catalog, p.settings, perms, p.touched)
	p.counts.ProductsReset += n
	if err != nil {
		return err
	}
	if n > 0 {
		p.logger.Info("absent items reset", "count", n, "suppliers", suppliers)
	}
	return nil
}
