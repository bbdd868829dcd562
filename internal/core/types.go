package core

import (
	"context"
	"fmt"
)

// ImportTarget selects what a supplier's rows create or update.
type ImportTarget string

const (
	TargetCatalog   ImportTarget = "products"
	TargetInventory ImportTarget = "inventories"
)

// Valid reports whether t is a known import target.
func (t ImportTarget) Valid() bool {
	return t == TargetCatalog || t == TargetInventory
}

// TouchedIDs are the ids of records an import saved, kept per target.
// Variant and override ids come from separate sequences, so a bare id does
// not say which table it belongs to.
type TouchedIDs struct {
	Variants  []int64 `json:"variants"`
	Overrides []int64 `json:"overrides"`
}

// UntaggedIDs is the TouchedIDs of a flat id list whose targets are not
// known. Every id is kept from both resets.
func UntaggedIDs(ids []int64) TouchedIDs {
	return TouchedIDs{
		Variants:  append([]int64(nil), ids...),
		Overrides: append([]int64(nil), ids...),
	}
}

// For returns the ids touched in target.
func (t TouchedIDs) For(target ImportTarget) []int64 {
	if target == TargetInventory {
		return t.Overrides
	}
	return t.Variants
}

// Empty reports whether no id was touched.
func (t TouchedIDs) Empty() bool {
	return len(t.Variants) == 0 && len(t.Overrides) == 0
}

// All returns every id once, variants first.
func (t TouchedIDs) All() []int64 {
	seen := make(map[int64]bool, len(t.Variants)+len(t.Overrides))
	var out []int64
	for _, ids := range [][]int64{t.Variants, t.Overrides} {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func (t TouchedIDs) clone() TouchedIDs {
	return TouchedIDs{
		Variants:  append([]int64(nil), t.Variants...),
		Overrides: append([]int64(nil), t.Overrides...),
	}
}

// orEmpty replaces nil lists so they encode as [].
func (t TouchedIDs) orEmpty() TouchedIDs {
	if t.Variants == nil {
		t.Variants = []int64{}
	}
	if t.Overrides == nil {
		t.Overrides = []int64{}
	}
	return t
}

// User is the actor an import runs on behalf of.
type User struct {
	ID    int64
	Admin bool
}

// Catalog is the storage the pipeline reads existing records from and
// writes classified entries to. Every write stands alone; there is no
// transaction spanning a run.
type Catalog interface {
	// FindProduct returns the non-deleted product owned by supplierID with
	// exactly the given name, with its non-deleted, non-master variants
	// loaded. It returns nil when there is none.
	FindProduct(ctx context.Context, supplierID int64, name string) (*Product, error)

	// FindOverride returns the override of variantID held by hubID, or nil.
	FindOverride(ctx context.Context, variantID, hubID int64) (*VariantOverride, error)

	// CreateProduct inserts the product and its first variant, setting IDs.
	CreateProduct(ctx context.Context, p *Product) error

	// SaveVariant inserts v when v.ID is zero, otherwise updates it.
	SaveVariant(ctx context.Context, v *Variant) error

	// SaveInventoryItem inserts o when o.ID is zero, otherwise updates it,
	// and marks the variant visible in the hub's inventory. Either both
	// writes happen or neither does.
	SaveInventoryItem(ctx context.Context, o *VariantOverride) error

	// CountItems counts the supplier's records of the given target.
	CountItems(ctx context.Context, supplierID int64, target ImportTarget) (int64, error)

	// ResetStock zeroes stock for every record of target owned by one of
	// supplierIDs whose id is not in keepIDs, returning the number reset.
	ResetStock(ctx context.Context, target ImportTarget, supplierIDs, keepIDs []int64) (int64, error)
}

// LookupSource resolves the human readable names used in a spreadsheet.
type LookupSource interface {
	EnterprisesByName(ctx context.Context, names []string) (map[string]int64, error)
	Categories(ctx context.Context) (map[string]int64, error)
	TaxCategories(ctx context.Context) (map[string]int64, error)
	ShippingCategories(ctx context.Context) (map[string]int64, error)
}

// Permissions answers what the acting user may manage.
type Permissions interface {
	// EditableEnterprises maps name to id for every enterprise the user may edit.
	EditableEnterprises(ctx context.Context, user User) (map[string]int64, error)

	// InventoryPermissions maps a hub id to the producer ids whose variants
	// that hub may list in its inventory.
	InventoryPermissions(ctx context.Context, user User) (map[int64][]int64, error)
}

// PermissionMaps is the read-only permission snapshot for one run.
type PermissionMaps struct {
	Editable  map[string]int64
	Inventory map[int64]map[int64]bool
	Admin     bool
}

// LoadPermissions fetches both permission maps for user.
func LoadPermissions(ctx context.Context, p Permissions, user User) (PermissionMaps, error) {
	editable, err := p.EditableEnterprises(ctx, user)
	if err != nil {
		return PermissionMaps{}, fmt.Errorf("load permissions: %w", err)
	}
	inv, err := p.InventoryPermissions(ctx, user)
	if err != nil {
		return PermissionMaps{}, fmt.Errorf("load permissions: %w", err)
	}

	pm := PermissionMaps{
		Editable:  editable,
		Inventory: make(map[int64]map[int64]bool, len(inv)),
		Admin:     user.Admin,
	}
	for hub, producers := range inv {
		set := make(map[int64]bool, len(producers))
		for _, id := range producers {
			set[id] = true
		}
		pm.Inventory[hub] = set
	}
	return pm, nil
}

// CanEdit reports whether the enterprise with the given id is editable.
func (pm PermissionMaps) CanEdit(id int64) bool {
	for _, eid := range pm.Editable {
		if eid == id {
			return true
		}
	}
	return false
}

// CanListInventory reports whether hub may list producer's variants.
func (pm PermissionMaps) CanListInventory(hub, producer int64) bool {
	if pm.Admin {
		return true
	}
	return pm.Inventory[hub][producer]
}
