package core

// Classification is the outcome the validator decided for an entry.
// The set of implementations is closed; an entry without one is invalid.
type Classification interface {
	ValidatesAs() string
	classification()
}

// NewProduct creates a product together with its first variant.
type NewProduct struct {
	Product *Product
}

// NewVariant adds a variant to Product. Product may be one created earlier
// in the same run, in which case its ID is only known once that row saved.
type NewVariant struct {
	Product *Product
	Variant *Variant
}

// ExistingVariant updates a variant already in the catalog.
type ExistingVariant struct {
	Variant *Variant
}

// NewInventoryItem creates a hub override of another enterprise's variant.
type NewInventoryItem struct {
	Override *VariantOverride
}

// ExistingInventoryItem updates an override the hub already holds.
type ExistingInventoryItem struct {
	Override *VariantOverride
}

func (NewProduct) ValidatesAs() string            { return "new_product" }
func (NewVariant) ValidatesAs() string            { return "new_variant" }
func (ExistingVariant) ValidatesAs() string       { return "existing_variant" }
func (NewInventoryItem) ValidatesAs() string      { return "new_inventory_item" }
func (ExistingInventoryItem) ValidatesAs() string { return "existing_inventory_item" }

func (NewProduct) classification()            {}
func (NewVariant) classification()            {}
func (ExistingVariant) classification()       {}
func (NewInventoryItem) classification()      {}
func (ExistingInventoryItem) classification() {}

// classificationNames lists every outcome in reporting order.
var classificationNames = []string{
	"new_product",
	"new_variant",
	"existing_variant",
	"new_inventory_item",
	"existing_inventory_item",
}
