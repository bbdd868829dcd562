package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type NamedID struct {
	ID   int64
	Name string
}

type Product struct {
	ID                 int64
	SupplierID         int64
	Name               string
	Description        pgtype.Text
	CategoryID         int64
	ShippingCategoryID pgtype.Int8
	VariantUnit        string
	VariantUnitScale   pgtype.Numeric
	VariantUnitName    pgtype.Text
}

type Variant struct {
	ID            int64
	ProductID     int64
	DisplayName   string
	Sku           string
	UnitValue     pgtype.Numeric
	Price         pgtype.Numeric
	OnHand        int64
	OnDemand      bool
	TaxCategoryID pgtype.Int8
	ImportDate    pgtype.Timestamptz
}

type VariantOverride struct {
	ID          int64
	VariantID   int64
	HubID       int64
	Price       pgtype.Numeric
	CountOnHand int64
	OnDemand    bool
	ImportDate  pgtype.Timestamptz
}

type InventoryPermission struct {
	HubID      int64
	ProducerID int64
}
