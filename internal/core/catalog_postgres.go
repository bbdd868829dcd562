package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	db "github.com/openfoodfoundation/openfoodnetwork-sub012/internal/database"
)

// PostgresCatalog is the Catalog and LookupSource backed by PostgreSQL.
// Each write runs on its own. A product and its first variant share one
// short transaction, as do an override and its inventory item.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog creates a catalog on pool.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func (c *PostgresCatalog) queries() *db.Queries { return db.New(c.pool) }

func (c *PostgresCatalog) FindProduct(ctx context.Context, supplierID int64, name string) (*Product, error) {
	q := c.queries()
	row, err := q.GetProductBySupplierAndName(ctx, supplierID, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product %q: %w", name, err)
	}

	p := &Product{
		ID:                 row.ID,
		SupplierID:         row.SupplierID,
		Name:               row.Name,
		Description:        row.Description.String,
		CategoryID:         row.CategoryID,
		ShippingCategoryID: row.ShippingCategoryID.Int64,
		VariantUnit:        row.VariantUnit,
		VariantUnitScale:   fromNumeric(row.VariantUnitScale),
		VariantUnitName:    row.VariantUnitName.String,
	}

	variants, err := q.ListProductVariants(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list variants of product %d: %w", p.ID, err)
	}
	for _, v := range variants {
		p.Variants = append(p.Variants, &Variant{
			ID:            v.ID,
			ProductID:     v.ProductID,
			DisplayName:   v.DisplayName,
			SKU:           v.Sku,
			UnitValue:     fromNumeric(v.UnitValue).Decimal,
			Price:         fromNumeric(v.Price),
			OnHand:        v.OnHand,
			OnDemand:      v.OnDemand,
			TaxCategoryID: v.TaxCategoryID.Int64,
			ImportDate:    v.ImportDate.Time,
		})
	}
	return p, nil
}

func (c *PostgresCatalog) FindOverride(ctx context.Context, variantID, hubID int64) (*VariantOverride, error) {
	row, err := c.queries().GetVariantOverride(ctx, variantID, hubID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find override of variant %d: %w", variantID, err)
	}
	return &VariantOverride{
		ID:          row.ID,
		VariantID:   row.VariantID,
		HubID:       row.HubID,
		Price:       fromNumeric(row.Price),
		CountOnHand: row.CountOnHand,
		OnDemand:    row.OnDemand,
		ImportDate:  row.ImportDate.Time,
	}, nil
}

func (c *PostgresCatalog) CreateProduct(ctx context.Context, p *Product) error {
	if len(p.Variants) == 0 {
		return fmt.Errorf("create product %q: no variant", p.Name)
	}
	first := p.Variants[0]

	var productID, variantID int64
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		q := db.New(tx)

		var err error
		productID, err = q.InsertProduct(ctx, db.InsertProductParams{
			SupplierID:         p.SupplierID,
			Name:               p.Name,
			Description:        toText(p.Description),
			CategoryID:         p.CategoryID,
			ShippingCategoryID: toInt8(p.ShippingCategoryID),
			VariantUnit:        p.VariantUnit,
			VariantUnitScale:   toNullNumeric(p.VariantUnitScale),
			VariantUnitName:    toText(p.VariantUnitName),
		})
		if err != nil {
			return err
		}

		variantID, err = q.InsertVariant(ctx, insertVariantParams(productID, first))
		return err
	})
	if err != nil {
		return fmt.Errorf("create product %q: %w", p.Name, err)
	}

	p.ID = productID
	first.ID = variantID
	first.ProductID = productID
	return nil
}

func (c *PostgresCatalog) SaveVariant(ctx context.Context, v *Variant) error {
	q := c.queries()
	if v.ID == 0 {
		id, err := q.InsertVariant(ctx, insertVariantParams(v.ProductID, v))
		if err != nil {
			return fmt.Errorf("insert variant: %w", err)
		}
		v.ID = id
		return nil
	}

	n, err := q.UpdateVariant(ctx, db.UpdateVariantParams{
		ID:            v.ID,
		DisplayName:   v.DisplayName,
		Sku:           v.SKU,
		UnitValue:     toNumeric(v.UnitValue),
		Price:         toNullNumeric(v.Price),
		OnHand:        v.OnHand,
		OnDemand:      v.OnDemand,
		TaxCategoryID: toInt8(v.TaxCategoryID),
		ImportDate:    toTimestamptz(v.ImportDate),
	})
	if err != nil {
		return fmt.Errorf("update variant %d: %w", v.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update variant %d: %w", v.ID, pgx.ErrNoRows)
	}
	return nil
}

func insertVariantParams(productID int64, v *Variant) db.InsertVariantParams {
	return db.InsertVariantParams{
		ProductID:     productID,
		DisplayName:   v.DisplayName,
		Sku:           v.SKU,
		UnitValue:     toNumeric(v.UnitValue),
		Price:         toNullNumeric(v.Price),
		OnHand:        v.OnHand,
		OnDemand:      v.OnDemand,
		TaxCategoryID: toInt8(v.TaxCategoryID),
		ImportDate:    toTimestamptz(v.ImportDate),
	}
}

func (c *PostgresCatalog) SaveInventoryItem(ctx context.Context, o *VariantOverride) error {
	var id int64
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		q := db.New(tx)
		if o.ID == 0 {
			var err error
			id, err = q.InsertVariantOverride(ctx, db.InsertVariantOverrideParams{
				VariantID:   o.VariantID,
				HubID:       o.HubID,
				Price:       toNullNumeric(o.Price),
				CountOnHand: o.CountOnHand,
				OnDemand:    o.OnDemand,
				ImportDate:  toTimestamptz(o.ImportDate),
			})
			if err != nil {
				return fmt.Errorf("insert variant override: %w", err)
			}
		} else {
			n, err := q.UpdateVariantOverride(ctx, db.UpdateVariantOverrideParams{
				ID:          o.ID,
				Price:       toNullNumeric(o.Price),
				CountOnHand: o.CountOnHand,
				OnDemand:    o.OnDemand,
				ImportDate:  toTimestamptz(o.ImportDate),
			})
			if err != nil {
				return fmt.Errorf("update variant override %d: %w", o.ID, err)
			}
			if n == 0 {
				return fmt.Errorf("update variant override %d: %w", o.ID, pgx.ErrNoRows)
			}
		}
		if err := q.ShowInventoryItem(ctx, o.HubID, o.VariantID); err != nil {
			return fmt.Errorf("show inventory item: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if id != 0 {
		o.ID = id
	}
	return nil
}

func (c *PostgresCatalog) CountItems(ctx context.Context, supplierID int64, target ImportTarget) (int64, error) {
	if target == TargetInventory {
		return c.queries().CountHubOverrides(ctx, supplierID)
	}
	return c.queries().CountSupplierVariants(ctx, supplierID)
}

func (c *PostgresCatalog) ResetStock(ctx context.Context, target ImportTarget, supplierIDs, keepIDs []int64) (int64, error) {
	// NOT (id = ANY(NULL)) matches nothing.
	if keepIDs == nil {
		keepIDs = []int64{}
	}
	if target == TargetInventory {
		return c.queries().ResetHubOverrideStock(ctx, supplierIDs, keepIDs)
	}
	return c.queries().ResetSupplierVariantStock(ctx, supplierIDs, keepIDs)
}

// ====================================================================
// Lookups
// ====================================================================

func (c *PostgresCatalog) EnterprisesByName(ctx context.Context, names []string) (map[string]int64, error) {
	rows, err := c.queries().ListEnterprisesByName(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("list enterprises: %w", err)
	}
	return nameIndex(rows), nil
}

func (c *PostgresCatalog) Categories(ctx context.Context) (map[string]int64, error) {
	rows, err := c.queries().ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return nameIndex(rows), nil
}

func (c *PostgresCatalog) TaxCategories(ctx context.Context) (map[string]int64, error) {
	rows, err := c.queries().ListTaxCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tax categories: %w", err)
	}
	return nameIndex(rows), nil
}

func (c *PostgresCatalog) ShippingCategories(ctx context.Context) (map[string]int64, error) {
	rows, err := c.queries().ListShippingCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shipping categories: %w", err)
	}
	return nameIndex(rows), nil
}

// nameIndex keeps the lowest id for a repeated name.
func nameIndex(rows []db.NamedID) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		if _, ok := m[r.Name]; !ok {
			m[r.Name] = r.ID
		}
	}
	return m
}

// ====================================================================
// pgtype conversion
// ====================================================================

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func toNullNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return toNumeric(d.Decimal)
}

func fromNumeric(n pgtype.Numeric) decimal.NullDecimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.NullDecimal{}
	}
	if n.Int == nil {
		return decimal.NewNullDecimal(decimal.Zero)
	}
	return decimal.NewNullDecimal(decimal.NewFromBigInt(n.Int, n.Exp))
}

func toText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toInt8(id int64) pgtype.Int8 {
	return pgtype.Int8{Int64: id, Valid: id != 0}
}

func toTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
