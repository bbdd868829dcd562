package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getProductBySupplierAndName = `
SELECT id, supplier_id, name, description, category_id, shipping_category_id,
       variant_unit, variant_unit_scale, variant_unit_name
FROM products
WHERE supplier_id = $1 AND name = $2 AND deleted_at IS NULL
ORDER BY id
LIMIT 1
`

func (q *Queries) GetProductBySupplierAndName(ctx context.Context, supplierID int64, name string) (Product, error) {
	row := q.db.QueryRow(ctx, getProductBySupplierAndName, supplierID, name)
	var p Product
	err := row.Scan(
		&p.ID,
		&p.SupplierID,
		&p.Name,
		&p.Description,
		&p.CategoryID,
		&p.ShippingCategoryID,
		&p.VariantUnit,
		&p.VariantUnitScale,
		&p.VariantUnitName,
	)
	return p, err
}

const listProductVariants = `
SELECT id, product_id, display_name, sku, unit_value, price, on_hand, on_demand,
       tax_category_id, import_date
FROM variants
WHERE product_id = $1 AND deleted_at IS NULL AND NOT is_master
ORDER BY id
`

func (q *Queries) ListProductVariants(ctx context.Context, productID int64) ([]Variant, error) {
	rows, err := q.db.Query(ctx, listProductVariants, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.DisplayName,
			&v.Sku,
			&v.UnitValue,
			&v.Price,
			&v.OnHand,
			&v.OnDemand,
			&v.TaxCategoryID,
			&v.ImportDate,
		); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const insertProduct = `
INSERT INTO products (
    supplier_id, name, description, category_id, shipping_category_id,
    variant_unit, variant_unit_scale, variant_unit_name
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id
`

type InsertProductParams struct {
	SupplierID         int64
	Name               string
	Description        pgtype.Text
	CategoryID         int64
	ShippingCategoryID pgtype.Int8
	VariantUnit        string
	VariantUnitScale   pgtype.Numeric
	VariantUnitName    pgtype.Text
}

func (q *Queries) InsertProduct(ctx context.Context, arg InsertProductParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertProduct,
		arg.SupplierID,
		arg.Name,
		arg.Description,
		arg.CategoryID,
		arg.ShippingCategoryID,
		arg.VariantUnit,
		arg.VariantUnitScale,
		arg.VariantUnitName,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertVariant = `
INSERT INTO variants (
    product_id, display_name, sku, unit_value, price, on_hand, on_demand,
    tax_category_id, import_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id
`

type InsertVariantParams struct {
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

func (q *Queries) InsertVariant(ctx context.Context, arg InsertVariantParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertVariant,
		arg.ProductID,
		arg.DisplayName,
		arg.Sku,
		arg.UnitValue,
		arg.Price,
		arg.OnHand,
		arg.OnDemand,
		arg.TaxCategoryID,
		arg.ImportDate,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateVariant = `
UPDATE variants
SET display_name = $2,
    sku = $3,
    unit_value = $4,
    price = $5,
    on_hand = $6,
    on_demand = $7,
    tax_category_id = $8,
    import_date = $9,
    updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
`

type UpdateVariantParams struct {
	ID            int64
	DisplayName   string
	Sku           string
	UnitValue     pgtype.Numeric
	Price         pgtype.Numeric
	OnHand        int64
	OnDemand      bool
	TaxCategoryID pgtype.Int8
	ImportDate    pgtype.Timestamptz
}

func (q *Queries) UpdateVariant(ctx context.Context, arg UpdateVariantParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateVariant,
		arg.ID,
		arg.DisplayName,
		arg.Sku,
		arg.UnitValue,
		arg.Price,
		arg.OnHand,
		arg.OnDemand,
		arg.TaxCategoryID,
		arg.ImportDate,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countSupplierVariants = `
SELECT count(*)
FROM variants v
JOIN products p ON p.id = v.product_id
WHERE p.supplier_id = $1
  AND p.deleted_at IS NULL
  AND v.deleted_at IS NULL
  AND NOT v.is_master
`

func (q *Queries) CountSupplierVariants(ctx context.Context, supplierID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countSupplierVariants, supplierID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const resetSupplierVariantStock = `
UPDATE variants v
SET on_hand = 0, updated_at = now()
FROM products p
WHERE p.id = v.product_id
  AND p.supplier_id = ANY($1::bigint[])
  AND p.deleted_at IS NULL
  AND v.deleted_at IS NULL
  AND NOT v.is_master
  AND NOT (v.id = ANY($2::bigint[]))
`

func (q *Queries) ResetSupplierVariantStock(ctx context.Context, supplierIDs, keepIDs []int64) (int64, error) {
	tag, err := q.db.Exec(ctx, resetSupplierVariantStock, supplierIDs, keepIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
