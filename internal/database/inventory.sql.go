package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getVariantOverride = `
SELECT id, variant_id, hub_id, price, count_on_hand, on_demand, import_date
FROM variant_overrides
WHERE variant_id = $1 AND hub_id = $2
`

func (q *Queries) GetVariantOverride(ctx context.Context, variantID, hubID int64) (VariantOverride, error) {
	row := q.db.QueryRow(ctx, getVariantOverride, variantID, hubID)
	var o VariantOverride
	err := row.Scan(
		&o.ID,
		&o.VariantID,
		&o.HubID,
		&o.Price,
		&o.CountOnHand,
		&o.OnDemand,
		&o.ImportDate,
	)
	return o, err
}

const insertVariantOverride = `
INSERT INTO variant_overrides (variant_id, hub_id, price, count_on_hand, on_demand, import_date)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`

type InsertVariantOverrideParams struct {
	VariantID   int64
	HubID       int64
	Price       pgtype.Numeric
	CountOnHand int64
	OnDemand    bool
	ImportDate  pgtype.Timestamptz
}

func (q *Queries) InsertVariantOverride(ctx context.Context, arg InsertVariantOverrideParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertVariantOverride,
		arg.VariantID,
		arg.HubID,
		arg.Price,
		arg.CountOnHand,
		arg.OnDemand,
		arg.ImportDate,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateVariantOverride = `
UPDATE variant_overrides
SET price = $2,
    count_on_hand = $3,
    on_demand = $4,
    import_date = $5,
    updated_at = now()
WHERE id = $1
`

type UpdateVariantOverrideParams struct {
	ID          int64
	Price       pgtype.Numeric
	CountOnHand int64
	OnDemand    bool
	ImportDate  pgtype.Timestamptz
}

func (q *Queries) UpdateVariantOverride(ctx context.Context, arg UpdateVariantOverrideParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateVariantOverride,
		arg.ID,
		arg.Price,
		arg.CountOnHand,
		arg.OnDemand,
		arg.ImportDate,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const showInventoryItem = `
INSERT INTO inventory_items (enterprise_id, variant_id, visible)
VALUES ($1, $2, true)
ON CONFLICT (enterprise_id, variant_id) DO UPDATE SET visible = true, updated_at = now()
`

func (q *Queries) ShowInventoryItem(ctx context.Context, hubID, variantID int64) error {
	_, err := q.db.Exec(ctx, showInventoryItem, hubID, variantID)
	return err
}

const countHubOverrides = `
SELECT count(*)
FROM variant_overrides
WHERE hub_id = $1
`

func (q *Queries) CountHubOverrides(ctx context.Context, hubID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countHubOverrides, hubID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const resetHubOverrideStock = `
UPDATE variant_overrides
SET count_on_hand = 0, updated_at = now()
WHERE hub_id = ANY($1::bigint[])
  AND NOT (id = ANY($2::bigint[]))
`

func (q *Queries) ResetHubOverrideStock(ctx context.Context, hubIDs, keepIDs []int64) (int64, error) {
	tag, err := q.db.Exec(ctx, resetHubOverrideStock, hubIDs, keepIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
