package database

import (
	"context"
)

const listEnterprisesByName = `
SELECT id, name
FROM enterprises
WHERE name = ANY($1::text[])
ORDER BY id
`

func (q *Queries) ListEnterprisesByName(ctx context.Context, names []string) ([]NamedID, error) {
	return q.listNamed(ctx, listEnterprisesByName, names)
}

const listCategories = `
SELECT id, name FROM categories ORDER BY id
`

func (q *Queries) ListCategories(ctx context.Context) ([]NamedID, error) {
	return q.listNamed(ctx, listCategories)
}

const listTaxCategories = `
SELECT id, name FROM tax_categories WHERE deleted_at IS NULL ORDER BY id
`

func (q *Queries) ListTaxCategories(ctx context.Context) ([]NamedID, error) {
	return q.listNamed(ctx, listTaxCategories)
}

const listShippingCategories = `
SELECT id, name FROM shipping_categories ORDER BY id
`

func (q *Queries) ListShippingCategories(ctx context.Context) ([]NamedID, error) {
	return q.listNamed(ctx, listShippingCategories)
}

const listManagedEnterprises = `
SELECT e.id, e.name
FROM enterprises e
JOIN enterprise_roles r ON r.enterprise_id = e.id
WHERE r.user_id = $1
ORDER BY e.id
`

func (q *Queries) ListManagedEnterprises(ctx context.Context, userID int64) ([]NamedID, error) {
	return q.listNamed(ctx, listManagedEnterprises, userID)
}

const listAllEnterprises = `
SELECT id, name FROM enterprises ORDER BY id
`

func (q *Queries) ListAllEnterprises(ctx context.Context) ([]NamedID, error) {
	return q.listNamed(ctx, listAllEnterprises)
}

func (q *Queries) listNamed(ctx context.Context, sql string, args ...interface{}) ([]NamedID, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []NamedID
	for rows.Next() {
		var i NamedID
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// Producers grant a hub the right to list their variants through an
// enterprise relationship carrying create_variant_overrides.
const listInventoryPermissions = `
SELECT rel.child_id AS hub_id, rel.parent_id AS producer_id
FROM enterprise_relationships rel
JOIN enterprise_relationship_permissions perm
  ON perm.enterprise_relationship_id = rel.id
 AND perm.name = 'create_variant_overrides'
WHERE rel.child_id = ANY($1::bigint[])
ORDER BY rel.child_id, rel.parent_id
`

func (q *Queries) ListInventoryPermissions(ctx context.Context, hubIDs []int64) ([]InventoryPermission, error) {
	rows, err := q.db.Query(ctx, listInventoryPermissions, hubIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InventoryPermission
	for rows.Next() {
		var i InventoryPermission
		if err := rows.Scan(&i.HubID, &i.ProducerID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getUserAdmin = `
SELECT admin FROM users WHERE id = $1
`

func (q *Queries) GetUserAdmin(ctx context.Context, userID int64) (bool, error) {
	row := q.db.QueryRow(ctx, getUserAdmin, userID)
	var admin bool
	err := row.Scan(&admin)
	return admin, err
}
