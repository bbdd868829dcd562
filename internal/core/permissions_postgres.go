package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/openfoodfoundation/openfoodnetwork-sub012/internal/database"
)

// PostgresPermissions reads enterprise roles and relationships.
//
// A user may edit the enterprises they hold a role on; admins may edit
// every enterprise. A hub may list its own variants and those of every
// producer that granted it create_variant_overrides.
type PostgresPermissions struct {
	pool *pgxpool.Pool
}

// NewPostgresPermissions creates a permission source on pool.
func NewPostgresPermissions(pool *pgxpool.Pool) *PostgresPermissions {
	return &PostgresPermissions{pool: pool}
}

// LoadUser returns the user with the admin flag read from the users table.
func (p *PostgresPermissions) LoadUser(ctx context.Context, id int64) (User, error) {
	admin, err := db.New(p.pool).GetUserAdmin(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %d does not exist", id)
	}
	if err != nil {
		return User{}, fmt.Errorf("load user %d: %w", id, err)
	}
	return User{ID: id, Admin: admin}, nil
}

func (p *PostgresPermissions) EditableEnterprises(ctx context.Context, user User) (map[string]int64, error) {
	rows, err := p.editable(ctx, user)
	if err != nil {
		return nil, err
	}
	return nameIndex(rows), nil
}

func (p *PostgresPermissions) editable(ctx context.Context, user User) ([]db.NamedID, error) {
	q := db.New(p.pool)
	if user.Admin {
		rows, err := q.ListAllEnterprises(ctx)
		if err != nil {
			return nil, fmt.Errorf("list enterprises: %w", err)
		}
		return rows, nil
	}
	rows, err := q.ListManagedEnterprises(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list managed enterprises: %w", err)
	}
	return rows, nil
}

func (p *PostgresPermissions) InventoryPermissions(ctx context.Context, user User) (map[int64][]int64, error) {
	hubs, err := p.editable(ctx, user)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(hubs))
	out := make(map[int64][]int64, len(hubs))
	for i, h := range hubs {
		ids[i] = h.ID
		out[h.ID] = []int64{h.ID}
	}

	rows, err := db.New(p.pool).ListInventoryPermissions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list inventory permissions: %w", err)
	}
	for _, r := range rows {
		out[r.HubID] = append(out[r.HubID], r.ProducerID)
	}
	return out, nil
}
