package core

import (
	"context"
	"fmt"
	"sort"
)

// ResetStrategy zeroes stock for a supplier's items of one import target
// that an import did not touch.
type ResetStrategy interface {
	Target() ImportTarget
	Reset(ctx context.Context, supplierIDs, touchedIDs []int64) (int64, error)
}

type stockReset struct {
	target  ImportTarget
	catalog Catalog
}

// NewResetStrategy returns the reset strategy for target.
// Inventory targets reset hub overrides; catalog targets reset the
// suppliers' non-deleted, non-master variants.
func NewResetStrategy(target ImportTarget, catalog Catalog) ResetStrategy {
	return stockReset{target: target, catalog: catalog}
}

func (s stockReset) Target() ImportTarget { return s.target }

func (s stockReset) Reset(ctx context.Context, supplierIDs, touchedIDs []int64) (int64, error) {
	if len(supplierIDs) == 0 {
		return 0, nil
	}
	n, err := s.catalog.ResetStock(ctx, s.target, supplierIDs, touchedIDs)
	if err != nil {
		return 0, fmt.Errorf("reset absent %s: %w", s.target, err)
	}
	return n, nil
}

// resetTargets groups the suppliers opted into reset_all_absent that the
// actor may edit by their import target.
func resetTargets(settings *Settings, perms PermissionMaps) map[ImportTarget][]int64 {
	groups := make(map[ImportTarget][]int64)
	if settings.Empty() {
		return groups
	}
	for id, ss := range settings.Suppliers {
		if !ss.ResetAllAbsent || !perms.CanEdit(id) {
			continue
		}
		groups[ss.Target()] = append(groups[ss.Target()], id)
	}
	for _, ids := range groups {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return groups
}

// resetAbsent runs one strategy per target, keeping only that target's
// touched ids, and returns the total reset and the suppliers it covered.
func resetAbsent(ctx context.Context, catalog Catalog, settings *Settings, perms PermissionMaps, touched TouchedIDs) (int64, []int64, error) {
	groups := resetTargets(settings, perms)

	var total int64
	var suppliers []int64
	for _, target := range []ImportTarget{TargetInventory, TargetCatalog} {
		ids := groups[target]
		if len(ids) == 0 {
			continue
		}
		n, err := NewResetStrategy(target, catalog).Reset(ctx, ids, touched.For(target))
		if err != nil {
			return total, suppliers, err
		}
		total += n
		suppliers = append(suppliers, ids...)
	}
	return total, suppliers, nil
}
