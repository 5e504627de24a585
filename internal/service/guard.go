package service

import "checkout-service/internal/models"

// PartitionByOwner groups cart items by owning user, preserving input order
// within each group. Pure function, no side effects.
func PartitionByOwner(items []models.CartItem) map[string][]models.CartItem {
	groups := make(map[string][]models.CartItem)
	for _, item := range items {
		groups[item.OwnerID] = append(groups[item.OwnerID], item)
	}
	return groups
}

// AdmitSingleOwner returns the sole owner of the cart, or rejects with
// *models.MultiOwnerError naming each owner group and its item count. It is
// re-evaluated on every checkout attempt so the caller can resolve a conflict
// by removing items and trying again.
func AdmitSingleOwner(items []models.CartItem) (string, error) {
	if len(items) == 0 {
		return "", models.ErrEmptyCart
	}

	groups := PartitionByOwner(items)
	if len(groups) > 1 {
		counts := make(map[string]int, len(groups))
		for owner, group := range groups {
			counts[owner] = len(group)
		}
		return "", &models.MultiOwnerError{Groups: counts}
	}
	return items[0].OwnerID, nil
}
