package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"estante/models"
)

// Rows that a dependent insert points at are read FOR SHARE. The cascades
// below delete the parent row first, so a delete waits for any transaction
// still holding the share lock and then sweeps the dependents it committed.
// SQLite ignores the clause; its single connection already serializes writers.
var shareLock = clause.Locking{Strength: "SHARE"}

// ReviewExists reports whether the review exists and keeps it from being
// deleted until the transaction ends.
func ReviewExists(tx *gorm.DB, reviewID uint) (bool, error) {
	var ids []uint
	err := tx.Clauses(shareLock).Model(&models.Review{}).
		Where("id = ?", reviewID).
		Pluck("id", &ids).Error
	return len(ids) > 0, err
}

// UsersExist reports whether every given user exists and keeps them from
// being deleted until the transaction ends. Users are locked in id order.
func UsersExist(tx *gorm.DB, userIDs ...uint) (bool, error) {
	wanted := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}

	var ids []uint
	err := tx.Clauses(shareLock).Model(&models.User{}).
		Where("id IN ?", userIDs).
		Order("id").
		Pluck("id", &ids).Error
	return len(ids) == len(wanted), err
}
