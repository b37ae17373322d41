package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate adds a row lock on dialects that support one.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return lock(tx, "")
}

// ForUpdateSkipLocked is ForUpdate for work queues: rows another transaction
// holds are left out of the result instead of waited on.
func ForUpdateSkipLocked(tx *gorm.DB) *gorm.DB {
	return lock(tx, "SKIP LOCKED")
}

func lock(tx *gorm.DB, options string) *gorm.DB {
	if tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: options})
}
