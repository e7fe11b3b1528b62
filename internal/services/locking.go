// internal/services/locking.go
package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate makes the next query a SELECT ... FOR UPDATE so the caller's
// transaction holds the row until commit. SQLite has no row locks and
// serializes writers on its own, so the clause is skipped there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
