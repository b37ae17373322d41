package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	updatedAtColumn       = "updated_at"
	updatedAtCallbackName = "marketplace:force_updated_at"
)

// Now is the server clock used for updated_at. Tests may replace it.
var Now = func() time.Time { return time.Now().UTC() }

// RegisterCallbacks installs the callbacks every connection relies on and
// points GORM's clock at Now.
func RegisterCallbacks(conn *gorm.DB) error {
	conn.Config.NowFunc = func() time.Time { return Now() }
	if conn.Callback().Update().Get(updatedAtCallbackName) != nil {
		return nil
	}
	if err := conn.Callback().Update().Before("gorm:update").Register(updatedAtCallbackName, forceUpdatedAt); err != nil {
		return fmt.Errorf("register updated_at callback: %w", err)
	}
	return nil
}

// forceUpdatedAt overwrites updated_at with the server clock on every update,
// discarding any value supplied by the caller.
func forceUpdatedAt(tx *gorm.DB) {
	stmt := tx.Statement
	if stmt.Schema == nil {
		return
	}
	field := stmt.Schema.LookUpField(updatedAtColumn)
	if field == nil {
		return
	}

	now := Now()
	switch dest := stmt.Dest.(type) {
	case map[string]interface{}:
		delete(dest, field.Name)
		dest[field.DBName] = now
	default:
		stmt.SetColumn(field.DBName, now, true)
	}
}
