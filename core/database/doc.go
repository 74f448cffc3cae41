// Package database handles database connections and schema inspection.
//
// It wraps GORM and opens either a local SQLite file (the default, used for the release
// history) or a MySQL server, based on the application's configuration.
//
// # Connect
//
// Connect selects the dialect from Config.Driver, applies pool limits and pings the
// database. A driver of "none" disables persistence and Connect returns ErrDisabled.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table for both dialects, and MissingColumns compares
// them with the names a model expects. The release store runs it after AutoMigrate.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Warn("Database unavailable", zap.Error(err))
//	}
//
//	missing, err := database.MissingColumns(db, "releases", []string{"id", "digest"})
package database
