package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo is one column of a table, with Field and Type lowercased.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // NULL default
	Extra   string
}

// sqliteColumn is a row of PRAGMA table_info.
type sqliteColumn struct {
	Cid        int
	Name       string
	Type       string
	Notnull    int
	DefaultVal *string
	Pk         int
}

// GetTableColumns lists the columns of tableName. A missing table yields no columns on sqlite.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo

	switch db.Dialector.Name() {
	case "sqlite":
		var rows []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, row := range rows {
			col := ColumnInfo{Field: row.Name, Type: row.Type, Default: row.DefaultVal, Null: "YES"}
			if row.Notnull == 1 {
				col.Null = "NO"
			}
			if row.Pk > 0 {
				col.Key = "PRI"
			}
			columns = append(columns, col)
		}
	default:
		if err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
	}

	for i := range columns {
		columns[i].Field = strings.ToLower(columns[i].Field)
		columns[i].Type = strings.ToLower(columns[i].Type)
	}
	return columns, nil
}

// MissingColumns returns the names in expected that tableName lacks, in the order given.
func MissingColumns(db *gorm.DB, tableName string, expected []string) ([]string, error) {
	columns, err := GetTableColumns(db, tableName)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(columns))
	for _, col := range columns {
		have[col.Field] = true
	}

	var missing []string
	for _, name := range expected {
		if !have[strings.ToLower(name)] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
