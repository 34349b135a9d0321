package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // Pointer because NULL default is possible
	Extra   string
}

// GetTableColumns retrieves the column definitions for a given table.
// An empty result with no error means the table does not exist (SQLite) or
// has no columns; MySQL reports a missing table as an error instead.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	// Check dialect
	if db.Dialector.Name() == "sqlite" {
		// SQLite uses PRAGMA table_info
		type SQLiteColumn struct {
			Cid        int
			Name       string
			Type       string
			Notnull    int
			DefaultVal *string
			Pk         int
		}
		var sqliteCols []SQLiteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range sqliteCols {
			columns = append(columns, ColumnInfo{
				Field: strings.ToLower(col.Name),
				Type:  strings.ToLower(col.Type),
			})
		}
		return columns, nil
	}

	// Use Raw SQL for MySQL "SHOW COLUMNS".
	// GORM's Migrator().ColumnTypes() abstracts this, but raw keeps the exact type strings.
	err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	// Normalize types to lowercase
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// HasIndexOn reports whether the table has any index whose first column is
// the given column. The ledger aggregation relies on such an index on
// ledger_entries.account_id to stay efficient as the table grows.
func HasIndexOn(db *gorm.DB, tableName, column string) (bool, error) {
	column = strings.ToLower(column)

	if db.Dialector.Name() == "sqlite" {
		type sqliteIndex struct {
			Seq     int
			Name    string
			Unique  int
			Origin  string
			Partial int
		}
		var indexes []sqliteIndex
		if err := db.Raw(fmt.Sprintf("PRAGMA index_list('%s')", tableName)).Scan(&indexes).Error; err != nil {
			return false, fmt.Errorf("failed to list indexes for table %s: %w", tableName, err)
		}
		for _, idx := range indexes {
			type sqliteIndexColumn struct {
				Seqno int
				Cid   int
				Name  string
			}
			var cols []sqliteIndexColumn
			if err := db.Raw(fmt.Sprintf("PRAGMA index_info('%s')", idx.Name)).Scan(&cols).Error; err != nil {
				return false, fmt.Errorf("failed to inspect index %s: %w", idx.Name, err)
			}
			for _, c := range cols {
				if c.Seqno == 0 && strings.ToLower(c.Name) == column {
					return true, nil
				}
			}
		}
		return false, nil
	}

	type mysqlIndex struct {
		KeyName    string `gorm:"column:Key_name"`
		SeqInIndex int    `gorm:"column:Seq_in_index"`
		ColumnName string `gorm:"column:Column_name"`
	}
	var indexes []mysqlIndex
	if err := db.Raw(fmt.Sprintf("SHOW INDEX FROM `%s`", tableName)).Scan(&indexes).Error; err != nil {
		return false, fmt.Errorf("failed to list indexes for table %s: %w", tableName, err)
	}
	for _, idx := range indexes {
		if idx.SeqInIndex == 1 && strings.ToLower(idx.ColumnName) == column {
			return true, nil
		}
	}
	return false, nil
}
