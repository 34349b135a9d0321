package ledger

import (
	"fmt"
	"reflect"
	"strings"

	"ledger-reconciler/core/database"

	"gorm.io/gorm"
)

// SchemaReport strictly types the result of a billing schema verification.
type SchemaReport struct {
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

// TableReport describes how one consumed table compares to expectations.
type TableReport struct {
	Status         string   `json:"status"` // "ok", "missing", "error"
	MissingColumns []string `json:"missing_columns"`
	MissingIndex   bool     `json:"missing_index"`
}

// schemaExpectations lists the tables the engine's queries reference, using
// the GORM models as the source of truth for column names. The account_id
// index keeps the drift aggregation efficient as the ledger grows.
var schemaExpectations = []struct {
	model       interface{ TableName() string }
	indexColumn string
}{
	{Account{}, ""},
	{LedgerEntry{}, "account_id"},
}

// VerifySchema checks that the externally-migrated billing schema contains
// everything the reconciler consumes: both tables, their columns, and the
// ledger_entries.account_id index. Migrations are someone else's job; this
// only reports what is missing.
func VerifySchema(db *gorm.DB) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Matched: true,
		Tables:  make(map[string]TableReport),
	}

	for _, expected := range schemaExpectations {
		tableName := expected.model.TableName()
		tblReport := TableReport{
			Status:         "ok",
			MissingColumns: []string{},
		}

		actual, err := database.GetTableColumns(db, tableName)
		if err != nil {
			// MySQL reports a missing table as an error; record and move on.
			report.Errors = append(report.Errors, fmt.Sprintf("failed to inspect table %s: %v", tableName, err))
			report.Matched = false
			tblReport.Status = "error"
			report.Tables[tableName] = tblReport
			continue
		}
		if len(actual) == 0 {
			// SQLite reports a missing table as zero columns.
			report.Matched = false
			tblReport.Status = "missing"
			report.Tables[tableName] = tblReport
			continue
		}

		actualSet := make(map[string]bool, len(actual))
		for _, col := range actual {
			actualSet[col.Field] = true
		}

		for _, col := range modelColumns(expected.model) {
			if !actualSet[col] {
				tblReport.MissingColumns = append(tblReport.MissingColumns, col)
				tblReport.Status = "error"
				report.Matched = false
			}
		}

		if expected.indexColumn != "" {
			indexed, err := database.HasIndexOn(db, tableName, expected.indexColumn)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("failed to inspect indexes of %s: %v", tableName, err))
				report.Matched = false
			} else if !indexed {
				tblReport.MissingIndex = true
				report.Matched = false
				if tblReport.Status == "ok" {
					tblReport.Status = "error"
				}
			}
		}

		report.Tables[tableName] = tblReport
	}

	return report, nil
}

// modelColumns extracts the column names from a model's gorm struct tags.
func modelColumns(model any) []string {
	t := reflect.TypeOf(model)
	columns := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if col := gormColumn(t.Field(i).Tag.Get("gorm")); col != "" {
			columns = append(columns, col)
		}
	}
	return columns
}

func gormColumn(tag string) string {
	for _, part := range strings.Split(tag, ";") {
		if col, ok := strings.CutPrefix(part, "column:"); ok {
			return col
		}
	}
	return ""
}
