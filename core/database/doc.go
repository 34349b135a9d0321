// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly
// configure connections to the billing database based on the application's
// configuration.
//
// # Connect
//
// The Connect function establishes a connection using the configured driver.
// MySQL is the production driver; the sqlite driver serves file-based
// databases and tests. The billing schema itself is created by an external
// migration step; this package never creates or alters tables.
//
// # Schema Inspection
//
// The package includes dialect-aware tools to inspect the schema the
// reconciler consumes: table columns (GetTableColumns) and index presence
// (HasIndexOn). The schema command uses these to verify that accounts and
// ledger_entries look the way the engine's queries expect.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "ledger_entries")
package database
