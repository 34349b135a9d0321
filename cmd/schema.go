package cmd

import (
	"fmt"
	"os"

	"ledger-reconciler/core/config"
	"ledger-reconciler/core/database"
	"ledger-reconciler/core/ledger"
	"ledger-reconciler/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Verify the billing schema the reconciler depends on",
	Long: `Checks that the externally-migrated billing database contains the tables,
columns, and index the reconciler's queries rely on. Migrations are owned by
the billing platform; this only reports what is missing.`,
	Run: func(cmd *cobra.Command, args []string) {
		runSchemaCheck()
	},
}

func init() {
	RootCmd.AddCommand(schemaCmd)
}

func runSchemaCheck() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logg.Fatal("Failed to connect to database", zap.Error(err))
	}

	logg.Info("Checking billing schema...", zap.String("database", cfg.Database.Name))
	schemaReport, err := ledger.VerifySchema(db)
	if err != nil {
		logg.Fatal("Schema check failed", zap.Error(err))
	}

	if schemaReport.Matched {
		logg.Info("Billing schema matches expected definition.")
		return
	}

	logg.Warn("Billing schema mismatches found")
	for table, tblReport := range schemaReport.Tables {
		if tblReport.Status == "ok" {
			continue
		}
		if tblReport.Status == "missing" {
			logg.Warn("Missing Table", zap.String("table", table))
			continue
		}
		if len(tblReport.MissingColumns) > 0 {
			logg.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tblReport.MissingColumns))
		}
		if tblReport.MissingIndex {
			logg.Warn("Missing Index", zap.String("table", table), zap.String("column", "account_id"))
		}
	}
	for _, e := range schemaReport.Errors {
		logg.Error("Inspection Error", zap.String("error", e))
	}
}
