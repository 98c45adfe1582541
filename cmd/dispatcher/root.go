package main

import (
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/db"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger/console"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand. Defaults come from the
// environment so the same binary runs from cron, containers and a shell.
type globalFlags struct {
	debug    bool
	jsonLogs bool

	databaseURL       string
	sourceDatabaseURL string
	migrationsDir     string

	credentialsFile string
	spreadsheetID   string
	shareDomains    []string

	socModel           string
	relationshipSheets int
}

var global globalFlags

var rootCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Reconcile case records into the dispatch workbook",
	Long: `dispatcher pulls victim and suspect records from the case database,
reconciles them with the collaboration workbook, scores open suspects and
keeps the association graph of suspect contacts up to date.

Configuration is read from flags, environment variables or a .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
			Debug: global.debug,
			JSON:  global.jsonLogs,
		}))
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.BoolVar(&global.debug, "debug", util.GetEnvBool("DEBUG", false), "Enable debug logging")
	f.BoolVar(&global.jsonLogs, "json-logs", util.GetEnvBool("LOG_JSON", false), "Log as JSON")

	f.StringVar(&global.databaseURL, "database-url", util.GetEnv("DATABASE_URL"), "Postgres URL of the graph, lock and run history database")
	f.StringVar(&global.sourceDatabaseURL, "source-database-url", util.GetEnv("SOURCE_DATABASE_URL"), "Postgres URL of the case record database")
	f.StringVar(&global.migrationsDir, "migrations", util.GetEnvString("MIGRATIONS_DIR", db.DefaultMigrationsDir), "Directory with SQL migrations")

	f.StringVar(&global.credentialsFile, "credentials", util.GetEnv("GOOGLE_CREDENTIALS_FILE"), "Google service account key file")
	f.StringVar(&global.spreadsheetID, "spreadsheet", util.GetEnv("SPREADSHEET_ID"), "Id of the dispatch workbook")
	f.StringSliceVar(&global.shareDomains, "share-domain", util.GetEnvList("SHARE_DOMAINS"), "Domain granted write access to new relationship sheets")

	f.StringVar(&global.socModel, "soc-model", util.GetEnv("SOC_MODEL"), "Strength of case model, a local path or s3://<key>")
	f.IntVar(&global.relationshipSheets, "relationship-sheets", util.GetEnvInt("RELATIONSHIP_SHEETS", 3), "Top ranked suspects that get a relationship sheet")
}
