package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the queryexport application
var rootCmd = &cobra.Command{
	Use:   "queryexport",
	Short: "Export PostgreSQL query results to Excel and email them",
	Long: `queryexport runs read-only SQL queries against PostgreSQL, writes the rows
to an .xlsx spreadsheet and emails the file to a configured list of recipients.

It can run as:
  - An MCP (Model Context Protocol) server exposing the
    export_query_result_to_excel_and_email tool (serve)
  - A one-shot command line export (export)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "queryexport version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
