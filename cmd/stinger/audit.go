package main

import (
	"github.com/spf13/cobra"

	"github.com/virtualsteve-star/stinger-sub001/internal/audit"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

var auditCorrelation string

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the persisted audit trail",
	Long: `Audit lists decision entries from the configured SQLite audit sink,
filtered to one correlation id. Requires audit.sqlite_path to be set in
the config.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditCorrelation, "correlation", "", "Correlation id to query (required)")
	auditCmd.MarkFlagRequired("correlation")
}

func runAudit(cmd *cobra.Command, args []string) error {
	if cfg.Audit.SQLitePath == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "audit.sqlite_path is not configured")
	}

	corr, err := types.ParseCorrelationID(auditCorrelation)
	if err != nil {
		return err
	}

	sink, err := audit.NewSQLiteSink(cfg.Audit.SQLitePath)
	if err != nil {
		return err
	}
	defer sink.Close()

	entries, err := sink.Query(cmd.Context(), corr)
	if err != nil {
		return err
	}
	return renderEntries(cmd.OutOrStdout(), entries)
}
