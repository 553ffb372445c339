package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/matjip/internal/backup"
	"github.com/sells-group/matjip/internal/store"
)

var (
	exportOut    string
	exportRegion string
	importIn     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Back up restaurant records to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		out := exportOut
		if out == "" {
			out = fmt.Sprintf("matjip-%s.xlsx", time.Now().Format("20060102"))
		}
		n, err := backup.Export(ctx, st, store.ListFilter{Region: exportRegion}, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d restaurants to %s\n", n, out)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore restaurant records from an XLSX backup",
	Long:  "Upserts every record of a workbook written by export. Records already in the store are merged, so mention counts add up; restore into an empty store for an exact copy.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := backup.Import(ctx, st, importIn, cfg.Store.BatchSize)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d rows (%d skipped, %d failed)\n",
			res.Stored, res.Rows, res.Skipped, len(res.Failed))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "%s store migrated\n", storeDriver())
		return nil
	},
}

func storeDriver() string {
	if cfg.Store.Driver == "" {
		return "sqlite"
	}
	return cfg.Store.Driver
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default matjip-YYYYMMDD.xlsx)")
	exportCmd.Flags().StringVar(&exportRegion, "region", "", "only export this region")
	importCmd.Flags().StringVar(&importIn, "in", "", "backup workbook to restore")
	_ = importCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(exportCmd, importCmd, migrateCmd)
}
