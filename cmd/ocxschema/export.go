package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CognitoIQ/ocxschema/internal/sqlexport"
)

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [source]",
		Short: "Write the declarations into a SQLite database",
		Long: `Write the parsed declarations, their members and parents, the
namespaces and the change history into a SQLite database. Each run is
stored as a new export; earlier exports are kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			if out == "" {
				out = a.cfg.Export.Path
			}
			db, err := sqlexport.Open(out)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("migrate %s: %w", out, err)
			}
			id, err := sqlexport.NewExporter(db, a.logger).Export(cmd.Context(), m)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d declarations to %s (export %s)\n", m.Len(), out, id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "database file (default export.path from the config)")
	return cmd
}
