package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/CognitoIQ/ocxschema/config"
	"github.com/CognitoIQ/ocxschema/internal/fetch"
	"github.com/CognitoIQ/ocxschema/internal/logging"
	"github.com/CognitoIQ/ocxschema/report"
	"github.com/CognitoIQ/ocxschema/xsd"
)

// app holds the state shared by all commands.
type app struct {
	// flags
	cfgFile       string
	source        string
	logLevel      string
	format        string
	rowNumbers    bool
	followImports bool

	cfg    *config.Config
	logger zerolog.Logger
	reader *xsd.Reader
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ocxschema",
		Short: "Inspect OCX XML schemas",
		Long: `ocxschema parses an OCX XML schema together with the documents it
imports and answers questions about its global declarations.

The schema is given with --xsd, as the argument of parse, or as
default_schema in the configuration file. Sources may be local paths
or http(s) URLs; downloads are cached in schema_folder.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	flags.StringVar(&a.source, "xsd", "", "schema path or URL")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&a.format, "format", "f", "", "table format: simple, plain, github, tsv, csv, json, yaml")
	flags.BoolVar(&a.rowNumbers, "row-numbers", false, "number the table rows")
	flags.BoolVar(&a.followImports, "follow-imports", true, "load imported and included documents")

	root.AddCommand(
		a.parseCmd(),
		a.summaryCmd(),
		a.listCmd("elements", "List the global elements", xsd.KindElement),
		a.listCmd("complex", "List the global complex types", xsd.KindComplexType),
		a.listCmd("simple", "List the global simple types", xsd.KindSimpleType),
		a.listCmd("attributes", "List the global attributes", xsd.KindAttribute),
		a.listCmd("attribute-groups", "List the global attribute groups", xsd.KindAttributeGroup),
		a.namespacesCmd(),
		a.changesCmd(),
		a.inspectCmd(),
		a.exportCmd(),
		a.serveCmd(),
		a.mcpCmd(),
	)
	return root
}

// setup loads the configuration, applies the flags on top of it and
// builds the logger and reader.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithFallback(a.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("xsd") {
		cfg.DefaultSchema = a.source
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("format") {
		cfg.Table.Format = a.format
	}
	if flags.Changed("row-numbers") {
		cfg.Table.RowNumbers = a.rowNumbers
	}
	if flags.Changed("follow-imports") {
		cfg.FollowImports = &a.followImports
	}
	if _, err := report.ParseFormat(cfg.Table.Format); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	f := fetch.New(cfg.SchemaFolder, a.logger)
	f.Client.Timeout = cfg.HTTP.Timeout
	f.UserAgent = cfg.HTTP.UserAgent
	a.reader = xsd.NewReader(a.logger)
	a.reader.Loader = f
	a.reader.FollowImports = cfg.Follow()
	return nil
}

var errNoSource = errors.New("no schema given: use --xsd, an argument or default_schema in the config file")

// sourceOf picks the schema named by args, falling back to --xsd and
// the configured default.
func (a *app) sourceOf(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.DefaultSchema
}

// load parses the schema and returns its model.
func (a *app) load(ctx context.Context, args []string) (*xsd.Model, error) {
	source := a.sourceOf(args)
	if source == "" {
		return nil, errNoSource
	}
	if err := a.reader.Process(ctx, source); err != nil {
		return nil, err
	}
	return a.reader.Model()
}

// print renders t in the configured format. Titles are printed above
// the text formats only.
func (a *app) print(w io.Writer, t report.Table) error {
	format, err := report.ParseFormat(a.cfg.Table.Format)
	if err != nil {
		return err
	}
	if t.Title != "" {
		switch format {
		case report.Simple, report.Plain:
			fmt.Fprintf(w, "%s:\n", t.Title)
		case report.GitHub:
			fmt.Fprintf(w, "### %s\n\n", t.Title)
		}
	}
	return report.Render(w, t, report.Options{Format: format, RowNumbers: a.cfg.Table.RowNumbers})
}
