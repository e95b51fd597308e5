package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CognitoIQ/ocxschema/internal/suggest"
	"github.com/CognitoIQ/ocxschema/report"
	"github.com/CognitoIQ/ocxschema/xsd"
)

func (a *app) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [source]",
		Short: "Parse a schema and report what was loaded",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Parsed %s (schema version %s, XML %s, %s)\n",
				m.Source(), m.Version(), m.DocXMLVersion(), m.DocEncoding())
			if err := a.print(out, report.Summary(m.Summary())); err != nil {
				return err
			}
			if unresolved := m.Unresolved(); len(unresolved) > 0 {
				fmt.Fprintf(out, "\n%d unresolved references:\n", len(unresolved))
				for _, u := range unresolved {
					fmt.Fprintf(out, "  %s\n", u)
				}
			}
			return nil
		},
	}
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [source]",
		Short: "Show the schema version and declaration counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), report.Summary(m.Summary()))
		},
	}
}

func (a *app) listCmd(use, short string, kind xsd.Kind) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   use + " [source]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			decls := m.Declarations(kind)
			if filter != "" {
				f := strings.ToLower(filter)
				kept := decls[:0]
				for _, d := range decls {
					if strings.Contains(strings.ToLower(d.Name), f) {
						kept = append(kept, d)
					}
				}
				decls = kept
			}
			return a.print(cmd.OutOrStdout(), report.Declarations(m, decls))
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "keep names containing this text, ignoring case")
	return cmd
}

func (a *app) namespacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces [source]",
		Short: "List the namespace prefixes of the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), report.Namespaces(m.Namespaces()))
		},
	}
}

func (a *app) changesCmd() *cobra.Command {
	var which string
	cmd := &cobra.Command{
		Use:   "changes [source]",
		Short: "List the schema change history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := xsd.ParseChangeFilter(which)
			if err != nil {
				return err
			}
			m, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), report.Changes(m.Changes(filter)))
		},
	}
	cmd.Flags().StringVar(&which, "version", string(xsd.ChangeAll), "current or all")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	var children, attributes, parents, assertions, source bool
	var kind string
	cmd := &cobra.Command{
		Use:   "inspect NAME [source]",
		Short: "Show one declaration",
		Long: `Show one declaration by name. NAME may be prefix:name, {namespace}name
or a bare name. When several kinds share the name, --kind selects one.
Without section flags the declaration, its attributes and its children
are shown.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(cmd.Context(), args[1:])
			if err != nil {
				return err
			}
			name := args[0]
			d := m.Lookup(name)
			if kind != "" {
				k, err := xsd.ParseKind(kind)
				if err != nil {
					return err
				}
				d = m.LookupKind(name, k)
			}
			if d == nil {
				msg := fmt.Sprintf("no declaration named %q", name)
				if alt, ok := suggest.Closest(name, m.ElementNames()); ok {
					msg += fmt.Sprintf(". Did you mean %q?", alt)
				}
				return errors.New(msg)
			}

			out := cmd.OutOrStdout()
			if !children && !attributes && !parents && !assertions && !source {
				t := report.Declarations(m, []*xsd.Declaration{d})
				t.Title = d.Kind.String() + " " + d.TypedName()
				if err := a.print(out, t); err != nil {
					return err
				}
				attributes, children = true, true
			}
			var tables []report.Table
			if attributes {
				tables = append(tables, report.Members(m, "Attributes", d.Attributes))
			}
			if children {
				tables = append(tables, report.Members(m, "Children", d.Children))
			}
			if parents {
				tables = append(tables, report.Parents(m, d))
			}
			if assertions {
				tables = append(tables, report.Assertions(d))
			}
			for _, t := range tables {
				if err := a.print(out, t); err != nil {
					return err
				}
			}
			if source {
				if node := m.Node(d); node != nil {
					fmt.Fprintf(out, "%s:%d\n%s\n", d.Document, d.Line, node)
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&children, "children", false, "show the child elements")
	flags.BoolVar(&attributes, "attributes", false, "show the attributes")
	flags.BoolVar(&parents, "parents", false, "show the declarations using this one")
	flags.BoolVar(&assertions, "assertions", false, "show the assertions")
	flags.BoolVar(&source, "source", false, "show the XML source")
	flags.StringVar(&kind, "kind", "", "only consider declarations of this kind (element, attribute, attributeGroup, simpleType, complexType)")
	return cmd
}
