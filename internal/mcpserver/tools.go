package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/CognitoIQ/ocxschema/internal/suggest"
	"github.com/CognitoIQ/ocxschema/xsd"
)

type noInput struct{}

type parseInput struct {
	Source string `json:"source" jsonschema:"Path or http(s) URL of the schema"`
}

type summaryOutput struct {
	Version    string         `json:"version"`
	Source     string         `json:"source"`
	Total      int            `json:"total"`
	Counts     map[string]int `json:"counts,omitempty"`
	Documents  []string       `json:"documents,omitempty"`
	Unresolved int            `json:"unresolved"`
}

func (s *Server) handleParse(ctx context.Context, _ *mcp.CallToolRequest, input parseInput) (*mcp.CallToolResult, summaryOutput, error) {
	if input.Source == "" {
		return errResult(errors.New("source is required")), summaryOutput{}, nil
	}
	s.logger.Debug().Str("tool", "schema_parse").Str("source", input.Source).Msg("tool call")
	if err := s.reader.Process(ctx, input.Source); err != nil {
		return errResult(err), summaryOutput{}, nil
	}
	return s.handleSummary(ctx, nil, noInput{})
}

func (s *Server) handleSummary(_ context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, summaryOutput, error) {
	m, err := s.reader.Model()
	if err != nil {
		return errResult(err), summaryOutput{}, nil
	}
	sum := m.Summary()
	out := summaryOutput{
		Version:    sum.Version,
		Source:     m.Source(),
		Total:      sum.Total(),
		Counts:     make(map[string]int, len(sum.Counts)),
		Documents:  sum.Documents,
		Unresolved: len(m.Unresolved()),
	}
	for _, kc := range sum.Counts {
		out.Counts[kc.Kind.String()] = kc.Count
	}
	return nil, out, nil
}

type listInput struct {
	Kind   string `json:"kind" jsonschema:"Declaration kind: element, attribute, attributeGroup, simpleType or complexType"`
	Filter string `json:"filter,omitempty" jsonschema:"Keep names containing this text, ignoring case"`
	Offset int    `json:"offset,omitempty" jsonschema:"Number of results to skip"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 100)"`
}

type declSummary struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Abstract  bool   `json:"abstract,omitempty"`
	Doc       string `json:"doc,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

type listOutput struct {
	Kind  string        `json:"kind"`
	Total int           `json:"total"`
	Items []declSummary `json:"items,omitempty"`
}

func (s *Server) handleList(_ context.Context, _ *mcp.CallToolRequest, input listInput) (*mcp.CallToolResult, listOutput, error) {
	kind, err := xsd.ParseKind(input.Kind)
	if err != nil {
		return errResult(err), listOutput{}, nil
	}
	m, err := s.reader.Model()
	if err != nil {
		return errResult(err), listOutput{}, nil
	}
	filter := strings.ToLower(input.Filter)
	var matched []*xsd.Declaration
	for _, d := range m.Declarations(kind) {
		if filter == "" || strings.Contains(strings.ToLower(d.Name), filter) {
			matched = append(matched, d)
		}
	}
	out := listOutput{Kind: kind.String(), Total: len(matched)}
	for _, d := range paginate(matched, input.Offset, input.Limit) {
		out.Items = append(out.Items, declSummary{
			Name:      d.TypedName(),
			Type:      m.TypedName(d.Type),
			Abstract:  d.Abstract,
			Doc:       d.Doc,
			Namespace: d.Namespace,
		})
	}
	return nil, out, nil
}

// paginate applies offset/limit pagination. A non-positive limit
// selects DefaultLimit.
func paginate[T any](items []T, offset, limit int) []T {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end < offset || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type inspectInput struct {
	Name   string `json:"name" jsonschema:"Declaration name: prefix:name, {namespace}name or a bare name"`
	Kind   string `json:"kind,omitempty" jsonschema:"Only consider this kind: element, attribute, attributeGroup, simpleType or complexType"`
	Source bool   `json:"source,omitempty" jsonschema:"Include the XML source of the declaration"`
}

type memberOutput struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Use         string `json:"use"`
	Cardinality string `json:"cardinality"`
	Choice      bool   `json:"choice,omitempty"`
	Default     string `json:"default,omitempty"`
	Fixed       string `json:"fixed,omitempty"`
	Ref         bool   `json:"ref,omitempty"`
	Doc         string `json:"doc,omitempty"`
}

type inspectOutput struct {
	Name              string         `json:"name"`
	Kind              string         `json:"kind"`
	Namespace         string         `json:"namespace"`
	Type              string         `json:"type"`
	Abstract          bool           `json:"abstract,omitempty"`
	SubstitutionGroup string         `json:"substitution_group,omitempty"`
	Doc               string         `json:"doc,omitempty"`
	Cardinality       string         `json:"cardinality,omitempty"`
	Attributes        []memberOutput `json:"attributes,omitempty"`
	Children          []memberOutput `json:"children,omitempty"`
	Parents           []string       `json:"parents,omitempty"`
	Assertions        []string       `json:"assertions,omitempty"`
	Document          string         `json:"document"`
	Line              int            `json:"line"`
	Source            string         `json:"source,omitempty"`
}

func (s *Server) handleInspect(_ context.Context, _ *mcp.CallToolRequest, input inspectInput) (*mcp.CallToolResult, inspectOutput, error) {
	m, err := s.reader.Model()
	if err != nil {
		return errResult(err), inspectOutput{}, nil
	}
	d := m.Lookup(input.Name)
	if input.Kind != "" {
		kind, err := xsd.ParseKind(input.Kind)
		if err != nil {
			return errResult(err), inspectOutput{}, nil
		}
		d = m.LookupKind(input.Name, kind)
	}
	if d == nil {
		msg := fmt.Sprintf("no declaration named %q", input.Name)
		if alt, ok := suggest.Closest(input.Name, m.ElementNames()); ok {
			msg += fmt.Sprintf("; did you mean %q?", alt)
		}
		return errResult(errors.New(msg)), inspectOutput{}, nil
	}
	out := inspectOutput{
		Name:       d.TypedName(),
		Kind:       d.Kind.String(),
		Namespace:  d.Namespace,
		Type:       m.TypedName(d.Type),
		Abstract:   d.Abstract,
		Doc:        d.Doc,
		Attributes: members(m, d.Attributes),
		Children:   members(m, d.Children),
		Assertions: d.Assertions,
		Document:   d.Document,
		Line:       d.Line,
	}
	if !d.SubstitutionGroup.IsZero() {
		out.SubstitutionGroup = m.TypedName(d.SubstitutionGroup)
	}
	if d.Cardinality != nil {
		out.Cardinality = d.Cardinality.String()
	}
	for _, p := range d.Parents {
		out.Parents = append(out.Parents, m.TypedName(p))
	}
	if input.Source {
		if node := m.Node(d); node != nil {
			out.Source = node.String()
		}
	}
	return nil, out, nil
}

func members(m *xsd.Model, list []xsd.Member) []memberOutput {
	var out []memberOutput
	for _, mb := range list {
		c := mb.Cardinality
		out = append(out, memberOutput{
			Name:        m.TypedName(mb.Tag),
			Type:        m.TypedName(mb.Type),
			Use:         string(c.Use),
			Cardinality: c.String(),
			Choice:      c.Choice,
			Default:     c.Default,
			Fixed:       c.Fixed,
			Ref:         mb.Ref,
			Doc:         mb.Doc,
		})
	}
	return out
}

type namespaceOutput struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
}

type namespacesOutput struct {
	Namespaces []namespaceOutput `json:"namespaces,omitempty"`
}

func (s *Server) handleNamespaces(_ context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, namespacesOutput, error) {
	ns, err := s.reader.Namespaces()
	if err != nil {
		return errResult(err), namespacesOutput{}, nil
	}
	var out namespacesOutput
	for _, n := range ns {
		out.Namespaces = append(out.Namespaces, namespaceOutput{Prefix: n.Prefix, URI: n.URI})
	}
	return nil, out, nil
}

type changesInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"current or all (default all)"`
}

type changeOutput struct {
	Version     string `json:"version"`
	Author      string `json:"author,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

type changesOutput struct {
	Version string         `json:"version"`
	Changes []changeOutput `json:"changes,omitempty"`
}

func (s *Server) handleChanges(_ context.Context, _ *mcp.CallToolRequest, input changesInput) (*mcp.CallToolResult, changesOutput, error) {
	filter := xsd.ChangeAll
	if input.Filter != "" {
		var err error
		if filter, err = xsd.ParseChangeFilter(input.Filter); err != nil {
			return errResult(err), changesOutput{}, nil
		}
	}
	m, err := s.reader.Model()
	if err != nil {
		return errResult(err), changesOutput{}, nil
	}
	out := changesOutput{Version: m.Version()}
	for _, c := range m.Changes(filter) {
		out.Changes = append(out.Changes, changeOutput(c))
	}
	return nil, out, nil
}
