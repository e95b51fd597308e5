package mcpserver

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CognitoIQ/ocxschema/xsd"
)

const sample = "../../xsd/testdata/ocx_sample.xsd"

func newTestServer(t *testing.T, parse bool) *Server {
	t.Helper()
	reader := xsd.NewReader(zerolog.Nop())
	if parse {
		require.NoError(t, reader.Process(context.Background(), sample))
	}
	return New(reader, zerolog.Nop())
}

func errText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.True(t, result.IsError)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNotParsed(t *testing.T) {
	s := newTestServer(t, false)
	result, _, err := s.handleSummary(context.Background(), &mcp.CallToolRequest{}, noInput{})
	require.NoError(t, err)
	assert.Contains(t, errText(t, result), "call schema_parse first")
}

func TestParseTool(t *testing.T) {
	s := newTestServer(t, false)
	result, out, err := s.handleParse(context.Background(), &mcp.CallToolRequest{}, parseInput{Source: sample})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, "2.8.7", out.Version)
	assert.Equal(t, 28, out.Total)
	assert.Equal(t, 8, out.Counts["complexType"])
	assert.Len(t, out.Documents, 3)
	assert.Equal(t, 1, out.Unresolved)

	result, _, err = s.handleParse(context.Background(), &mcp.CallToolRequest{}, parseInput{})
	require.NoError(t, err)
	assert.Equal(t, "source is required", errText(t, result))

	result, _, err = s.handleParse(context.Background(), &mcp.CallToolRequest{}, parseInput{Source: "testdata/nope.xsd"})
	require.NoError(t, err)
	assert.Contains(t, errText(t, result), "source not found")
}

func TestListTool(t *testing.T) {
	s := newTestServer(t, true)
	_, out, err := s.handleList(context.Background(), &mcp.CallToolRequest{}, listInput{Kind: "element"})
	require.NoError(t, err)
	assert.Equal(t, "element", out.Kind)
	assert.Equal(t, 7, out.Total)
	require.Len(t, out.Items, 7)
	assert.Equal(t, "ocx:Description", out.Items[0].Name)
	assert.Equal(t, "ocx:DescriptionBase_T", out.Items[0].Type)

	_, out, err = s.handleList(context.Background(), &mcp.CallToolRequest{}, listInput{Kind: "complex", Filter: "_t", Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Total)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "ocx:EntityBase_T", out.Items[0].Name)
	assert.True(t, out.Items[0].Abstract)

	result, _, err := s.handleList(context.Background(), &mcp.CallToolRequest{}, listInput{Kind: "widget"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestInspectTool(t *testing.T) {
	s := newTestServer(t, true)
	_, out, err := s.handleInspect(context.Background(), &mcp.CallToolRequest{}, inspectInput{Name: "Panel", Source: true})
	require.NoError(t, err)
	assert.Equal(t, "ocx:Panel", out.Name)
	assert.Equal(t, "element", out.Kind)
	assert.Equal(t, "ocx:StructurePart", out.SubstitutionGroup)
	assert.Equal(t, "A stiffened panel.", out.Doc)
	assert.Equal(t, []string{"ocx:StructurePart", "ocx:Vessel", "ocx:Vessel_T"}, out.Parents)
	assert.Contains(t, out.Source, "Panel_T")

	var names []string
	for _, c := range out.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"ocx:Description", "ocx:Plate", "ocx:Length"}, names)
	assert.Equal(t, "[0, ∞]", out.Children[1].Cardinality)
	assert.True(t, out.Children[1].Ref)

	result, _, err := s.handleInspect(context.Background(), &mcp.CallToolRequest{}, inspectInput{Name: "Vesel"})
	require.NoError(t, err)
	assert.Contains(t, errText(t, result), `did you mean "ocx:Vessel"?`)

	_, out, err = s.handleInspect(context.Background(), &mcp.CallToolRequest{}, inspectInput{Name: "Vessel_T", Kind: "complexType"})
	require.NoError(t, err)
	assert.Equal(t, "complexType", out.Kind)

	result, _, err = s.handleInspect(context.Background(), &mcp.CallToolRequest{}, inspectInput{Name: "Vessel", Kind: "complexType"})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, _, err = s.handleInspect(context.Background(), &mcp.CallToolRequest{}, inspectInput{Name: "Vessel", Kind: "widget"})
	require.NoError(t, err)
	assert.Contains(t, errText(t, result), "unknown declaration kind")
}

func TestNamespacesAndChangesTools(t *testing.T) {
	s := newTestServer(t, true)
	_, ns, err := s.handleNamespaces(context.Background(), &mcp.CallToolRequest{}, noInput{})
	require.NoError(t, err)
	require.Len(t, ns.Namespaces, 7)
	assert.Equal(t, namespaceOutput{Prefix: "xml", URI: "http://www.w3.org/XML/1998/namespace"}, ns.Namespaces[0])

	_, changes, err := s.handleChanges(context.Background(), &mcp.CallToolRequest{}, changesInput{Filter: "current"})
	require.NoError(t, err)
	assert.Equal(t, "2.8.7", changes.Version)
	assert.Len(t, changes.Changes, 2)

	result, _, err := s.handleChanges(context.Background(), &mcp.CallToolRequest{}, changesInput{Filter: "newest"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{2, 3}, paginate(items, 1, 2))
	assert.Equal(t, items, paginate(items, 0, 0))
	assert.Equal(t, []int{5}, paginate(items, 4, 10))
	assert.Nil(t, paginate(items, 5, 1))
	assert.Nil(t, paginate(items, -1, 1))
}

func startTestSession(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	server := s.MCPServer("test")
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-done
	})
	return session
}

func TestIntegration(t *testing.T) {
	session := startTestSession(t, newTestServer(t, false))
	ctx := context.Background()

	tools, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	slices.Sort(names)
	assert.Equal(t, []string{"schema_changes", "schema_inspect", "schema_list", "schema_namespaces", "schema_parse", "schema_summary"}, names)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "schema_parse",
		Arguments: map[string]any{"source": sample},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "schema_inspect",
		Arguments: map[string]any{"name": "ocx:Vessel_T"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotNil(t, result.StructuredContent)
	data, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out inspectOutput
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "complexType", out.Kind)
	assert.Equal(t, []string{"@imoNumber != ''"}, out.Assertions)
	assert.Len(t, out.Attributes, 5)
}
