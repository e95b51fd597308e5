// Package mcpserver exposes the queries of a schema Reader as MCP
// tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/CognitoIQ/ocxschema/xsd"
	"github.com/CognitoIQ/ocxschema/xsderrors"
)

const serverInstructions = `ocxschema MCP server: answers questions about an OCX XML schema.

Call schema_parse first unless the server was started with a schema. Then use schema_summary for counts,
schema_list to browse declarations of one kind, schema_inspect for the attributes, children, parents and
assertions of one declaration, schema_namespaces for prefixes and schema_changes for the version history.

Names may be given as prefix:name (ocx:Vessel), {namespace}name or a bare name.`

// DefaultLimit is the page size of schema_list.
const DefaultLimit = 100

// A Server answers tool calls from a Reader.
type Server struct {
	reader *xsd.Reader
	logger zerolog.Logger
}

// New returns a Server for reader.
func New(reader *xsd.Reader, logger zerolog.Logger) *Server {
	return &Server{reader: reader, logger: logger}
}

// MCPServer builds the MCP server with every tool registered.
func (s *Server) MCPServer(version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "ocxschema", Version: version},
		&mcp.ServerOptions{Instructions: serverInstructions},
	)
	s.register(server)
	return server
}

// Run serves over stdio until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context, version string) error {
	s.logger.Info().Msg("mcp server listening on stdio")
	return s.MCPServer(version).Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "schema_parse",
		Description: "Parse an OCX schema from a local path or an http(s) URL, following its imports. Replaces the current schema. Returns the schema summary.",
	}, s.handleParse)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "schema_summary",
		Description: "Summarize the parsed schema: schema version, number of declarations of each kind, loaded documents and unresolved references.",
	}, s.handleSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "schema_list",
		Description: "List the global declarations of one kind (element, attribute, attributeGroup, simpleType, complexType), sorted by name. Use filter to keep names containing a substring, and offset/limit to page.",
	}, s.handleList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "schema_inspect",
		Description: "Show one declaration with its type, documentation, attributes, children, parents and assertions. Unknown names return an error with the closest known name. Set source=true to include the XML it was declared with.",
	}, s.handleInspect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "schema_namespaces",
		Description: "List the namespace prefixes bound by the loaded schema documents.",
	}, s.handleNamespaces)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "schema_changes",
		Description: "List the schema change history. filter=current keeps only the entries of the current schema version; the default is all.",
	}, s.handleChanges)
}

// errResult creates an MCP error result from an error.
func errResult(err error) *mcp.CallToolResult {
	msg := err.Error()
	if errors.Is(err, xsderrors.ErrNotParsed) {
		msg = fmt.Sprintf("%s: call schema_parse first", msg)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
