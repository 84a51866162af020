// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the OpenPecha catalog to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/openpecha/catalog/internal/apperr"
	"github.com/openpecha/catalog/internal/catalog"
	"github.com/openpecha/catalog/internal/index"
	"github.com/openpecha/catalog/internal/models"
)

const contractURI = "openpecha://payload-format"

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp *server.MCPServer
	svc *catalog.Service
}

// New creates a new MCP server with all catalog tools registered.
func New(svc *catalog.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"OpenPecha Catalog",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_texts",
		mcp.WithDescription("List texts from the OpenPecha catalog, one page at a time."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 30)")),
		mcp.WithNumber("offset", mcp.Description("Number of texts to skip")),
		mcp.WithString("language", mcp.Description("Optional language code filter, e.g. bo or en")),
	), s.listTexts)

	s.mcp.AddTool(mcp.NewTool("get_text",
		mcp.WithDescription("Fetch a single text by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Text id")),
	), s.getText)

	s.mcp.AddTool(mcp.NewTool("list_text_instances",
		mcp.WithDescription("List the editions (instances) of a text."),
		mcp.WithString("text_id", mcp.Required(), mcp.Description("Text id")),
	), s.listTextInstances)

	s.mcp.AddTool(mcp.NewTool("get_instance",
		mcp.WithDescription("Fetch one instance with its content and annotations."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Instance id")),
	), s.getInstance)

	s.mcp.AddTool(mcp.NewTool("list_persons",
		mcp.WithDescription("List persons (authors, translators, ...) from the catalog."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 10)")),
		mcp.WithNumber("offset", mcp.Description("Number of persons to skip")),
	), s.listPersons)

	s.mcp.AddTool(mcp.NewTool("get_person",
		mcp.WithDescription("Fetch a single person by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Person id")),
	), s.getPerson)

	s.mcp.AddTool(mcp.NewTool("search_catalog",
		mcp.WithDescription("Search titles and names of texts and persons already seen by the gateway."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("kind", mcp.Description("Optional kind filter: text or person")),
	), s.searchCatalog)

	s.mcp.AddTool(mcp.NewTool("find_referrers",
		mcp.WithDescription("Find texts that name the given text as parent or the given person as contributor."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Text or person id")),
	), s.findReferrers)

	s.mcp.AddTool(mcp.NewTool("create_text",
		mcp.WithDescription("Create a text. The payload MUST follow the catalog payload contract; "+
			"read it first via get_payload_contract or the "+contractURI+" resource."),
		mcp.WithString("payload", mcp.Required(), mcp.Description("Text JSON object")),
	), s.createText)

	s.mcp.AddTool(mcp.NewTool("create_person",
		mcp.WithDescription("Create a person with an English and/or Tibetan name."),
		mcp.WithString("name_en", mcp.Description("English name")),
		mcp.WithString("name_bo", mcp.Description("Tibetan name")),
	), s.createPerson)

	s.mcp.AddTool(mcp.NewTool("get_payload_contract",
		mcp.WithDescription("Returns the JSON payload contract for texts, instances and persons."),
	), s.getPayloadContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Payload Contract",
			mcp.WithResourceDescription("JSON shapes accepted when creating catalog resources."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listTexts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.svc.ListTexts(ctx, models.TextFilter{
		Limit:    req.GetInt("limit", models.DefaultTextLimit),
		Offset:   req.GetInt("offset", 0),
		Language: req.GetString("language", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(page), nil
}

func (s *Server) getText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.GetText(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listTextInstances(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("text_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.ListTextInstances(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getInstance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.GetInstance(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listPersons(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.svc.ListPersons(ctx, models.PersonFilter{
		Limit:  req.GetInt("limit", models.DefaultPersonLimit),
		Offset: req.GetInt("offset", 0),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(page), nil
}

func (s *Server) getPerson(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.GetPerson(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, index.Kind(req.GetString("kind", "")), 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches found"), nil
	}
	return jsonResult(results), nil
}

func (s *Server) findReferrers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.svc.Referrers(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no referrers found"), nil
	}
	return jsonResult(refs), nil
}

func (s *Server) createText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := req.RequireString("payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.CreateText(ctx, []byte(payload))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createPerson(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := models.Localized{}
	if v := req.GetString("name_en", ""); v != "" {
		name["en"] = v
	}
	if v := req.GetString("name_bo", ""); v != "" {
		name["bo"] = v
	}
	body, _ := json.Marshal(map[string]any{"name": name})
	data, err := s.svc.CreatePerson(ctx, body)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getPayloadContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TextFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     TextFormatContract,
		},
	}, nil
}

// toolError renders a service error as a tool error result.
func toolError(err error) *mcp.CallToolResult {
	if v, ok := apperr.AsValidation(err); ok {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", v.Message, v.Details))
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}
