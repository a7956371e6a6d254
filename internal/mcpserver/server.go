// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes journal tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/archive"
	"github.com/starford/shunya/internal/journal"
	"github.com/starford/shunya/internal/models"
)

const formatURI = "shunya://entry-format"

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *journal.Service
	fetch func(rawURL string, maxBytes int64) ([]byte, string, error)
}

// New creates a new MCP server with all journal tools registered.
func New(svc *journal.Service, version string) *Server {
	s := &Server{svc: svc, fetch: fetchHTTP}

	s.mcp = server.NewMCPServer(
		"Shunya",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List journal entries, newest first, with a short preview of each."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default: all)")),
		mcp.WithNumber("offset", mcp.Description("Number of entries to skip")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read a journal entry in the Markdown entry format."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("create_entry",
		mcp.WithDescription("Create a new journal entry. A mood and non-empty text are required. "+
			"Read the format first via the get_entry_format tool or the "+formatURI+" resource."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Entry text")),
		mcp.WithString("mood", mcp.Required(), mcp.Description("Overall mood"),
			mcp.Enum(moodNames()...)),
		mcp.WithArray("states", mcp.Description("Optional state tags"), mcp.WithStringEnumItems(stateNames())),
		mcp.WithString("image", mcp.Description("Optional image as a base64 data URI")),
		mcp.WithString("caption", mcp.Description("Optional image caption")),
	), s.createEntry)

	s.mcp.AddTool(mcp.NewTool("delete_entry",
		mcp.WithDescription("Delete a journal entry. Deleting an unknown id succeeds without effect."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
	), s.deleteEntry)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Full-text search through entry text, mood, states and image captions."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("attach_image",
		mcp.WithDescription("Attach an image to an existing entry, replacing any previous one. "+
			"Accepts a base64 data URI or an http(s) URL. Supported formats: png, jpeg, gif, webp."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data: URI or http(s) URL of the image")),
		mcp.WithString("caption", mcp.Description("Optional image caption")),
	), s.attachImage)

	s.mcp.AddTool(mcp.NewTool("get_entry_format",
		mcp.WithDescription("Returns the journal entry format: moods, states and the Markdown layout."),
	), s.getEntryFormat)

	// Resource: entry format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Entry Format",
			mcp.WithResourceDescription("Moods, states and Markdown layout of journal entries."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
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

func moodNames() []string {
	out := make([]string, len(models.Moods))
	for i, m := range models.Moods {
		out[i] = m.String()
	}
	return out
}

func stateNames() []string {
	out := make([]string, len(models.States))
	for i, st := range models.States {
		out[i] = st.String()
	}
	return out
}

// intArg reads an optional numeric argument.
func intArg(req mcp.CallToolRequest, name string, def int) int {
	switch v := req.GetArguments()[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// stringArg reads an optional string argument.
func stringArg(req mcp.CallToolRequest, name string) string {
	v, _ := req.GetArguments()[name].(string)
	return v
}

// stringsArg reads an optional array-of-strings argument.
func stringsArg(req mcp.CallToolRequest, name string) ([]string, error) {
	raw, ok := req.GetArguments()[name]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of strings", name)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be an array of strings", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listEntries(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total := s.svc.ListEntries(intArg(req, "limit", 0), intArg(req, "offset", 0))
	return jsonResult(map[string]any{"entries": items, "total": total})
}

func (s *Server) readEntry(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.GetEntry(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	var imageRef string
	if e.Image != nil {
		imageRef = "/api/entries/" + e.ID + "/image"
	}
	doc, err := archive.Encode(e, imageRef)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(doc)), nil
}

func (s *Server) createEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mood, err := req.RequireString("mood")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	states, err := stringsArg(req, "states")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.svc.CreateEntry(ctx, journal.NewEntry{
		Text:     text,
		Mood:     mood,
		States:   states,
		ImageURI: stringArg(req, "image"),
		Caption:  stringArg(req, "caption"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", e.ID)), nil
}

func (s *Server) deleteEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteEntry(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, intArg(req, "limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no entries found"), nil
	}
	return jsonResult(results)
}

func (s *Server) attachImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	caption := stringArg(req, "caption")

	var e models.Entry
	if strings.HasPrefix(rawURL, "data:") {
		e, err = s.svc.AttachImage(ctx, id, rawURL, caption)
	} else {
		e, err = s.attachRemote(ctx, id, rawURL, caption)
	}
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("attached %s to %s", e.Image.MIMEType, e.ID)), nil
}

func (s *Server) getEntryFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntryFormatContract), nil
}

func (s *Server) readEntryFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}
