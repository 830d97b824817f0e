package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/prefkeep/internal/form"
	"github.com/kalambet/prefkeep/internal/prefs"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Controller *form.Controller
	Store      prefs.Reader
}

// storedEntry is the JSON body of the prefs://entry resource.
type storedEntry struct {
	form.Entry
	Stored bool `json:"stored"`
}

// NewMCPServer creates an MCP server with the form tools and resources registered.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"prefkeep",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("prefkeep stores one name and email address in the user's preferences."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("save_entry",
			mcp.WithDescription("Save a name and email address, replacing any stored entry. Both must be non-empty."),
			mcp.WithString("name", mcp.Description("Name (nama)"), mcp.Required()),
			mcp.WithString("email", mcp.Description("Email address"), mcp.Required()),
		),
		mcpSaveEntry(deps),
	)

	s.AddTool(
		mcp.NewTool("load_entry",
			mcp.WithDescription("Show the stored name and email address."),
		),
		mcpLoadEntry(deps),
	)

	s.AddTool(
		mcp.NewTool("delete_entry",
			mcp.WithDescription("Delete the stored name and email address."),
		),
		mcpDeleteEntry(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"prefs://entry",
			"Stored Entry",
			mcp.WithResourceDescription("The stored name and email as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceEntry(deps),
	)

	return s
}

func mcpSaveEntry(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in := form.Entry{
			Name:  req.GetString("name", ""),
			Email: req.GetString("email", ""),
		}
		v, err := deps.Controller.Submit(form.ActionSave, in)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save: %v", err)), nil
		}
		if v.Notice == form.MsgEmptyInput {
			return mcpError(v.Notice), nil
		}
		return mcpText(v.Notice), nil
	}
}

func mcpLoadEntry(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v, err := deps.Controller.Handle(form.ActionLoad)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load: %v", err)), nil
		}
		return mcpText(v.Result), nil
	}
}

func mcpDeleteEntry(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v, err := deps.Controller.Handle(form.ActionDelete)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to delete: %v", err)), nil
		}
		return mcpText(v.Notice), nil
	}
}

func mcpResourceEntry(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		e := form.ReadEntry(deps.Store)
		b, err := json.Marshal(storedEntry{Entry: e, Stored: e.Name != "" || e.Email != ""})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entry: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
