package api

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"carousel/internal/generation"
)

// ToolGenerate is the MCP tool name for a generation.
const ToolGenerate = "generate_carousel_text"

func newMCPServer(s *Server, version string) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"carousel",
		version,
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(mcp.NewTool(ToolGenerate,
		mcp.WithDescription("Generate carousel text from a prompt by running a ComfyUI workflow template."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text injected into the template's input node."),
		),
		mcp.WithString("template",
			mcp.Description("Template name; the configured default when omitted."),
		),
	), s.handleGenerateTool)

	return mcpServer
}

// handleGenerateTool reports generation failures as tool errors carrying the
// same "Error: ..." line the HTTP and CLI surfaces show.
func (s *Server) handleGenerateTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	prompt, ok := args["prompt"].(string)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: prompt"), nil
	}
	template, _ := args["template"].(string)

	outcome, err := s.generate(ctx, template, prompt)
	if err != nil {
		return mcp.NewToolResultError(strings.Join(generation.Lines(nil, err), "\n")), nil
	}
	return mcp.NewToolResultText(strings.Join(outcome.Lines, "\n")), nil
}
