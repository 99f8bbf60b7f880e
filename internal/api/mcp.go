package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Coach   Coacher
	Archive TranscriptStore // optional; the sessions resource omits archive data when nil
}

// NewMCPServer creates an MCP server exposing the coaching operations as
// tools, so agent hosts can drive the coach over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"animo",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("animo — emotion-aware coaching over a local LLM, with per-session conversation memory."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("coach_reply",
			mcp.WithDescription("Classify the emotion of a short Spanish text and generate a brief empathetic coaching reply, keeping per-session conversation memory."),
			mcp.WithString("text", mcp.Description("The user's message"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Conversation thread id (default \"default\")")),
		),
		mcpCoachReply(deps),
	)

	s.AddTool(
		mcp.NewTool("classify_emotion",
			mcp.WithDescription("Classify the emotion of a short Spanish text and return the ranked label probabilities."),
			mcp.WithString("text", mcp.Description("The text to classify"), mcp.Required()),
			mcp.WithNumber("top_k", mcp.Description("Number of ranked labels to return (default 3)")),
		),
		mcpClassifyEmotion(deps),
	)

	s.AddTool(
		mcp.NewTool("reset_session",
			mcp.WithDescription("Clear the conversation history of a coaching session."),
			mcp.WithString("session_id", mcp.Description("Session to clear (default \"default\")")),
		),
		mcpResetSession(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"animo://sessions",
			"Coaching Sessions",
			mcp.WithResourceDescription("Live and archived coaching sessions as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSessions(deps),
	)

	return s
}

func mcpCoachReply(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		sessionID := req.GetString("session_id", "")

		reply, err := deps.Coach.Reply(ctx, text, sessionID)
		if err != nil {
			return mcpError(fmt.Sprintf("coach reply failed: %v", err)), nil
		}

		b, err := json.Marshal(reply)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal reply: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpClassifyEmotion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		topK := req.GetInt("top_k", 3)

		res, err := deps.Coach.Classify(ctx, text, topK)
		if err != nil {
			return mcpError(fmt.Sprintf("classification failed: %v", err)), nil
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResetSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := req.GetString("session_id", "default")

		if err := deps.Coach.ResetSession(sessionID); err != nil {
			return mcpError(fmt.Sprintf("reset failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Session %q reset", sessionID)), nil
	}
}

func mcpResourceSessions(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		payload := map[string]any{
			"live": deps.Coach.SessionIDs(),
		}
		if deps.Archive != nil {
			archived, err := deps.Archive.RecentSessions(20)
			if err != nil {
				return nil, fmt.Errorf("failed to list archived sessions: %w", err)
			}
			payload["archived"] = archived
		}

		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sessions: %w", err)
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
