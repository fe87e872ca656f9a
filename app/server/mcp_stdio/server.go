package mcp_stdio

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"supportdesk/app/service/conversation"
	"supportdesk/app/service/session"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	serverName    = "supportdesk"
	serverVersion = "1.0.0"
)

type Sessions interface {
	ProcessTurn(ctx context.Context, req session.Request) session.Response
	ResetSession(sessionID string)
}

type turnResult struct {
	SessionID       string                 `json:"session_id"`
	Conversation    []conversation.Message `json:"conversation"`
	FinalResponse   string                 `json:"final_response"`
	Intent          string                 `json:"intent"`
	Sentiment       string                 `json:"sentiment"`
	NeedsEscalation bool                   `json:"needs_escalation"`
}

type Server struct {
	sessions Sessions
	mcp      *server.MCPServer
}

func New(di *do.Injector) (*Server, error) {
	return NewServer(do.MustInvoke[*session.Service](di)), nil
}

func NewServer(sessions Sessions) *Server {
	s := &Server{
		sessions: sessions,
		mcp:      server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("process_turn",
		mcp.WithDescription("Send a customer message to the support desk and get the reply of this turn."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Customer message")),
		mcp.WithString("customer_id", mcp.Description("Opaque customer identifier")),
	), s.processTurn)

	s.mcp.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Discard a conversation and start over."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
	), s.resetSession)

	return s
}

// Run serves MCP over stdin/stdout until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("MCP server listening on stdio")

	if err := server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return oops.In("mcp").Wrapf(err, "stdio server")
	}

	return nil
}

func (s *Server) processTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := s.sessions.ProcessTurn(ctx, session.Request{
		SessionID:  sessionID,
		CustomerID: request.GetString("customer_id", ""),
		Text:       text,
	})

	data, err := json.Marshal(turnResult{
		SessionID:       resp.SessionID,
		Conversation:    resp.Messages,
		FinalResponse:   resp.ResponseDraft,
		Intent:          string(resp.Intent),
		Sentiment:       string(resp.Sentiment),
		NeedsEscalation: resp.NeedsEscalation,
	})
	if err != nil {
		return nil, oops.In("mcp").Wrapf(err, "marshal turn result")
	}

	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) resetSession(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.sessions.ResetSession(sessionID)

	return mcp.NewToolResultText("new chat started"), nil
}
