package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"

	"github.com/sanctumos/code-buddy/common/id"
)

const protocolVersion = "2024-11-05"

// Server speaks the Model Context Protocol over the SSE transport: a client
// opens GET /sse, learns its session's message endpoint, and posts JSON-RPC
// requests there; responses flow back over the event stream. The server
// holds no state beyond live sessions; every tool call reads through the
// query service it was built with.
type Server struct {
	name     string
	version  string
	tools    []Tool
	logger   *slog.Logger
	mu       sync.Mutex
	sessions map[string]chan []byte
}

func NewServer(name, version string, tools []Tool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		name:     name,
		version:  version,
		tools:    tools,
		logger:   logger,
		sessions: make(map[string]chan []byte),
	}
}

func (s *Server) Register(router *gin.Engine) {
	router.GET("/sse", s.handleSSE)
	router.POST("/messages/", s.handleMessage)
}

func (s *Server) handleSSE(c *gin.Context) {
	sessionID := id.NewString()
	ch := make(chan []byte, 16)

	s.mu.Lock()
	s.sessions[sessionID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
	}()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: endpoint\ndata: /messages/?session_id=%s\n\n", sessionID)
	c.Writer.Flush()

	s.logger.InfoContext(c.Request.Context(), "session connected", "session_id", sessionID)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "session disconnected", "session_id", sessionID)
			return
		case msg := <-ch:
			fmt.Fprintf(c.Writer, "event: message\ndata: %s\n\n", msg)
			c.Writer.Flush()
		}
	}
}

func (s *Server) handleMessage(c *gin.Context) {
	sessionID := c.Query("session_id")

	s.mu.Lock()
	ch, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	var req rpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON-RPC request"})
		return
	}

	resp := s.dispatch(c, req)
	if resp != nil {
		data, err := json.Marshal(resp)
		if err != nil {
			s.logger.ErrorContext(c.Request.Context(), "failed to encode response", "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		select {
		case ch <- data:
		default:
			s.logger.WarnContext(c.Request.Context(), "dropping response for slow session", "session_id", sessionID)
		}
	}

	c.Status(http.StatusAccepted)
}

func (s *Server) dispatch(c *gin.Context, req rpcRequest) *rpcResponse {
	// Notifications get no response.
	if len(req.ID) == 0 || string(req.ID) == "null" {
		return nil
	}

	switch req.Method {
	case "initialize":
		return result(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    capabilities{Tools: map[string]any{}},
			ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		})

	case "ping":
		return result(req.ID, struct{}{})

	case "tools/list":
		descriptors := make([]toolDescriptor, 0, len(s.tools))
		for _, tool := range s.tools {
			descriptors = append(descriptors, toolDescriptor{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			})
		}
		return result(req.ID, listToolsResult{Tools: descriptors})

	case "tools/call":
		var params callToolParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return rpcFailure(req.ID, -32602, "invalid params")
			}
		}
		return result(req.ID, s.callTool(c, params))

	default:
		return rpcFailure(req.ID, -32601, fmt.Sprintf("method not found: %s", req.Method))
	}
}

// callTool runs the named tool. Tool failures are reported inside the result
// content rather than as protocol errors, so agents see them as data.
func (s *Server) callTool(c *gin.Context, params callToolParams) callToolResult {
	ctx := c.Request.Context()

	for _, tool := range s.tools {
		if tool.Name != params.Name {
			continue
		}

		value, err := tool.Handler(ctx, params.Arguments)
		if err != nil {
			s.logger.WarnContext(ctx, "tool call failed", "tool", tool.Name, "error", err)
			return errorResult(err.Error())
		}

		text, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to encode tool result", "tool", tool.Name, "error", err)
			return errorResult("failed to encode tool result")
		}
		return callToolResult{Content: []textContent{{Type: "text", Text: string(text)}}}
	}

	return errorResult(fmt.Sprintf("Unknown tool: %s", params.Name))
}

func errorResult(message string) callToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return callToolResult{
		Content: []textContent{{Type: "text", Text: string(payload)}},
		IsError: true,
	}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	ServerInfo      serverInfo   `json:"serverInfo"`
}

type capabilities struct {
	Tools map[string]any `json:"tools"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolDescriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

type listToolsResult struct {
	Tools []toolDescriptor `json:"tools"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callToolResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

func result(requestID json.RawMessage, value any) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: requestID, Result: value}
}

func rpcFailure(requestID json.RawMessage, code int, message string) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: requestID, Error: &rpcError{Code: code, Message: message}}
}
