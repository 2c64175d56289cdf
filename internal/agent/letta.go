package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sanctumos/code-buddy/core/config"
	"github.com/sanctumos/code-buddy/internal/model"
)

// Notifier delivers a stored event to an agent. Implementations are
// stateless; a failed notification is the caller's to log and drop.
type Notifier interface {
	NotifyEvent(ctx context.Context, event *model.Event) error
}

// LettaClient sends messages to a Letta agent over its REST API.
type LettaClient struct {
	httpClient *http.Client
	cfg        config.LettaConfig
	logger     *slog.Logger
}

// NewLettaClient validates the configuration and returns a client. The base
// URL and agent ID are required; token, project and identity are optional.
func NewLettaClient(cfg config.LettaConfig, logger *slog.Logger) (*LettaClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("letta base URL is required")
	}
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("letta agent ID is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &LettaClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// NotifyEvent formats the event into a readable message and sends it to the
// configured agent.
func (c *LettaClient) NotifyEvent(ctx context.Context, event *model.Event) error {
	_, err := c.SendMessage(ctx, FormatEvent(event))
	return err
}

type lettaMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	SenderID string `json:"sender_id,omitempty"`
}

type lettaMessagesRequest struct {
	Messages []lettaMessage `json:"messages"`
}

type lettaMessagesResponse struct {
	Messages []struct {
		Content string `json:"content"`
	} `json:"messages"`
}

// SendMessage posts a user message to the agent and returns the agent's last
// response message, if any.
func (c *LettaClient) SendMessage(ctx context.Context, content string) (string, error) {
	body, err := json.Marshal(lettaMessagesRequest{
		Messages: []lettaMessage{{
			Role:     "user",
			Content:  content,
			SenderID: c.cfg.IdentityID,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/v1/agents/%s/messages", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.AgentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if c.cfg.Project != "" {
		req.Header.Set("X-Project", c.cfg.Project)
	}

	c.logger.InfoContext(ctx, "sending message to agent",
		"agent_id", c.cfg.AgentID,
		"preview", preview(content),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("agent API returned %d: %s", resp.StatusCode, preview(string(respBody)))
	}

	var parsed lettaMessagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		c.logger.WarnContext(ctx, "no response messages from agent")
		return "", nil
	}

	reply := parsed.Messages[len(parsed.Messages)-1].Content
	c.logger.InfoContext(ctx, "agent responded",
		"duration_ms", time.Since(start).Milliseconds(),
		"preview", preview(reply),
	)
	return reply, nil
}

func preview(s string) string {
	if len(s) <= 100 {
		return s
	}
	return s[:100] + "..."
}
