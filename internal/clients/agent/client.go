package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to the LLM tabular-analysis service: a prompt plus a set
// of named data frames in, a text answer and optionally generated code
// out. The analytics core never calls this; only the API layer does,
// so provider latency or failure cannot affect any computation.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new agent client.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second, // LLM round trips are slow
		},
		log: log.With().Str("client", "agent").Logger(),
	}
}

// Frame is one named table handed to the agent. Columns are parallel
// arrays under their provider column names.
type Frame struct {
	Name    string                   `json:"name"`
	Columns map[string][]interface{} `json:"columns"`
}

// QueryRequest is a natural-language question over a set of frames.
type QueryRequest struct {
	Prompt string  `json:"prompt"`
	Frames []Frame `json:"frames"`
}

// QueryResponse is the agent's answer. Code is present when the agent
// generated an executable snippet alongside the text.
type QueryResponse struct {
	Answer string `json:"answer"`
	Code   string `json:"code,omitempty"`
}

// Query sends a prompt with its frames and returns the agent's answer.
func (c *Client) Query(req QueryRequest) (*QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal agent request: %w", err)
	}

	resp, err := c.client.Post(c.baseURL+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agent service unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent service returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed QueryResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse agent response: %w", err)
	}

	c.log.Debug().Int("prompt_len", len(req.Prompt)).Int("frames", len(req.Frames)).Msg("Agent query complete")
	return &parsed, nil
}
