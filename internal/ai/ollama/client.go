// Package ollama generates text with a local Ollama server over its HTTP API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/thomas-vilte/aicommit/internal/ai"
	"github.com/thomas-vilte/aicommit/internal/models"
)

const (
	ProviderName    = "ollama"
	DefaultEndpoint = "http://localhost:11434"
)

// ErrUnreachable indicates the server could not be reached or answered with a
// non-2xx status.
var ErrUnreachable = errors.New("ollama server unreachable")

// ErrMalformedResponse indicates a stream chunk that is not valid JSON, or a
// stream that ended before its final chunk.
var ErrMalformedResponse = errors.New("malformed response")

type request struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	System  string  `json:"system,omitempty"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type options struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// chunk mirrors one line of the streamed response. The counters are only
// present on the final chunk.
type chunk struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a client for the API rooted at endpoint. If httpClient is
// nil a client with a 5s dial timeout is used; the request deadline comes
// from the context.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		}
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     httpClient,
	}
}

func (c *Client) ProviderName() string {
	return ProviderName
}

// Generate streams /api/generate and returns the aggregated response.
func (c *Client) Generate(ctx context.Context, req ai.GenerationRequest) (ai.GenerationResponse, error) {
	payload, err := json.Marshal(request{
		Model:  req.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: true,
		Options: options{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return ai.GenerationResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return ai.GenerationResponse{}, fmt.Errorf("build http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ai.GenerationResponse{}, fmt.Errorf("ollama generate: %w", errors.Join(ErrUnreachable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ai.GenerationResponse{}, fmt.Errorf("ollama generate: %w: HTTP %d: %s",
			ErrUnreachable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var (
		out   strings.Builder
		usage models.TokenUsage
		done  bool
	)
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ch chunk
		if err := json.Unmarshal(line, &ch); err != nil {
			return ai.GenerationResponse{}, fmt.Errorf("ollama generate: %w: %v", ErrMalformedResponse, err)
		}
		if ch.Error != "" {
			return ai.GenerationResponse{}, fmt.Errorf("ollama generate: %s", ch.Error)
		}
		out.WriteString(ch.Response)
		if ch.Done {
			usage = models.NewTokenUsage(ch.PromptEvalCount, ch.EvalCount)
			done = true
			break
		}
	}
	if err := sc.Err(); err != nil {
		return ai.GenerationResponse{}, fmt.Errorf("ollama generate: read stream: %w", err)
	}
	if !done {
		return ai.GenerationResponse{}, fmt.Errorf("ollama generate: %w: stream ended without a final chunk", ErrMalformedResponse)
	}

	usage.Model = req.Model
	return ai.GenerationResponse{
		Text:  strings.TrimSpace(out.String()),
		Usage: usage,
	}, nil
}
