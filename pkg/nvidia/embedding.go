// Package nvidia provides a client for the NVIDIA Integrate embeddings API.
package nvidia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// InputType selects the embedding space side: "query" for search queries,
// "passage" for indexed documents.
type InputType string

const (
	InputTypeQuery   InputType = "query"
	InputTypePassage InputType = "passage"
)

const (
	// Inputs longer than this bypass the cache to bound memory.
	maxCacheableInput = 2048
	cacheSize         = 2048
)

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://integrate.api.nvidia.com/v1"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model   string        `envconfig:"MODEL" split_words:"true" default:"nvidia/nv-embedqa-e5-v5"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Client generates text embeddings, caching recent results.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	cache      *lru.Cache[string, []float32]
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("nvidia base url is required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("nvidia api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "nvidia/nv-embedqa-e5-v5"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache: cache,
	}, nil
}

type embedRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	InputType      string   `json:"input_type"`
	EncodingFormat string   `json:"encoding_format"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text. Blank input yields an empty
// vector without an API call. Short inputs are served from the LRU cache
// when possible.
func (c *Client) Embed(ctx context.Context, text string, inputType InputType) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	cacheable := len(text) <= maxCacheableInput
	key := string(inputType) + "\x00" + text
	if cacheable {
		if vec, ok := c.cache.Get(key); ok {
			return vec, nil
		}
	}

	vec, err := c.embed(ctx, text, inputType)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.Add(key, vec)
	}
	return vec, nil
}

func (c *Client) embed(ctx context.Context, text string, inputType InputType) ([]float32, error) {
	body, err := json.Marshal(embedRequest{
		Input:          []string{text},
		Model:          c.model,
		InputType:      string(inputType),
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding api status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, errors.New("embedding api returned no data")
	}
	return parsed.Data[0].Embedding, nil
}
