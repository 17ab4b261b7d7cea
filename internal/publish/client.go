package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"property-capture-go/internal/logger"
)

const (
	defaultBaseURL = "https://api.notion.com"
	notionVersion  = "2022-06-28"
	requestTimeout = 30 * time.Second
	maxRetryTime   = 15 * time.Second

	// Notion allows ~3 requests/second; 350ms spacing keeps some margin.
	// One limiter per client serializes calls across all concurrent
	// captures' pipelines.
	rateFloor = 350 * time.Millisecond
)

// Client is a thin Notion REST client with a shared rate gate and
// transport-level retry on transient failures.
type Client struct {
	apiKey     string
	databaseID string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

func NewClient(apiKey, databaseID, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		databaseID: databaseID,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(rateFloor), 1),
		log:        logger.New(),
	}
}

func NewClientFromEnv() *Client {
	return NewClient(
		os.Getenv("NOTION_API_KEY"),
		os.Getenv("NOTION_DATABASE_ID"),
		os.Getenv("NOTION_API_URL"),
	)
}

// Configured reports whether credentials and a target collection are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.databaseID != ""
}

// doJSON performs one rate-gated API call. 5xx and network errors retry with
// backoff; 4xx responses are permanent.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var lastErr error
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Notion-Version", notionVersion)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("notion server error (%d): %s", resp.StatusCode, respBody)
			return lastErr
		}
		if resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("notion API error (%d): %s", resp.StatusCode, respBody)
			return backoff.Permanent(lastErr)
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				lastErr = fmt.Errorf("decode notion response: %w", err)
				return backoff.Permanent(lastErr)
			}
		}
		lastErr = nil
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxRetryTime
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}

// QueryByTitle searches the collection for an entry whose title property
// exactly matches. Returns "" when nothing matches.
func (c *Client) QueryByTitle(ctx context.Context, title string) (string, error) {
	body := map[string]any{
		"filter": map[string]any{
			"property": "Property Name",
			"title":    map[string]any{"equals": title},
		},
		"page_size": 1,
	}
	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/databases/"+c.databaseID+"/query", body, &out); err != nil {
		return "", err
	}
	if len(out.Results) == 0 {
		return "", nil
	}
	return out.Results[0].ID, nil
}

// CreatePage creates a new entry in the collection and returns its ID.
func (c *Client) CreatePage(ctx context.Context, properties map[string]any) (string, error) {
	body := map[string]any{
		"parent":     map[string]any{"database_id": c.databaseID},
		"properties": properties,
		"icon":       map[string]any{"type": "emoji", "emoji": "🏠"},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/pages", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdatePage replaces an entry's structured properties.
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties map[string]any) error {
	body := map[string]any{"properties": properties}
	return c.doJSON(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, nil)
}

// ListChildren returns IDs of the first page of child blocks.
func (c *Client) ListChildren(ctx context.Context, blockID string) ([]string, error) {
	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/blocks/"+blockID+"/children?page_size=100", nil, &out); err != nil {
		return nil, err
	}
	ids := make([]string, len(out.Results))
	for i, r := range out.Results {
		ids[i] = r.ID
	}
	return ids, nil
}

// DeleteBlock archives one block.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/blocks/"+blockID, nil, nil)
}

// AppendChildren appends up to one batch of blocks to a page.
func (c *Client) AppendChildren(ctx context.Context, blockID string, children []Block) error {
	body := map[string]any{"children": children}
	return c.doJSON(ctx, http.MethodPatch, "/v1/blocks/"+blockID+"/children", body, nil)
}
