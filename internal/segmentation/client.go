package segmentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"property-capture-go/internal/logger"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultAPIURL    = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	callTimeout      = 120 * time.Second
	maxTokens        = 8192
)

// Client calls the hosted segmentation model over HTTP.
type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClientFromEnv builds the segmentation service client. With
// USE_MOCK_SEGMENTER=true it returns a deterministic offline mock instead.
func NewClientFromEnv() Completer {
	if os.Getenv("USE_MOCK_SEGMENTER") == "true" {
		logger.New().Info("mock segmenter mode ON")
		return mockClient{}
	}

	apiURL := os.Getenv("ANTHROPIC_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	model := os.Getenv("CLAUDE_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiURL:     apiURL,
		apiKey:     os.Getenv("ANTHROPIC_API_KEY"),
		model:      model,
		httpClient: &http.Client{Timeout: callTimeout},
		log:        logger.New(),
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete performs one model call bounded by a fixed wall-clock timeout.
func (c *Client) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}

	payload := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: userText}},
	}
	data, _ := json.Marshal(payload)

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.apiURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("segmentation service call: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode segmentation service response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if parsed.Error != nil {
			return "", fmt.Errorf("segmentation service error (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("segmentation service error: status %d", resp.StatusCode)
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Type != "text" {
		return "", fmt.Errorf("unexpected segmentation service response: no text content")
	}

	c.log.WithField("response_chars", len(parsed.Content[0].Text)).Debug("segmentation service responded")
	return parsed.Content[0].Text, nil
}

// mockClient returns a fixed two-room result for offline demo runs.
type mockClient struct{}

func (mockClient) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	return `{
  "propertyOverview": { "totalRooms": 2, "propertyType": "house", "estimatedBedrooms": 1, "estimatedBathrooms": 1, "hasOutdoorSpace": false, "generalNotes": "Demo walkthrough" },
  "rooms": [
    { "roomId": "room-1", "roomName": "Primary Bedroom", "roomType": "bedroom", "startTimestamp": 0, "endTimestamp": 45,
      "transcriptExcerpt": "This is the Primary Bedroom.",
      "inventory": [ { "item": "Queen bed", "quantity": 1, "notes": "white duvet", "condition": "good" } ],
      "features": ["ceiling fan"], "quirksAndNotes": [], "accessInfo": [], "cleaningNotes": [] },
    { "roomId": "room-2", "roomName": "Kitchen", "roomType": "kitchen", "startTimestamp": 46, "endTimestamp": 90,
      "transcriptExcerpt": "The kitchen has a gas range.",
      "inventory": [ { "item": "Coffee maker", "quantity": 1, "notes": "", "condition": "good" } ],
      "features": ["gas range"], "quirksAndNotes": ["Disposal switch is under the sink"], "accessInfo": [], "cleaningNotes": [] }
  ],
  "propertyAccess": { "wifiName": "DemoNet", "wifiPassword": "walkthrough", "lockboxCode": "1234", "parkingInstructions": null, "gateCode": null, "otherAccess": [] },
  "systemsAndUtilities": { "hvac": "Central air, thermostat in hallway", "waterHeater": null, "breakerBox": "Garage", "waterShutoff": null, "trashDay": "Tuesday", "otherSystems": [] }
}`, nil
}
