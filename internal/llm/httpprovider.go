package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider calls an OpenAI- or Anthropic-compatible chat/vision
// endpoint over net/http. No ecosystem HTTP client for either vendor
// appears in the example pack's go.mod (the original Python implementation
// uses vendor SDKs with no Go analogue here), so this talks to each
// vendor's REST API directly with stdlib net/http + encoding/json — see
// DESIGN.md's stdlib-justification entry for this file.
//
// Grounded on original_source/llm/openai_client.go and
// anthropic_client.go's request/response shape, simplified from their
// structured-output JSON-schema mode: requests carry no output schema, and
// the reply text is returned as is for internal/action.Parse to read.
type HTTPProvider struct {
	Vendor      Vendor
	WireModelID string
	APIKey      string
	BaseURL     string // overridable for tests; defaults per vendor when empty
	HTTPClient  *http.Client
}

// NewHTTPProvider resolves alias via the model registry and returns an
// HTTPProvider configured for that model's vendor.
func NewHTTPProvider(alias, apiKey string) (*HTTPProvider, error) {
	entry, err := Resolve(alias)
	if err != nil {
		return nil, err
	}
	return &HTTPProvider{
		Vendor:      entry.Vendor,
		WireModelID: entry.WireModelID,
		APIKey:      apiKey,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (p *HTTPProvider) Model() string { return p.WireModelID }

func (p *HTTPProvider) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

// Call dispatches to the vendor-specific wire format and normalizes the
// reply back into a Response.
func (p *HTTPProvider) Call(ctx context.Context, messages []Message) (Response, error) {
	switch p.Vendor {
	case VendorOpenAI:
		return p.callOpenAI(ctx, messages)
	case VendorAnthropic:
		return p.callAnthropic(ctx, messages)
	default:
		return Response{}, fmt.Errorf("llm: unsupported vendor %q", p.Vendor)
	}
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIMessage struct {
	Role    string               `json:"role"`
	Content []openAIContentPart `json:"content"`
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *HTTPProvider) callOpenAI(ctx context.Context, messages []Message) (Response, error) {
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/chat/completions"
	}

	wireMessages := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		parts := []openAIContentPart{{Type: "text", Text: m.Text}}
		if m.ImageBase64 != "" {
			parts = append(parts, openAIContentPart{
				Type:     "image_url",
				ImageURL: &openAIImageURL{URL: "data:image/jpeg;base64," + m.ImageBase64},
			})
		}
		wireMessages = append(wireMessages, openAIMessage{Role: m.Role, Content: parts})
	}

	reqBody, err := json.Marshal(openAIRequest{Model: p.WireModelID, Messages: wireMessages})
	if err != nil {
		return Response{}, fmt.Errorf("llm: marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return Response{}, fmt.Errorf("llm: build openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	var out openAIResponse
	if err := p.doJSON(req, &out); err != nil {
		return Response{}, err
	}
	if out.Error != nil {
		return Response{}, fmt.Errorf("llm: openai error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return Response{}, fmt.Errorf("llm: openai response had no choices")
	}

	return Response{
		Text:         out.Choices[0].Message.Content,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}, nil
}

type anthropicContentBlock struct {
	Type   string               `json:"type"`
	Text   string               `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *HTTPProvider) callAnthropic(ctx context.Context, messages []Message) (Response, error) {
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1/messages"
	}

	var system string
	wireMessages := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Text
			continue
		}
		blocks := []anthropicContentBlock{{Type: "text", Text: m.Text}}
		if m.ImageBase64 != "" {
			blocks = append(blocks, anthropicContentBlock{
				Type: "image",
				Source: &anthropicImageSource{
					Type:      "base64",
					MediaType: "image/jpeg",
					Data:      m.ImageBase64,
				},
			})
		}
		wireMessages = append(wireMessages, anthropicMessage{Role: m.Role, Content: blocks})
	}

	reqBody, err := json.Marshal(anthropicRequest{
		Model:     p.WireModelID,
		MaxTokens: 4096,
		System:    system,
		Messages:  wireMessages,
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm: marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return Response{}, fmt.Errorf("llm: build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	var out anthropicResponse
	if err := p.doJSON(req, &out); err != nil {
		return Response{}, err
	}
	if out.Error != nil {
		return Response{}, fmt.Errorf("llm: anthropic error: %s", out.Error.Message)
	}
	if len(out.Content) == 0 {
		return Response{}, fmt.Errorf("llm: anthropic response had no content blocks")
	}

	return Response{
		Text:         out.Content[0].Text,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
	}, nil
}

func (p *HTTPProvider) doJSON(req *http.Request, out any) error {
	resp, err := p.client().Do(req)
	if err != nil {
		return fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("llm: http %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("llm: decode response: %w", err)
	}
	return nil
}
