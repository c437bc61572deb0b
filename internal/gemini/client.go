package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

const defaultModel = "gemini-2.0-flash"

var (
	ErrSafetyRefusal = errors.New("model declined to produce content")
	ErrNoCandidates  = errors.New("model returned no candidates")
)

var refusalReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
	"IMAGE_SAFETY":       true,
}

type Options struct {
	APIKey            string
	BaseURL           string
	APIVersion        string
	Model             string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		limiter:    rate.NewLimiter(limit, 1),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	payload := generateContentRequest{
		Contents: buildContents(req),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	if req.Schema != nil {
		payload.GenerationConfig.ResponseMimeType = "application/json"
		payload.GenerationConfig.ResponseSchema = req.Schema
	}

	resp, err := c.generateContent(ctx, payload)
	if err != nil && payload.GenerationConfig.ResponseSchema != nil && isUnknownFieldError(err, "responseSchema") {
		c.logger.Debug("gemini rejected responseSchema, retrying without it", "model", c.model)
		payload.GenerationConfig.ResponseSchema = nil
		return c.generateContent(ctx, payload)
	}
	return resp, err
}

func buildContents(req Request) []content {
	contents := make([]content, 0, len(req.History)+1)

	for _, msg := range req.History {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		contents = append(contents, content{
			Role:  normalizeRole(msg.Role),
			Parts: []part{{Text: text}},
		})
	}

	var current []part
	for _, img := range req.Images {
		if len(img.Data) == 0 {
			continue
		}
		mimeType := img.MimeType
		if mimeType == "" {
			mimeType = http.DetectContentType(img.Data)
		}
		current = append(current, part{InlineData: &blob{
			Data:     base64.StdEncoding.EncodeToString(img.Data),
			MimeType: mimeType,
		}})
	}
	current = append(current, part{Text: strings.TrimSpace(req.Prompt)})

	return append(contents, content{Role: "user", Parts: current})
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "model", "assistant":
		return "model"
	default:
		return "user"
	}
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) (Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return Response{}, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	return extract(decoded)
}

func extract(resp generateContentResponse) (Response, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return Response{}, fmt.Errorf("%w: prompt blocked (%s)", ErrSafetyRefusal, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return Response{}, ErrNoCandidates
	}

	cand := resp.Candidates[0]
	if refusalReasons[cand.FinishReason] {
		return Response{}, fmt.Errorf("%w: finish reason %s", ErrSafetyRefusal, cand.FinishReason)
	}

	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}

	return Response{
		Text:         text.String(),
		FinishReason: cand.FinishReason,
	}, nil
}

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
