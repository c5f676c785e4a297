package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openclinic/docpipeline/internal/core/domain"
	"github.com/openclinic/docpipeline/internal/infrastructure/resilience"
)

// Client talks to an Ollama-compatible backend for the two AI
// capabilities the pipeline consumes: text summarization and vision
// OCR. Calls go through the resilience executor when one is wired.
type Client struct {
	baseURL     string
	genModel    string
	visionModel string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, genModel, visionModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		genModel:    genModel,
		visionModel: visionModel,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		executor:    executor,
	}
}

// Summarizer derives summary, tags, keywords and category from
// extracted text.
type Summarizer struct {
	client *Client
}

func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{client: client}
}

func (s *Summarizer) Summarize(ctx context.Context, text, fileName string) (domain.Summary, error) {
	respText, err := s.client.generateJSON(ctx, s.client.genModel, buildSummaryPrompt(text, fileName), nil)
	if err != nil {
		return domain.Summary{}, err
	}

	var result domain.Summary
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.Summary{}, fmt.Errorf("parse summary json: %w", err)
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}
	return result, nil
}

// Vision recovers text from a base64-encoded JPEG through a
// vision-capable model.
type Vision struct {
	client *Client
}

func NewVision(client *Client) *Vision {
	return &Vision{client: client}
}

func (v *Vision) RecoverText(ctx context.Context, imageBase64 string) (string, error) {
	return v.client.generateText(ctx, v.client.visionModel, buildOCRPrompt(), []string{imageBase64})
}

func (c *Client) generateJSON(ctx context.Context, model, prompt string, images []string) (string, error) {
	reqBody := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	if len(images) > 0 {
		reqBody["images"] = images
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generateText(ctx context.Context, model, prompt string, images []string) (string, error) {
	reqBody := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}
	if len(images) > 0 {
		reqBody["images"] = images
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyBackendError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func classifyBackendError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
