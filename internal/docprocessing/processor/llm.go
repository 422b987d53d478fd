package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"github.com/visaeval/visaeval-backend/internal/docprocessing/domain"
	"github.com/visaeval/visaeval-backend/pkg/config"
)

const defaultDocumentConfidence = 0.8

// LLMProcessor extracts documents through an OpenAI-compatible chat completions
// API in JSON mode. Output is validated against a JSON schema per document type
// before it is accepted.
type LLMProcessor struct {
	cfg        config.LLMConfig
	httpClient *http.Client
	schemas    map[domain.DocumentType]documentSchema
}

// NewLLMProcessor fails when no API key is configured so callers can leave
// the processor out of the registry.
func NewLLMProcessor(cfg config.LLMConfig) (*LLMProcessor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	schemas, err := loadSchemas()
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return &LLMProcessor{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		schemas:    schemas,
	}, nil
}

func (p *LLMProcessor) Name() string { return "llm" }

func (p *LLMProcessor) CanProcess(docType domain.DocumentType) bool {
	_, ok := p.schemas[docType]
	return ok
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (p *LLMProcessor) Process(ctx context.Context, data []byte, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	start := time.Now()

	schema, ok := p.schemas[docType]
	if !ok {
		return nil, fmt.Errorf("llm: unsupported document type %s", docType)
	}

	text, err := DocumentText(data)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	var warnings []string
	if p.cfg.MaxInputChars > 0 && utf8.RuneCountInString(text) > p.cfg.MaxInputChars {
		text = string([]rune(text)[:p.cfg.MaxInputChars])
		warnings = append(warnings, fmt.Sprintf("document text truncated to %d characters", p.cfg.MaxInputChars))
	}

	content, err := p.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt(docType, schema.source, text)},
	})
	if err != nil {
		return nil, err
	}

	result, err := schema.schema.Validate(gojsonschema.NewStringLoader(content))
	if err != nil {
		return nil, fmt.Errorf("llm: response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("llm: response does not match %s schema: %s", docType, strings.Join(errs, "; "))
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}

	confidence, ok := doc["confidence"].(float64)
	if !ok {
		confidence = defaultDocumentConfidence
	}
	doc["confidence"] = confidence
	doc["extraction_success"] = true

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("llm: encode document: %w", err)
	}

	return &domain.ExtractionResult{
		DocumentType:     docType,
		Processor:        p.Name(),
		Document:         raw,
		Fields:           flatten(doc, docType, confidence),
		Confidence:       confidence,
		Warnings:         warnings,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// complete sends one chat completion and returns the message content.
func (p *LLMProcessor) complete(ctx context.Context, messages []chatMessage) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:          p.cfg.Model,
		Messages:       messages,
		Temperature:    p.cfg.Temperature,
		MaxTokens:      p.cfg.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: api returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("llm: parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm: api error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: response missing choices")
	}

	content := stripCodeFence(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("llm: empty response content")
	}
	return content, nil
}

// stripCodeFence removes a ```json fence some models add despite JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// flatten lists the non-null scalar leaves of doc as dotted keys, sorted.
func flatten(doc map[string]interface{}, docType domain.DocumentType, confidence float64) []domain.ExtractionField {
	var fields []domain.ExtractionField
	var walk func(prefix string, v interface{})
	walk = func(prefix string, v interface{}) {
		switch t := v.(type) {
		case nil:
		case map[string]interface{}:
			for k, child := range t {
				walk(joinKey(prefix, k), child)
			}
		case []interface{}:
			if len(t) > 0 {
				b, _ := json.Marshal(t)
				fields = append(fields, domain.ExtractionField{Key: prefix, Value: string(b), Confidence: confidence, Source: docType})
			}
		default:
			fields = append(fields, domain.ExtractionField{Key: prefix, Value: fmt.Sprint(t), Confidence: confidence, Source: docType})
		}
	}
	for k, v := range doc {
		if k == "confidence" || k == "extraction_success" {
			continue
		}
		walk(k, v)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	return fields
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
