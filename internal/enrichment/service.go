// Package enrichment produces a summary and title guess for a scraped lead
// by calling a generative text model.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ErrEnrichmentFailed wraps every failure of the enrichment call: transport,
// non-2xx, timeout, empty output or a broken parse contract.
var ErrEnrichmentFailed = errors.New("enrichment failed")

const defaultTimeout = 30 * time.Second

// Result is the structured enrichment output.
type Result struct {
	Summary    string `json:"summary" validate:"required"`
	TitleGuess string `json:"title_guess" validate:"required"`
}

// Service calls the model once per lead. It does not retry; a failed lead
// becomes eligible again on the next dispatcher tick.
type Service struct {
	llm     model.LLM
	val     *validator.Validator
	timeout time.Duration
	log     *logger.Logger
}

func New(llm model.LLM, val *validator.Validator, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if val == nil {
		val = validator.New()
	}
	return &Service{llm: llm, val: val, timeout: timeout, log: log}
}

// Enrich runs the prompt for in and parses the reply.
func (s *Service) Enrich(ctx context.Context, in Input) (Result, error) {
	if s == nil || s.llm == nil {
		return Result{}, fmt.Errorf("%w: no model configured", ErrEnrichmentFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	temperature := float32(0.2)
	req := &model.LLMRequest{
		Contents: []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: BuildPrompt(in)}},
		}},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
			ResponseMIMEType:  "application/json",
			Temperature:       &temperature,
		},
	}

	text, err := s.generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%v: %w", err, ctx.Err())
		}
		return Result{}, fmt.Errorf("%w: %v", ErrEnrichmentFailed, err)
	}

	result, err := ParseResult(text, s.val)
	if err != nil {
		if s.log != nil {
			s.log.Debug("enrichment reply rejected", "error", err, "reply_len", len(text))
		}
		return Result{}, err
	}
	return result, nil
}

func (s *Service) generate(ctx context.Context, req *model.LLMRequest) (string, error) {
	var b strings.Builder
	for resp, err := range s.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", err
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String(), nil
}

// ParseResult enforces the reply contract: the trimmed text is exactly one
// JSON object with non-empty summary and title_guess.
func ParseResult(text string, val *validator.Validator) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}, fmt.Errorf("%w: empty reply", ErrEnrichmentFailed)
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Result{}, fmt.Errorf("%w: reply is not a JSON object", ErrEnrichmentFailed)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	var result Result
	if err := dec.Decode(&result); err != nil {
		return Result{}, fmt.Errorf("%w: decode reply: %v", ErrEnrichmentFailed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("%w: trailing content after JSON object", ErrEnrichmentFailed)
	}

	result.Summary = strings.TrimSpace(result.Summary)
	result.TitleGuess = strings.TrimSpace(result.TitleGuess)
	if val == nil {
		val = validator.New()
	}
	if err := val.Struct(result); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrEnrichmentFailed, err)
	}
	return result, nil
}
