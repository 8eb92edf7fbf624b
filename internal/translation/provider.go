// Package translation talks to an LLM to translate form content.
package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quillform/quillform/internal/config"
	"go.uber.org/zap"
)

// ErrUnavailable hides upstream failures from callers.
var ErrUnavailable = errors.New("could not get a translation")

// Language enumerates the translation targets offered to users.
type Language string

const (
	LanguageEnglish  Language = "English"
	LanguageFrench   Language = "French"
	LanguageChinese  Language = "Chinese"
	LanguageJapanese Language = "Japanese"
	LanguageSpanish  Language = "Spanish"
	LanguageGerman   Language = "German"
)

func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageFrench, LanguageChinese,
		LanguageJapanese, LanguageSpanish, LanguageGerman:
		return true
	}
	return false
}

// Provider answers free-form prompts. Gemini is the only backend today.
type Provider interface {
	Ask(ctx context.Context, message string) (string, error)
}

const (
	geminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta/models"
	requestTimeout = 30 * time.Second
)

type GeminiProvider struct {
	log     *zap.Logger
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewGemini(cfg config.Config, log *zap.Logger) *GeminiProvider {
	return &GeminiProvider{
		log:     log.Named("translation.gemini"),
		client:  &http.Client{Timeout: requestTimeout},
		baseURL: geminiBaseURL,
		apiKey:  cfg.GeminiAPIKey,
		model:   cfg.GeminiModel,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func (p *GeminiProvider) Ask(ctx context.Context, message string) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: message}}}},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		p.baseURL, p.model, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Error("gemini request failed", zap.Error(err))
		return "", ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.log.Error("gemini returned non-200", zap.Int("status", resp.StatusCode))
		return "", ErrUnavailable
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", ErrUnavailable
	}
	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		p.log.Error("gemini response unparseable", zap.Error(err))
		return "", ErrUnavailable
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrUnavailable
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
