package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"techup/lib/logger"
	"techup/lib/types"
)

var GPT3_5_turbo string = "gpt-3.5-turbo"

// ErrNoAPIKey is reported as a fatal outcome when no key is configured.
var ErrNoAPIKey = errors.New("openai api key is not configured")

const (
	// MaxKeywords is the most keywords a summary keeps.
	MaxKeywords = 4
	// maxInputRunes bounds the request size regardless of what the fetcher
	// sends.
	maxInputRunes   = 6000
	defaultTimeout  = 60 * time.Second
	summarizePrompt = "You are a helpful assistant that summarizes tech articles. The user will provide an article text. Your job is to provide a JSON object with two keys: 'summary' (a neutral, factual summary between 40-50 words) and 'keywords' (an array of 3-4 top keywords). If the text is not an article, set 'summary' to an empty string and add an 'error' key explaining why."
)

// Error codes that mean no later call in this run can succeed.
var fatalCodes = []string{"invalid_api_key", "insufficient_quota", "account_deactivated", "invalid_organization"}

type Options struct {
	Token   string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type Summarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	hasKey  bool
	log     *logger.Logger
}

func NewSummarizer(opts Options, log *logger.Logger) *Summarizer {
	cfg := openai.DefaultConfig(opts.Token)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Model == "" {
		opts.Model = GPT3_5_turbo
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Summarizer{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		timeout: opts.Timeout,
		hasKey:  strings.TrimSpace(opts.Token) != "",
		log:     log,
	}
}

type SummaryBox struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
	Error    *string  `json:"error"`
}

// Summarize condenses content into a short summary and a few keywords.
// Failures come back classified: Fatal when the credentials or account are
// unusable, Transient for anything that only affects this item.
func (s *Summarizer) Summarize(ctx context.Context, content string) types.SummaryOutcome {
	if !s.hasKey {
		return types.SummaryOutcome{Kind: types.SummaryFatal, Err: ErrNoAPIKey}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizePrompt},
			{Role: openai.ChatMessageRoleUser, Content: truncate(content, maxInputRunes)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		kind := Classify(err)
		if kind == types.SummaryFatal {
			s.log.Error("ChatCompletion fatal error: %v", err)
		} else {
			s.log.Warning("ChatCompletion error: %v", err)
		}
		return types.SummaryOutcome{Kind: kind, Err: err}
	}
	if len(resp.Choices) == 0 {
		return transient(errors.New("empty completion"))
	}

	summary, err := parseSummary(resp.Choices[0].Message.Content)
	if err != nil {
		s.log.Warning("Unusable summary: %v", err)
		s.log.Debug("OpenAI answer: %v", resp.Choices[0].Message.Content)
		return transient(err)
	}
	return types.SummaryOutcome{Kind: types.Summarized, Summary: summary}
}

func transient(err error) types.SummaryOutcome {
	return types.SummaryOutcome{Kind: types.SummaryTransient, Err: err}
}

func parseSummary(raw string) (types.Summary, error) {
	var box SummaryBox
	if err := json.Unmarshal([]byte(raw), &box); err != nil {
		return types.Summary{}, fmt.Errorf("unmarshalling summary json: %w", err)
	}
	if box.Error != nil && strings.TrimSpace(*box.Error) != "" {
		return types.Summary{}, fmt.Errorf("content rejected: %s", *box.Error)
	}
	summary := strings.TrimSpace(box.Summary)
	if summary == "" {
		return types.Summary{}, errors.New("empty summary")
	}
	return types.Summary{Summary: summary, Keywords: cleanKeywords(box.Keywords)}, nil
}

func cleanKeywords(raw []string) []string {
	keywords := []string{}
	seen := map[string]bool{}
	for _, k := range raw {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, k)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}

// Classify decides whether an API error ends the run.
func Classify(err error) types.SummaryKind {
	if err == nil {
		return types.Summarized
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if isFatalStatus(apiErr.HTTPStatusCode) || isFatalCode(apiErr.Code) || isFatalCode(apiErr.Type) {
			return types.SummaryFatal
		}
		return types.SummaryTransient
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isFatalStatus(reqErr.HTTPStatusCode) {
		return types.SummaryFatal
	}
	return types.SummaryTransient
}

func isFatalStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

func isFatalCode(code any) bool {
	s, ok := code.(string)
	if !ok {
		return false
	}
	for _, c := range fatalCodes {
		if s == c {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
