package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/seongjae-dev/optionpulse/internal/config"
	"github.com/seongjae-dev/optionpulse/internal/models"
)

// ErrAIService marks a failed or malformed AI decision. The run
// continues with WAIT defaults when it occurs.
var ErrAIService = errors.New("ai service error")

const advisorSystemPrompt = `You are an options trading analyst. You receive ranked call and put candidates ` +
	`with minimal context and must pick at most one contract per side. Respond with ONLY a JSON object, ` +
	`no prose, no code fences, matching exactly this schema:
{
  "market_sentiment": "<one-sentence market read>",
  "call_suggestion": {"decision": "BUY" or "WAIT", "symbol": "<candidate symbol or empty>", "entry_price": <number>, "reasoning": "<short explanation>", "tags": {"<key>": "<value>"}},
  "put_suggestion": {"decision": "BUY" or "WAIT", "symbol": "<candidate symbol or empty>", "entry_price": <number>, "reasoning": "<short explanation>", "tags": {"<key>": "<value>"}}
}
Only suggest BUY for a symbol that appears in the candidate list for that side.`

// chatClient is the slice of the OpenAI API the advisor needs, kept as
// an interface so tests can stub the reasoning service.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type chatClientWrapper struct {
	client openai.Client
}

func (w *chatClientWrapper) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return w.client.Chat.Completions.New(ctx, params)
}

// Advice is the validated, enriched output of one advisor call.
type Advice struct {
	Sentiment string
	Call      models.Suggestion
	Put       models.Suggestion
}

// Advisor asks the external reasoning service to pick one call and one
// put from the ranked candidates. A missing API key leaves the advisor
// disabled; every call then fails with ErrAIService and the caller
// keeps its WAIT defaults.
type Advisor struct {
	client    chatClient
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewAdvisor(cfg config.OpenAIConfig, logger *logrus.Logger) *Advisor {
	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil {
			timeout = d
		}
	}

	a := &Advisor{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   timeout,
		logger:    logger,
	}

	if cfg.APIKey != "" {
		client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
		a.client = &chatClientWrapper{client: client}
	}

	return a
}

func newAdvisorWithClient(client chatClient, model string, logger *logrus.Logger) *Advisor {
	return &Advisor{
		client:    client,
		model:     model,
		maxTokens: 1024,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// Enabled reports whether an API key was configured.
func (a *Advisor) Enabled() bool {
	return a.client != nil
}

// aiDecision mirrors the JSON contract with the reasoning service.
type aiDecision struct {
	MarketSentiment string       `json:"market_sentiment"`
	CallSuggestion  aiSuggestion `json:"call_suggestion"`
	PutSuggestion   aiSuggestion `json:"put_suggestion"`
}

type aiSuggestion struct {
	Decision   string            `json:"decision"`
	Symbol     string            `json:"symbol"`
	EntryPrice float64           `json:"entry_price"`
	Reasoning  string            `json:"reasoning"`
	Tags       map[string]string `json:"tags"`
}

// Advise sends the minimized top candidates to the reasoning service
// and returns the parsed, enriched suggestion pair. The filtered set is
// used for enrichment so suggestions carry accurate numeric context
// even though the AI only saw a summary.
func (a *Advisor) Advise(ctx context.Context, topCalls, topPuts, filtered []models.Candidate) (*Advice, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("%w: no API key configured", ErrAIService)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	completion, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(a.model),
		MaxTokens: openai.Int(int64(a.maxTokens)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(advisorSystemPrompt),
			openai.UserMessage(buildAdvicePrompt(topCalls, topPuts)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIService, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrAIService)
	}

	raw := extractJSONObject(completion.Choices[0].Message.Content)
	if raw == "" {
		return nil, fmt.Errorf("%w: reply contains no JSON object", ErrAIService)
	}

	var decision aiDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return nil, fmt.Errorf("%w: malformed decision JSON: %v", ErrAIService, err)
	}

	call, err := a.toSuggestion(decision.CallSuggestion, models.SideCall, filtered)
	if err != nil {
		return nil, err
	}
	put, err := a.toSuggestion(decision.PutSuggestion, models.SidePut, filtered)
	if err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"call": call.Decision,
		"put":  put.Decision,
	}).Info("AI advice received")

	return &Advice{
		Sentiment: strings.TrimSpace(decision.MarketSentiment),
		Call:      call,
		Put:       put,
	}, nil
}

func (a *Advisor) toSuggestion(in aiSuggestion, side models.OptionSide, filtered []models.Candidate) (models.Suggestion, error) {
	decision := models.Decision(strings.ToUpper(strings.TrimSpace(in.Decision)))
	if decision != models.DecisionBuy && decision != models.DecisionWait {
		return models.Suggestion{}, fmt.Errorf("%w: invalid decision %q", ErrAIService, in.Decision)
	}

	sug := models.Suggestion{
		Decision:   decision,
		Symbol:     strings.TrimSpace(in.Symbol),
		EntryPrice: decimal.NewFromFloat(in.EntryPrice),
		Reasoning:  strings.TrimSpace(in.Reasoning),
		Tags:       in.Tags,
	}
	if sug.Reasoning == "" {
		sug.Reasoning = models.DefaultReasoning
	}

	if sug.Symbol != "" {
		if match := findCandidate(filtered, side, sug.Symbol); match != nil {
			sug.Display = match.Display
			if sug.EntryPrice.IsZero() {
				sug.EntryPrice = decimal.NewFromFloat(match.Premium)
			}
		} else {
			a.logger.WithFields(logrus.Fields{
				"side":   side,
				"symbol": sug.Symbol,
			}).Warn("AI suggested a symbol outside the filtered set")
		}
	}

	return sug, nil
}

func findCandidate(filtered []models.Candidate, side models.OptionSide, symbol string) *models.Candidate {
	for i := range filtered {
		if filtered[i].Side == side && strings.EqualFold(filtered[i].Symbol, symbol) {
			return &filtered[i]
		}
	}
	return nil
}

// buildAdvicePrompt renders the minimized candidate context: symbol,
// underlying trend, spread and IV only.
func buildAdvicePrompt(topCalls, topPuts []models.Candidate) string {
	var b strings.Builder

	writeSide := func(name string, candidates []models.Candidate) {
		fmt.Fprintf(&b, "%s candidates:\n", name)
		if len(candidates) == 0 {
			b.WriteString("- none\n")
			return
		}
		for _, c := range candidates {
			fmt.Fprintf(&b, "- %s: underlying %+.2f%%, spread %.2f%%, IV %.1f%%\n",
				c.Symbol, c.UnderlyingChangePct, c.SpreadPct, c.ImpliedVol*100)
		}
	}

	writeSide("Call", topCalls)
	b.WriteString("\n")
	writeSide("Put", topPuts)

	return b.String()
}

// extractJSONObject returns the first balanced {...} substring of s,
// tolerating prose or code fences around it. Brace depth is tracked
// outside JSON strings so embedded braces do not truncate the object.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}
