// Package advice produces a short piece of financial advice from the ledger
// totals. A Gemini model writes it when configured; otherwise, or when the
// model fails, a fixed fallback line is returned.
package advice

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"dailyledger/internal/core"
	"dailyledger/internal/ledger"
	"dailyledger/internal/log"
)

const (
	SourceModel    = "model"
	SourceFallback = "fallback"

	// FallbackText is shown when no model is configured or the call fails.
	FallbackText = "Keep daily spending below your income and set something aside every day."
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Result struct {
	Text   string
	Source string
	Cached bool
}

type Service struct {
	gen      Generator
	language string
	cache    *cache.Cache
	logger   *log.Logger
}

// NewService builds the advice service. gen may be nil, in which case
// every call returns the fallback.
func NewService(gen Generator, language string, ttl time.Duration, logger *log.Logger) *Service {
	if language == "" {
		language = "English"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		gen:      gen,
		language: language,
		cache:    cache.New(ttl, 2*ttl),
		logger:   logger.WithComponent(log.ComponentAdvice),
	}
}

// Advise returns advice for the whole ledger. Results are cached per day and
// ledger length; fallbacks are not cached so a recovered model is used on
// the next call.
func (s *Service) Advise(ctx context.Context, txs []core.Transaction, today core.Day) Result {
	key := fmt.Sprintf("%s:%d", today, len(txs))
	if v, ok := s.cache.Get(key); ok {
		return Result{Text: v.(string), Source: SourceModel, Cached: true}
	}

	if s.gen == nil {
		return Result{Text: FallbackText, Source: SourceFallback}
	}

	totals := ledger.Aggregate(slices.Values(txs))

	text, err := s.gen.Generate(ctx, Prompt(totals, s.language))
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err != nil {
			s.logger.WarnContext(ctx, "Advice generation failed, using fallback", log.FieldError, err.Error())
		}
		return Result{Text: FallbackText, Source: SourceFallback}
	}

	s.cache.SetDefault(key, text)
	return Result{Text: text, Source: SourceModel}
}

// Prompt renders the per-type totals into the model prompt.
func Prompt(t core.Totals, language string) string {
	var b strings.Builder
	b.WriteString("Based on these transactions:\n")
	fmt.Fprintf(&b, "- Income: %s\n", core.FormatAmount(t.Income))
	fmt.Fprintf(&b, "- Expense: %s\n", core.FormatAmount(t.Expense))
	fmt.Fprintf(&b, "- Bills: %s\n", core.FormatAmount(t.Bill))
	fmt.Fprintf(&b, "- Debt (positive borrowed, negative repaid): %s\n", core.FormatAmount(t.Debt))
	fmt.Fprintf(&b, "\nProvide a 2-sentence financial advice in %s.", language)
	return b.String()
}
