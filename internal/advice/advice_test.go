package advice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
)

type stubGenerator struct {
	text   string
	err    error
	calls  int
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	return g.text, g.err
}

func ledgerOf(amounts ...int64) []core.Transaction {
	types := []core.TransactionType{core.Income, core.Expense, core.Bill, core.Debt}
	var txs []core.Transaction
	for i, a := range amounts {
		txs = append(txs, core.Transaction{
			ID:     string(rune('a' + i)),
			Date:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			Type:   types[i%len(types)],
			Amount: decimal.NewFromInt(a),
		})
	}
	return txs
}

func TestAdvise(t *testing.T) {
	today := core.NewDay(2026, 3, 10)

	tests := []struct {
		name       string
		gen        *stubGenerator
		wantSource string
		wantText   string
	}{
		{"model answer", &stubGenerator{text: "  Save more.  "}, SourceModel, "Save more."},
		{"model error", &stubGenerator{err: errors.New("quota")}, SourceFallback, FallbackText},
		{"empty answer", &stubGenerator{text: "   "}, SourceFallback, FallbackText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.gen, "", time.Minute, nil)
			got := s.Advise(context.Background(), ledgerOf(100, 30, 10, 5), today)
			if got.Source != tt.wantSource || got.Text != tt.wantText {
				t.Fatalf("got %+v", got)
			}
			if !strings.Contains(tt.gen.prompt, "Income: 100.00") || !strings.Contains(tt.gen.prompt, "English") {
				t.Fatalf("unexpected prompt: %q", tt.gen.prompt)
			}
		})
	}
}

func TestAdvise_NoGenerator(t *testing.T) {
	s := NewService(nil, "Bengali", time.Minute, nil)
	got := s.Advise(context.Background(), nil, core.NewDay(2026, 3, 10))
	if got.Source != SourceFallback {
		t.Fatalf("Source = %q", got.Source)
	}
}

func TestAdvise_Caches(t *testing.T) {
	gen := &stubGenerator{text: "Spend less."}
	s := NewService(gen, "English", time.Minute, nil)
	today := core.NewDay(2026, 3, 10)
	txs := ledgerOf(100, 20)

	s.Advise(context.Background(), txs, today)
	second := s.Advise(context.Background(), txs, today)
	if !second.Cached || gen.calls != 1 {
		t.Fatalf("second call should hit the cache: %+v calls=%d", second, gen.calls)
	}

	s.Advise(context.Background(), ledgerOf(100, 20, 5), today)
	if gen.calls != 2 {
		t.Fatal("a new entry should invalidate the cached advice")
	}
	s.Advise(context.Background(), txs, today.AddDays(1))
	if gen.calls != 3 {
		t.Fatal("a new day should invalidate the cached advice")
	}
}

func TestAdvise_FallbackNotCached(t *testing.T) {
	gen := &stubGenerator{err: errors.New("down")}
	s := NewService(gen, "English", time.Minute, nil)
	today := core.NewDay(2026, 3, 10)

	s.Advise(context.Background(), nil, today)
	gen.err, gen.text = nil, "Back online."
	got := s.Advise(context.Background(), nil, today)
	if got.Text != "Back online." {
		t.Fatalf("recovered model should be used, got %+v", got)
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(core.Totals{
		Income:  decimal.NewFromInt(500),
		Expense: decimal.RequireFromString("12.5"),
		Bill:    decimal.Zero,
		Debt:    decimal.NewFromInt(-80),
	}, "Bengali")

	for _, want := range []string{"Income: 500.00", "Expense: 12.50", "Bills: 0.00", "-80.00", "in Bengali"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", ""); err == nil {
		t.Fatal("expected error without API key")
	}
}
