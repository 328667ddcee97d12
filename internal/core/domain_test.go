package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"INCOME", Income, true},
		{"expense", Expense, true},
		{" Bill ", Bill, true},
		{"debt", Debt, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q expected ErrInvalidType, got %v", tc.in, err)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		typ     TransactionType
		amount  string
		wantErr error
	}{
		{Income, "0", nil},
		{Income, "100", nil},
		{Income, "-1", ErrNegativeAmount},
		{Expense, "50", nil},
		{Expense, "0", ErrZeroAmount},
		{Expense, "-5", ErrNegativeAmount},
		{Bill, "-0.01", ErrNegativeAmount},
		{Debt, "200", nil},
		{Debt, "-80", nil},
		{Debt, "0", ErrZeroAmount},
		{"OTHER", "1", ErrInvalidType},
	}
	for _, tc := range cases {
		err := ValidateAmount(tc.typ, decimal.RequireFromString(tc.amount))
		if !errors.Is(err, tc.wantErr) && !(err == nil && tc.wantErr == nil) {
			t.Fatalf("%s %s expected %v, got %v", tc.typ, tc.amount, tc.wantErr, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	when := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	good := Transaction{ID: "a", Date: when, Type: Debt, Amount: decimal.NewFromInt(20), PersonName: "Rahim"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{ID: "", Date: when, Type: Expense, Amount: decimal.NewFromInt(1)},
		{ID: "a", Type: Expense, Amount: decimal.NewFromInt(1)},
		{ID: "a", Date: when, Type: "X", Amount: decimal.NewFromInt(1)},
		{ID: "a", Date: when, Type: Debt, Amount: decimal.NewFromInt(1), PersonName: "  "},
		{ID: "a", Date: when, Type: Expense, Amount: decimal.NewFromInt(1), Note: strings.Repeat("n", 201)},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}

	stored := Transaction{ID: "legacy", Date: when, Type: Expense, Amount: decimal.NewFromInt(-3)}
	if err := stored.ValidateStored(); err != nil {
		t.Fatalf("stored entries keep their amount, got %v", err)
	}
}

func TestAppStateClone(t *testing.T) {
	s := AppState{Transactions: []Transaction{{ID: "1"}}}
	c := s.Clone()
	c.Transactions[0].ID = "changed"
	if s.Transactions[0].ID != "1" {
		t.Fatalf("clone shares the ledger backing array")
	}
}

func TestTotals(t *testing.T) {
	var tot Totals
	for _, tx := range []Transaction{
		{Type: Income, Amount: decimal.NewFromInt(500)},
		{Type: Expense, Amount: decimal.NewFromInt(120)},
		{Type: Bill, Amount: decimal.NewFromInt(80)},
		{Type: Debt, Amount: decimal.NewFromInt(200)},
		{Type: Debt, Amount: decimal.NewFromInt(-80)},
	} {
		tot.Add(tx)
	}
	if !tot.Of(Debt).Equal(decimal.NewFromInt(120)) {
		t.Fatalf("debt total = %s", tot.Debt)
	}
	if !tot.Net().Equal(decimal.NewFromInt(300)) {
		t.Fatalf("net = %s", tot.Net())
	}
	var empty Totals
	for _, typ := range TransactionTypes {
		if !empty.Of(typ).IsZero() {
			t.Fatalf("empty totals has non-zero %s", typ)
		}
	}
}
