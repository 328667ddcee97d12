package core

import "github.com/shopspring/decimal"

// Totals holds one sum per transaction type. The zero value is all zeros.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Bill    decimal.Decimal
	Debt    decimal.Decimal
}

// Add folds a transaction into the total for its type.
func (t *Totals) Add(tx Transaction) {
	switch tx.Type {
	case Income:
		t.Income = t.Income.Add(tx.Amount)
	case Expense:
		t.Expense = t.Expense.Add(tx.Amount)
	case Bill:
		t.Bill = t.Bill.Add(tx.Amount)
	case Debt:
		t.Debt = t.Debt.Add(tx.Amount)
	}
}

// Of returns the total for a single type.
func (t Totals) Of(typ TransactionType) decimal.Decimal {
	switch typ {
	case Income:
		return t.Income
	case Expense:
		return t.Expense
	case Bill:
		return t.Bill
	case Debt:
		return t.Debt
	}
	return decimal.Zero
}

// Net is income minus expenses and bills. Debt is tracked apart.
func (t Totals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expense).Sub(t.Bill)
}
