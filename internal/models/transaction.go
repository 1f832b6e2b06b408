package models

import (
	"math"
	"time"
)

// Direction is the declared flow of a transaction
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Category is a spending or income category from a closed set
type Category string

const (
	CategoryGroceries     Category = "groceries"
	CategoryEntertainment Category = "entertainment"
	CategoryTech          Category = "tech"
	CategoryRent          Category = "rent"
	CategorySubscriptions Category = "subscriptions"
	CategoryDining        Category = "dining"
	CategoryTravel        Category = "travel"
	CategoryBills         Category = "bills"
	CategoryIncome        Category = "income"
	CategoryOther         Category = "other"
)

// Categories lists every known category in a stable order
var Categories = []Category{
	CategoryGroceries,
	CategoryEntertainment,
	CategoryTech,
	CategoryRent,
	CategorySubscriptions,
	CategoryDining,
	CategoryTravel,
	CategoryBills,
	CategoryIncome,
	CategoryOther,
}

// ParseCategory maps free text onto a known category, falling back to other
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}
	return CategoryOther
}

// Transaction represents a financial transaction
type Transaction struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	AccountID   int64     `json:"account_id"`
	Amount      float64   `json:"amount"`
	Direction   Direction `json:"direction"`
	Category    Category  `json:"category"`
	Merchant    string    `json:"merchant"`
	Recurring   bool      `json:"recurring"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsOutflow reports whether money left the account. The declared direction
// wins; the amount sign is only consulted when no direction was recorded.
func (t Transaction) IsOutflow() bool {
	switch t.Direction {
	case DirectionDebit:
		return true
	case DirectionCredit:
		return false
	}
	return t.Amount < 0
}

// Magnitude is the absolute amount regardless of sign conventions
func (t Transaction) Magnitude() float64 {
	return math.Abs(t.Amount)
}

// SignedAmount normalizes the amount so outflows are negative and inflows positive
func (t Transaction) SignedAmount() float64 {
	if t.IsOutflow() {
		return -t.Magnitude()
	}
	return t.Magnitude()
}

// TransactionQuery filters transactions loaded from the store.
// Zero values mean "no constraint".
type TransactionQuery struct {
	UserID        int64
	AccountID     int64
	From          time.Time
	To            time.Time
	OutflowOnly   bool
	RecurringOnly bool
}
