package models

import "time"

// Account represents a bank account. OpeningBalance is the balance before
// the first recorded transaction and anchors the daily balance series.
type Account struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	OpeningBalance float64   `json:"opening_balance"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
