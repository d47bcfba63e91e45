// internal/storage/models/burn.go
package models

import (
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
)

// Burn is one settled burn transaction.
type Burn struct {
	ID        string             `json:"id"`
	Signature string             `json:"signature"`
	Account   string             `json:"account"`
	Amount    amount.TokenAmount `json:"amount"`
	BurnedAt  time.Time          `json:"burned_at"`
}
