// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/storage/models"
)

var (
	ErrDuplicateKey = errors.New("duplicate key: burn already recorded")
	ErrInvalidInput = errors.New("invalid input")
)

// Store is the append-only ledger of burns made through the portal.
type Store interface {
	// Record appends b. A signature that is already recorded yields ErrDuplicateKey.
	Record(ctx context.Context, b *models.Burn) error

	// BurnedSince sums the burns at or after since.
	BurnedSince(ctx context.Context, since time.Time) (amount.TokenAmount, error)

	// List returns up to limit burns, newest first. A limit of zero or less returns all.
	List(ctx context.Context, limit int) ([]*models.Burn, error)
}

// Validate checks the fields every store requires.
func Validate(b *models.Burn) error {
	if b == nil || b.Signature == "" || b.Account == "" || b.BurnedAt.IsZero() {
		return ErrInvalidInput
	}
	return nil
}
