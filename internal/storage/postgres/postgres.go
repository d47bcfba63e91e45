// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/storage"
	"github.com/rovshanmuradov/burn-portal/internal/storage/models"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const pgErrUniqueViolation = "23505"

// Store implements storage.Store on PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore connects to dsn and verifies the connection.
func NewStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	config.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger.Named("postgres"),
	}, nil
}

// RunMigrations applies the embedded SQL files in lexical order. Every file is idempotent.
func (s *Store) RunMigrations(ctx context.Context) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		s.logger.Debug("Migration applied", zap.String("file", file))
	}
	return nil
}

func (s *Store) Record(ctx context.Context, b *models.Burn) error {
	if err := storage.Validate(b); err != nil {
		return err
	}
	id := b.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO burns (id, signature, account, amount, burned_at)
		VALUES ($1, $2, $3, $4::numeric, $5)
	`, id, b.Signature, b.Account, b.Amount.String(), b.BurnedAt.UTC())
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert burn: %w", err)
	}
	return nil
}

func (s *Store) BurnedSince(ctx context.Context, since time.Time) (amount.TokenAmount, error) {
	var total string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text FROM burns WHERE burned_at >= $1
	`, since.UTC()).Scan(&total)
	if err != nil {
		return amount.Zero(), fmt.Errorf("sum burns: %w", err)
	}
	return amount.FromBaseUnits(total)
}

func (s *Store) List(ctx context.Context, limit int) ([]*models.Burn, error) {
	query := `
		SELECT id::text, signature, account, amount::text, burned_at
		FROM burns
		ORDER BY burned_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query burns: %w", err)
	}
	defer rows.Close()

	var out []*models.Burn
	for rows.Next() {
		var (
			b   models.Burn
			raw string
		)
		if err := rows.Scan(&b.ID, &b.Signature, &b.Account, &raw, &b.BurnedAt); err != nil {
			return nil, fmt.Errorf("scan burn: %w", err)
		}
		if b.Amount, err = amount.FromBaseUnits(raw); err != nil {
			return nil, fmt.Errorf("decode burn amount: %w", err)
		}
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate burns: %w", err)
	}
	return out, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}
