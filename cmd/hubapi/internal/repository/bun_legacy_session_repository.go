package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/uptrace/bun"
)

// ========================================
// LegacySession Repository
// ========================================

// BunLegacySessionRepository implements LegacySessionRepository using Bun ORM
type BunLegacySessionRepository struct {
	db *bun.DB
}

// NewBunLegacySessionRepository creates a new Bun-based legacy session repository
func NewBunLegacySessionRepository(db *bun.DB) LegacySessionRepository {
	return &BunLegacySessionRepository{db: db}
}

// Create inserts a new legacy session
func (r *BunLegacySessionRepository) Create(ctx context.Context, s *models.LegacySession) error {
	if s.ID == "" {
		s.ID = bunx.NewUUIDv7()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NewInsert().
		Model(s).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create legacy session: %w", err)
	}
	return nil
}

// GetByTokenHash retrieves a legacy session by its token hash.
// This is the lookup used when resolving the legacy cookie.
func (r *BunLegacySessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.LegacySession, error) {
	s := new(models.LegacySession)
	err := r.db.NewSelect().
		Model(s).
		Where("token_hash = ?", tokenHash).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("legacy session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get legacy session by token: %w", err)
	}
	return s, nil
}

// DeleteByTokenHash removes a legacy session. Missing rows are not an error
// so logout stays idempotent.
func (r *BunLegacySessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.NewDelete().
		Model((*models.LegacySession)(nil)).
		Where("token_hash = ?", tokenHash).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete legacy session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now
func (r *BunLegacySessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.LegacySession)(nil)).
		Where("expires_at < ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired legacy sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

// DeleteByLeader removes a leader's sessions for one church
func (r *BunLegacySessionRepository) DeleteByLeader(ctx context.Context, leaderID, churchID string) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.LegacySession)(nil)).
		Where("leader_id = ?", leaderID).
		Where("church_id = ?", churchID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete leader legacy sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

// ========================================
// LegacyActivation Repository
// ========================================

// BunLegacyActivationRepository implements LegacyActivationRepository using Bun ORM
type BunLegacyActivationRepository struct {
	db *bun.DB
}

// NewBunLegacyActivationRepository creates a new Bun-based activation repository
func NewBunLegacyActivationRepository(db *bun.DB) LegacyActivationRepository {
	return &BunLegacyActivationRepository{db: db}
}

// Create inserts a new activation token
func (r *BunLegacyActivationRepository) Create(ctx context.Context, a *models.LegacyActivation) error {
	if a.ID == "" {
		a.ID = bunx.NewUUIDv7()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NewInsert().
		Model(a).
		Exec(ctx)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("church leader %s: %w", a.LeaderID, ErrNotFound)
		}
		return fmt.Errorf("create legacy activation: %w", err)
	}
	return nil
}

// Consume marks an activation as used exactly once
func (r *BunLegacyActivationRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.LegacyActivation, error) {
	a := new(models.LegacyActivation)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(a).
			Where("token_hash = ?", tokenHash).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("activation: %w", ErrNotFound)
			}
			return fmt.Errorf("get activation: %w", err)
		}
		if a.UsedAt != nil || !now.Before(a.ExpiresAt) {
			return fmt.Errorf("activation used or expired: %w", ErrNotFound)
		}

		usedAt := now.UTC()
		result, err := tx.NewUpdate().
			Model((*models.LegacyActivation)(nil)).
			Set("used_at = ?", usedAt).
			Where("id = ?", a.ID).
			Where("used_at IS NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("consume activation: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("activation already consumed: %w", ErrNotFound)
		}
		a.UsedAt = &usedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}
