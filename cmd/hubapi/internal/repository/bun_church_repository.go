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
// Church Repository
// ========================================

// BunChurchRepository implements ChurchRepository using Bun ORM
type BunChurchRepository struct {
	db *bun.DB
}

// NewBunChurchRepository creates a new Bun-based church repository
func NewBunChurchRepository(db *bun.DB) ChurchRepository {
	return &BunChurchRepository{db: db}
}

// Create inserts a new church
func (r *BunChurchRepository) Create(ctx context.Context, church *models.Church) error {
	if church.ID == "" {
		church.ID = bunx.NewUUIDv7()
	}
	if church.CreatedAt.IsZero() {
		church.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NewInsert().
		Model(church).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("church %s: %w", church.Name, ErrConflict)
		}
		return fmt.Errorf("create church: %w", err)
	}
	return nil
}

// GetByID retrieves a church by ID
func (r *BunChurchRepository) GetByID(ctx context.Context, id string) (*models.Church, error) {
	church := new(models.Church)
	err := r.db.NewSelect().
		Model(church).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("church %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get church: %w", err)
	}
	return church, nil
}

// List retrieves all churches ordered by name
func (r *BunChurchRepository) List(ctx context.Context) ([]models.Church, error) {
	var churches []models.Church
	err := r.db.NewSelect().
		Model(&churches).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list churches: %w", err)
	}
	return churches, nil
}

// ListWithKeyword retrieves churches that can be matched by keyword
func (r *BunChurchRepository) ListWithKeyword(ctx context.Context) ([]models.Church, error) {
	var churches []models.Church
	err := r.db.NewSelect().
		Model(&churches).
		Where("calendar_keyword IS NOT NULL").
		Where("calendar_keyword <> ''").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list churches with keyword: %w", err)
	}
	return churches, nil
}

// ========================================
// ChurchLeader Repository
// ========================================

// BunChurchLeaderRepository implements ChurchLeaderRepository using Bun ORM
type BunChurchLeaderRepository struct {
	db *bun.DB
}

// NewBunChurchLeaderRepository creates a new Bun-based church leader repository
func NewBunChurchLeaderRepository(db *bun.DB) ChurchLeaderRepository {
	return &BunChurchLeaderRepository{db: db}
}

// Create inserts a new church leader
func (r *BunChurchLeaderRepository) Create(ctx context.Context, leader *models.ChurchLeader) error {
	if leader.ID == "" {
		leader.ID = bunx.NewUUIDv7()
	}
	if leader.CreatedAt.IsZero() {
		leader.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NewInsert().
		Model(leader).
		Exec(ctx)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("leader %s: %w", leader.Email, ErrConflict)
		case isForeignKeyViolation(err):
			return fmt.Errorf("church %s: %w", leader.ChurchID, ErrNotFound)
		}
		return fmt.Errorf("create church leader: %w", err)
	}
	return nil
}

// GetByID retrieves a church leader by ID
func (r *BunChurchLeaderRepository) GetByID(ctx context.Context, id string) (*models.ChurchLeader, error) {
	leader := new(models.ChurchLeader)
	err := r.db.NewSelect().
		Model(leader).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("church leader %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get church leader: %w", err)
	}
	return leader, nil
}

// GetByEmail retrieves a church leader by email
func (r *BunChurchLeaderRepository) GetByEmail(ctx context.Context, email string) (*models.ChurchLeader, error) {
	leader := new(models.ChurchLeader)
	err := r.db.NewSelect().
		Model(leader).
		Where("email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("church leader with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("get church leader by email: %w", err)
	}
	return leader, nil
}
