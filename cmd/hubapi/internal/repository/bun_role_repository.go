package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRoleAssignmentRepository implements RoleAssignmentRepository using Bun ORM
type BunRoleAssignmentRepository struct {
	db *bun.DB
}

// NewBunRoleAssignmentRepository creates a new Bun-based role assignment repository
func NewBunRoleAssignmentRepository(db *bun.DB) RoleAssignmentRepository {
	return &BunRoleAssignmentRepository{db: db}
}

// Create inserts a new role assignment
func (r *BunRoleAssignmentRepository) Create(ctx context.Context, ra *models.RoleAssignment) error {
	if ra.ID == "" {
		ra.ID = bunx.NewUUIDv7()
	}
	if ra.CreatedAt.IsZero() {
		ra.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NewInsert().
		Model(ra).
		Exec(ctx)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("role %s already assigned to user %s: %w", ra.Role, ra.UserID, ErrConflict)
		case isForeignKeyViolation(err):
			return fmt.Errorf("church %s: %w", deref(ra.ChurchID), ErrNotFound)
		}
		return fmt.Errorf("create role assignment: %w", err)
	}
	return nil
}

// ListByUser retrieves all role assignments for a user
func (r *BunRoleAssignmentRepository) ListByUser(ctx context.Context, userID string) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	err := r.db.NewSelect().
		Model(&assignments).
		Where("user_id = ?", userID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list role assignments for user: %w", err)
	}
	return assignments, nil
}

// Delete removes a single grant
func (r *BunRoleAssignmentRepository) Delete(ctx context.Context, userID, role string, churchID *string) error {
	q := r.db.NewDelete().
		Model((*models.RoleAssignment)(nil)).
		Where("user_id = ?", userID).
		Where("role = ?", role)
	if churchID == nil {
		q = q.Where("church_id IS NULL")
	} else {
		q = q.Where("church_id = ?", *churchID)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete role assignment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("role %s for user %s: %w", role, userID, ErrNotFound)
	}
	return nil
}

// List retrieves every role assignment
func (r *BunRoleAssignmentRepository) List(ctx context.Context) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	err := r.db.NewSelect().
		Model(&assignments).
		Order("user_id ASC", "created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	return assignments, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
