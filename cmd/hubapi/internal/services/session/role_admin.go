package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

// ErrInvalidAssignment is returned for a church-bound role without a church.
var ErrInvalidAssignment = errors.New("invalid role assignment")

// UserInvalidator drops cached roles for a user. Resolver implements it.
type UserInvalidator interface {
	InvalidateUser(userID string)
}

// RoleAdmin grants and revokes roles, keeping the resolver cache honest.
type RoleAdmin struct {
	roles       repository.RoleAssignmentRepository
	invalidator UserInvalidator
	legacy      repository.LegacySessionRepository
	logger      *zap.Logger
}

// NewRoleAdmin creates a role administration service. invalidator may be nil
// when no resolver shares the process (CLI use).
func NewRoleAdmin(roles repository.RoleAssignmentRepository, invalidator UserInvalidator, logger *zap.Logger) *RoleAdmin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleAdmin{roles: roles, invalidator: invalidator, logger: logger}
}

// WithLegacySessions makes church_leader revocation also end the leader's
// legacy cookie sessions for that church.
func (s *RoleAdmin) WithLegacySessions(legacy repository.LegacySessionRepository) *RoleAdmin {
	s.legacy = legacy
	return s
}

// Assign grants a role. Admin is normalized to the global scope; every other
// role needs a church.
func (s *RoleAdmin) Assign(ctx context.Context, actorID, userID string, a auth.Assignment) (*models.RoleAssignment, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidAssignment)
	}
	a = auth.NewAssignment(a.Role, a.Scope)
	if !a.Role.IsGlobal() && a.Scope.IsGlobal() {
		return nil, fmt.Errorf("%w: role %s requires a church", ErrInvalidAssignment, a.Role)
	}

	row := &models.RoleAssignment{
		UserID:    userID,
		Role:      string(a.Role),
		ChurchID:  a.Scope.Nullable(),
		CreatedBy: actorID,
	}
	if err := s.roles.Create(ctx, row); err != nil {
		return nil, err
	}
	s.invalidate(userID)

	s.logger.Info("role assigned",
		zap.String("user_id", userID),
		zap.String("assignment", a.String()),
		zap.String("actor", actorID),
	)
	return row, nil
}

// Revoke removes a grant. Returns repository.ErrNotFound if it does not exist.
func (s *RoleAdmin) Revoke(ctx context.Context, actorID, userID string, a auth.Assignment) error {
	a = auth.NewAssignment(a.Role, a.Scope)
	if err := s.roles.Delete(ctx, userID, string(a.Role), a.Scope.Nullable()); err != nil {
		return err
	}
	if churchID, ok := a.Scope.ChurchID(); ok && a.Role == auth.RoleChurchLeader && s.legacy != nil {
		n, err := s.legacy.DeleteByLeader(ctx, userID, churchID)
		if err != nil {
			return fmt.Errorf("end legacy sessions: %w", err)
		}
		if n > 0 {
			s.logger.Info("legacy sessions ended", zap.String("user_id", userID), zap.Int64("count", n))
		}
	}
	s.invalidate(userID)

	s.logger.Info("role revoked",
		zap.String("user_id", userID),
		zap.String("assignment", a.String()),
		zap.String("actor", actorID),
	)
	return nil
}

// List returns the user's grants in creation order.
func (s *RoleAdmin) List(ctx context.Context, userID string) ([]models.RoleAssignment, error) {
	return s.roles.ListByUser(ctx, userID)
}

// ListAll returns every grant, grouped by user.
func (s *RoleAdmin) ListAll(ctx context.Context) ([]models.RoleAssignment, error) {
	return s.roles.List(ctx)
}

func (s *RoleAdmin) invalidate(userID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(userID)
	}
}
