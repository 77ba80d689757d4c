package onboarding

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/credstore"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/bunx"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

var (
	// ErrInvalidInput is returned for malformed provisioning requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidActivation covers unknown, used and expired activation tokens.
	ErrInvalidActivation = errors.New("invalid or expired activation token")
)

// IdentityAdmin is the subset of the credential store used for onboarding.
// credstore.Client implements it.
type IdentityAdmin interface {
	CreateUser(ctx context.Context, in credstore.CreateUserInput) (*credstore.Identity, error)
	GetUserByEmail(ctx context.Context, email string) (*credstore.Identity, error)
	UpdateUserEmail(ctx context.Context, userID, email string) (*credstore.Identity, error)
	GenerateLink(ctx context.Context, linkType credstore.LinkType, email, redirectTo string) (string, error)
}

// RoleAssigner grants roles. session.RoleAdmin implements it.
type RoleAssigner interface {
	Assign(ctx context.Context, actorID, userID string, a auth.Assignment) (*models.RoleAssignment, error)
}

// UserInvalidator drops cached session data for a user.
type UserInvalidator interface {
	InvalidateUser(userID string)
}

// Options configures link targets and token lifetimes.
type Options struct {
	// ServerURL is the public base URL links redirect to
	ServerURL     string
	ActivationTTL time.Duration
	LegacyMaxAge  time.Duration
}

// Service provisions leaders and issues onboarding credentials.
type Service struct {
	identities  IdentityAdmin
	churches    repository.ChurchRepository
	leaders     repository.ChurchLeaderRepository
	roles       RoleAssigner
	activations repository.LegacyActivationRepository
	sessions    repository.LegacySessionRepository
	notifier    Notifier
	invalidator UserInvalidator
	opts        Options
	now         func() time.Time
	logger      *zap.Logger
}

// NewService constructs an onboarding service.
func NewService(
	identities IdentityAdmin,
	churches repository.ChurchRepository,
	leaders repository.ChurchLeaderRepository,
	roles RoleAssigner,
	opts Options,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		identities: identities,
		churches:   churches,
		leaders:    leaders,
		roles:      roles,
		notifier:   NewLogNotifier(logger, false),
		opts:       opts,
		now:        time.Now,
		logger:     logger,
	}
}

// WithLegacyRepositories enables the legacy activation flow (optional dependency).
func (s *Service) WithLegacyRepositories(activations repository.LegacyActivationRepository, sessions repository.LegacySessionRepository) *Service {
	s.activations = activations
	s.sessions = sessions
	return s
}

// WithNotifier replaces the logging notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithInvalidator sets the cache invalidated after identity changes.
func (s *Service) WithInvalidator(inv UserInvalidator) *Service {
	s.invalidator = inv
	return s
}

// ProvisionLeaderInput describes a leader to onboard.
type ProvisionLeaderInput struct {
	Email    string
	Name     string
	ChurchID string
	// Role defaults to church_leader
	Role auth.Role
}

// ProvisionResult is returned after a leader is onboarded.
type ProvisionResult struct {
	UserID   string
	Email    string
	ChurchID string
	Role     auth.Role
	Invited  bool
}

// ProvisionLeader creates the identity, grants the role and sends an invite.
// church_leader provisioning also records the leader for the legacy path,
// using the identity's user id as the leader id. An existing identity for the
// email is reused, so an interrupted attempt can be retried; the call only
// conflicts once the role grant exists.
func (s *Service) ProvisionLeader(ctx context.Context, actorID string, in ProvisionLeaderInput) (*ProvisionResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if in.ChurchID == "" {
		return nil, fmt.Errorf("%w: church id is required", ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = auth.RoleChurchLeader
	}
	if role == auth.RoleAdmin {
		return nil, fmt.Errorf("%w: admins are granted, not provisioned", ErrInvalidInput)
	}
	if _, err := auth.ParseRole(string(role)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := s.churches.GetByID(ctx, in.ChurchID); err != nil {
		return nil, fmt.Errorf("load church: %w", err)
	}

	identity, err := s.ensureIdentity(ctx, email, in.Name)
	if err != nil {
		return nil, err
	}

	if role == auth.RoleChurchLeader {
		if err := s.ensureLeader(ctx, identity.UserID, in.ChurchID, email, in.Name); err != nil {
			return nil, err
		}
	}

	if _, err := s.roles.Assign(ctx, actorID, identity.UserID, auth.Assignment{Role: role, Scope: auth.ChurchScope(in.ChurchID)}); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}

	result := &ProvisionResult{UserID: identity.UserID, Email: email, ChurchID: in.ChurchID, Role: role}

	link, err := s.identities.GenerateLink(ctx, credstore.LinkInvite, email, s.link("/auth/callback", nil))
	if err != nil {
		// the identity exists; the admin can resend through the magic-link route
		s.logger.Warn("invite link generation failed", zap.String("user_id", identity.UserID), zap.Error(err))
		return result, nil
	}
	if err := s.notifier.Notify(ctx, Notification{Kind: NotifyLeaderInvite, To: email, Name: in.Name, Link: link}); err != nil {
		s.logger.Warn("invite notification failed", zap.String("user_id", identity.UserID), zap.Error(err))
		return result, nil
	}
	result.Invited = true

	s.logger.Info("leader provisioned",
		zap.String("user_id", identity.UserID),
		zap.String("church_id", in.ChurchID),
		zap.String("role", string(role)),
		zap.String("actor", actorID),
	)
	return result, nil
}

func (s *Service) ensureIdentity(ctx context.Context, email, name string) (*credstore.Identity, error) {
	identity, err := s.identities.CreateUser(ctx, credstore.CreateUserInput{Email: email, Name: name})
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, credstore.ErrConflict) {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	identity, err = s.identities.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load existing identity: %w", err)
	}
	s.logger.Info("reusing existing identity", zap.String("user_id", identity.UserID))
	return identity, nil
}

// ensureLeader records the legacy leader row. A row already stored for the
// same user and church counts as done.
func (s *Service) ensureLeader(ctx context.Context, userID, churchID, email, name string) error {
	err := s.leaders.Create(ctx, &models.ChurchLeader{
		ID:       userID,
		ChurchID: churchID,
		Email:    email,
		Name:     strings.TrimSpace(name),
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("record church leader: %w", err)
	}
	existing, getErr := s.leaders.GetByID(ctx, userID)
	if getErr != nil || existing.ChurchID != churchID {
		return fmt.Errorf("record church leader: %w", err)
	}
	return nil
}

// RequestMagicLink sends a provider login link. Unknown addresses are not
// reported so callers cannot discover which accounts exist.
func (s *Service) RequestMagicLink(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	link, err := s.identities.GenerateLink(ctx, credstore.LinkMagicLink, email, s.link("/auth/callback", nil))
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			s.logger.Debug("magic link requested for unknown email")
			return nil
		}
		return fmt.Errorf("generate magic link: %w", err)
	}
	return s.notifier.Notify(ctx, Notification{Kind: NotifyMagicLink, To: email, Link: link})
}

// UpdateUserEmail changes a user's login email and drops their cached sessions.
func (s *Service) UpdateUserEmail(ctx context.Context, actorID, userID, email string) (*credstore.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	identity, err := s.identities.UpdateUserEmail(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("update email: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(userID)
	}
	s.logger.Info("user email updated", zap.String("user_id", userID), zap.String("actor", actorID))
	return identity, nil
}

// Activation is a freshly issued one-time legacy activation token.
type Activation struct {
	LeaderID  string
	Token     string
	Link      string
	ExpiresAt time.Time
}

// IssueActivation creates a one-time token that mints a legacy session for
// the leader, and notifies the leader with the activation link.
func (s *Service) IssueActivation(ctx context.Context, actorID, leaderID string) (*Activation, error) {
	if err := s.requireLegacy(); err != nil {
		return nil, err
	}
	leader, err := s.leaders.GetByID(ctx, leaderID)
	if err != nil {
		return nil, fmt.Errorf("load church leader: %w", err)
	}

	token, hash, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	row := &models.LegacyActivation{
		ID:        bunx.NewUUIDv7(),
		TokenHash: hash,
		LeaderID:  leader.ID,
		ExpiresAt: now.Add(s.opts.ActivationTTL),
		CreatedAt: now,
	}
	if err := s.activations.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("store activation: %w", err)
	}

	act := &Activation{
		LeaderID:  leader.ID,
		Token:     token,
		Link:      s.link("/legacy/activate", url.Values{"token": {token}}),
		ExpiresAt: row.ExpiresAt,
	}
	if err := s.notifier.Notify(ctx, Notification{Kind: NotifyLegacyActivation, To: leader.Email, Name: leader.Name, Link: act.Link}); err != nil {
		s.logger.Warn("activation notification failed", zap.String("leader_id", leader.ID), zap.Error(err))
	}
	s.logger.Info("legacy activation issued", zap.String("leader_id", leader.ID), zap.String("actor", actorID))
	return act, nil
}

// LegacyLogin is the result of consuming an activation token.
type LegacyLogin struct {
	Session     *auth.Session
	CookieValue string
	ExpiresAt   time.Time
}

// ActivateLegacy consumes an activation token and mints a legacy session.
func (s *Service) ActivateLegacy(ctx context.Context, token string) (*LegacyLogin, error) {
	if err := s.requireLegacy(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrInvalidActivation
	}
	now := s.now().UTC()

	act, err := s.activations.Consume(ctx, auth.HashToken(token), now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidActivation
		}
		return nil, fmt.Errorf("consume activation: %w", err)
	}
	leader, err := s.leaders.GetByID(ctx, act.LeaderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidActivation
		}
		return nil, fmt.Errorf("load church leader: %w", err)
	}

	sessionToken, hash, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}
	row := &models.LegacySession{
		ID:        bunx.NewUUIDv7(),
		TokenHash: hash,
		LeaderID:  leader.ID,
		ChurchID:  leader.ChurchID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.LegacyMaxAge),
	}
	if err := s.sessions.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("store legacy session: %w", err)
	}

	value, err := auth.EncodeLegacyCookie(auth.LegacyCookiePayload{
		Token:     sessionToken,
		LeaderID:  leader.ID,
		ChurchID:  leader.ChurchID,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	roles := []auth.Assignment{{Role: auth.RoleChurchLeader, Scope: auth.ChurchScope(leader.ChurchID)}}
	s.logger.Info("legacy session activated", zap.String("leader_id", leader.ID))
	return &LegacyLogin{
		Session:     auth.NewSession(leader.ID, leader.Email, leader.Name, auth.SourceLegacy, hash, roles),
		CookieValue: value,
		ExpiresAt:   row.ExpiresAt,
	}, nil
}

func (s *Service) requireLegacy() error {
	if s.activations == nil || s.sessions == nil {
		return errors.New("legacy activation is not configured")
	}
	return nil
}

func (s *Service) link(path string, query url.Values) string {
	u := strings.TrimRight(s.opts.ServerURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func normalizeEmail(email string) (string, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return email, nil
}
