package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/credstore"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

// mockVerifier maps access tokens to identities and counts calls.
type mockVerifier struct {
	mu         sync.Mutex
	identities map[string]*credstore.Identity
	err        error
	calls      int
}

func (m *mockVerifier) Authenticate(ctx context.Context, token string) (*credstore.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if id, ok := m.identities[token]; ok {
		return id, nil
	}
	return nil, fmt.Errorf("%w: unknown token", credstore.ErrInvalidCredential)
}

func (m *mockVerifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRoleRepository keeps grants in insertion order.
type mockRoleRepository struct {
	mu   sync.Mutex
	rows []models.RoleAssignment
	err  error
}

func (m *mockRoleRepository) Create(ctx context.Context, ra *models.RoleAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == ra.UserID && r.Role == ra.Role && deref(r.ChurchID) == deref(ra.ChurchID) {
			return repository.ErrConflict
		}
	}
	ra.ID = fmt.Sprintf("ra-%d", len(m.rows)+1)
	m.rows = append(m.rows, *ra)
	return nil
}

func (m *mockRoleRepository) ListByUser(ctx context.Context, userID string) ([]models.RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.RoleAssignment
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRoleRepository) Delete(ctx context.Context, userID, role string, churchID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.UserID == userID && r.Role == role && deref(r.ChurchID) == deref(churchID) {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockRoleRepository) List(ctx context.Context) ([]models.RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RoleAssignment(nil), m.rows...), nil
}

// mockLegacySessionRepository indexes legacy sessions by token hash.
type mockLegacySessionRepository struct {
	sessions map[string]*models.LegacySession
	err      error
}

func (m *mockLegacySessionRepository) Create(ctx context.Context, s *models.LegacySession) error {
	m.sessions[s.TokenHash] = s
	return nil
}

func (m *mockLegacySessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.LegacySession, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.sessions[tokenHash]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockLegacySessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	delete(m.sessions, tokenHash)
	return nil
}

func (m *mockLegacySessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for hash, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (m *mockLegacySessionRepository) DeleteByLeader(ctx context.Context, leaderID, churchID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for hash, s := range m.sessions {
		if s.LeaderID == leaderID && s.ChurchID == churchID {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

// mockLeaderRepository indexes leaders by id.
type mockLeaderRepository struct {
	leaders map[string]*models.ChurchLeader
}

func (m *mockLeaderRepository) Create(ctx context.Context, l *models.ChurchLeader) error {
	m.leaders[l.ID] = l
	return nil
}

func (m *mockLeaderRepository) GetByID(ctx context.Context, id string) (*models.ChurchLeader, error) {
	if l, ok := m.leaders[id]; ok {
		return l, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockLeaderRepository) GetByEmail(ctx context.Context, email string) (*models.ChurchLeader, error) {
	for _, l := range m.leaders {
		if l.Email == email {
			return l, nil
		}
	}
	return nil, repository.ErrNotFound
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string { return &s }

var errDatabaseDown = errors.New("database is down")
