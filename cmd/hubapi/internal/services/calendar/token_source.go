package calendar

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

// persistingTokenSource writes refreshed tokens back to the connection row.
type persistingTokenSource struct {
	ctx     context.Context
	base    oauth2.TokenSource
	account string
	store   repository.CalendarConnectionRepository
	logger  *zap.Logger

	mu   sync.Mutex
	last string
}

func newPersistingTokenSource(
	ctx context.Context,
	base oauth2.TokenSource,
	conn *models.CalendarConnection,
	store repository.CalendarConnectionRepository,
	logger *zap.Logger,
) *persistingTokenSource {
	return &persistingTokenSource{
		ctx:     context.WithoutCancel(ctx),
		base:    base,
		account: conn.AccountEmail,
		store:   store,
		logger:  logger,
		last:    conn.AccessToken,
	}
}

// Token implements oauth2.TokenSource.
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := tok.AccessToken != s.last
	s.last = tok.AccessToken
	s.mu.Unlock()

	if changed {
		err := s.store.UpdateToken(s.ctx, s.account, models.OAuthToken{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			TokenType:    tok.TokenType,
			Expiry:       tok.Expiry,
		})
		if err != nil {
			// the refreshed token is still usable for this sync
			s.logger.Warn("persist refreshed calendar token", zap.String("account", s.account), zap.Error(err))
		}
	}
	return tok, nil
}

func tokenFromConnection(conn *models.CalendarConnection) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		TokenType:    conn.TokenType,
		Expiry:       conn.Expiry,
	}
}
