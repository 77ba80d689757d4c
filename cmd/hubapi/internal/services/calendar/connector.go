package calendar

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	httphelper "github.com/zitadel/oidc/v3/pkg/http"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/config"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

// ErrNoRefreshToken is returned when the provider grants no offline access.
var ErrNoRefreshToken = errors.New("provider returned no refresh token")

// ConnectedFunc is called after the callback has stored (or failed to store)
// a connection. It writes the HTTP response.
type ConnectedFunc func(w http.ResponseWriter, r *http.Request, conn *models.CalendarConnection, err error)

// Connector runs the OAuth authorization-code flow that connects a calendar
// account, by wrapping a zitadel/oidc RelyingParty.
type Connector struct {
	rp          rp.RelyingParty
	connections repository.CalendarConnectionRepository
	calendarID  string
	logger      *zap.Logger
}

// NewConnector discovers the provider and creates the relying party.
func NewConnector(
	ctx context.Context,
	cfg config.CalendarConfig,
	secureCookies bool,
	connections repository.CalendarConnectionRepository,
	logger *zap.Logger,
) (*Connector, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("calendar client credentials are not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// State and PKCE cookies do not survive a restart.
	hashKey, err := randomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("generate cookie hash key: %w", err)
	}
	cryptoKey, err := randomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("generate cookie crypto key: %w", err)
	}
	var cookieOpts []httphelper.CookieHandlerOpt
	if !secureCookies {
		cookieOpts = append(cookieOpts, httphelper.WithUnsecure())
	}
	cookieHandler := httphelper.NewCookieHandler(hashKey, cryptoKey, cookieOpts...)

	options := []rp.Option{
		rp.WithCookieHandler(cookieHandler),
		rp.WithVerifierOpts(rp.WithIssuedAtMaxAge(10 * time.Second)),
		rp.WithPKCE(cookieHandler),
	}
	relyingParty, err := rp.NewRelyingPartyOIDC(ctx, cfg.Issuer, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI,
		cfg.Scopes, options...)
	if err != nil {
		return nil, fmt.Errorf("create calendar relying party: %w", err)
	}

	return &Connector{
		rp:          relyingParty,
		connections: connections,
		calendarID:  cfg.CalendarID,
		logger:      logger,
	}, nil
}

// OAuthConfig returns the client configuration used to refresh stored tokens.
func (c *Connector) OAuthConfig() *oauth2.Config {
	return c.rp.OAuthConfig()
}

// AuthURLHandler redirects to the provider's consent screen, asking for
// offline access so a refresh token is issued.
func (c *Connector) AuthURLHandler() http.HandlerFunc {
	return rp.AuthURLHandler(func() string {
		state, _ := randomState()
		return state
	}, c.rp,
		rp.WithURLParam("access_type", "offline"),
		rp.WithPromptURLParam("consent"),
	)
}

// CallbackHandler exchanges the code, stores the tokens keyed by the account
// email from the ID token and hands the result to done.
func (c *Connector) CallbackHandler(done ConnectedFunc) http.HandlerFunc {
	callback := func(w http.ResponseWriter, r *http.Request, tokens *oidc.Tokens[*oidc.IDTokenClaims], state string, _ rp.RelyingParty) {
		conn, err := c.store(r.Context(), tokens)
		if err != nil {
			c.logger.Error("calendar connection failed", zap.Error(err))
		}
		done(w, r, conn, err)
	}
	return rp.CodeExchangeHandler(callback, c.rp)
}

func (c *Connector) store(ctx context.Context, tokens *oidc.Tokens[*oidc.IDTokenClaims]) (*models.CalendarConnection, error) {
	if tokens == nil || tokens.Token == nil || tokens.IDTokenClaims == nil {
		return nil, fmt.Errorf("incomplete token response")
	}
	email := auth.NormalizeEmail(tokens.IDTokenClaims.Email)
	if email == "" {
		return nil, fmt.Errorf("id token carries no email")
	}

	conn := &models.CalendarConnection{
		AccountEmail: email,
		CalendarID:   c.calendarID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		Expiry:       tokens.Expiry.UTC(),
	}
	if s, ok := auth.SessionFromContext(ctx); ok {
		conn.ConnectedBy = s.UserID
	}
	if conn.RefreshToken == "" {
		// reconnecting keeps the stored refresh token
		if _, err := c.connections.Get(ctx, email); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNoRefreshToken
			}
			return nil, fmt.Errorf("load calendar connection: %w", err)
		}
	}
	if err := c.connections.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("store calendar connection: %w", err)
	}

	c.logger.Info("calendar account connected",
		zap.String("account", email),
		zap.String("connected_by", conn.ConnectedBy),
	)
	return conn, nil
}

func randomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}

func randomState() (string, error) {
	b, err := randomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
