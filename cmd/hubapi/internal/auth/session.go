package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SessionSource records which credential produced a session.
type SessionSource string

const (
	SourceProvider SessionSource = "provider"
	SourceLegacy   SessionSource = "legacy"
)

// Session is the normalized, request-scoped identity plus role set derived
// from a credential. It is never persisted and is not modified after the
// resolver returns it.
type Session struct {
	UserID string
	// Email is always lower-cased.
	Email string
	Name  string
	Roles []Assignment

	Source SessionSource

	// CredentialKey is the hash of the credential the session was resolved
	// from; it keys the resolved-role cache.
	CredentialKey string
}

// NewSession builds a session, normalizing the email and role scopes and
// dropping duplicate assignments while keeping the original order.
func NewSession(userID, email, name string, source SessionSource, credentialKey string, roles []Assignment) *Session {
	seen := make(map[Assignment]struct{}, len(roles))
	normalized := make([]Assignment, 0, len(roles))
	for _, a := range roles {
		a = NewAssignment(a.Role, a.Scope)
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		normalized = append(normalized, a)
	}
	return &Session{
		UserID:        userID,
		Email:         NormalizeEmail(email),
		Name:          strings.TrimSpace(name),
		Roles:         normalized,
		Source:        source,
		CredentialKey: credentialKey,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenLength is the length of generated opaque tokens in bytes
const TokenLength = 32

// GenerateToken returns a random opaque token (hex) and its SHA256 hash.
func GenerateToken() (string, string, error) {
	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("generate random token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken hashes a token for storage/lookup. Returns SHA256 hex hash.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
