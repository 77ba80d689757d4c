package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LegacyCookiePayload is the JSON body of the deprecated church-leader cookie.
type LegacyCookiePayload struct {
	Token     string    `json:"token"`
	LeaderID  string    `json:"leaderId"`
	ChurchID  string    `json:"churchId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrMalformedCookie is returned when a cookie cannot be decoded.
var ErrMalformedCookie = errors.New("malformed cookie")

// EncodeLegacyCookie serializes the payload into a cookie-safe value.
func EncodeLegacyCookie(p LegacyCookiePayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode legacy cookie: %w", err)
	}
	return url.QueryEscape(string(raw)), nil
}

// DecodeLegacyCookie parses a legacy cookie value. All payload fields are required.
func DecodeLegacyCookie(value string) (LegacyCookiePayload, error) {
	var p LegacyCookiePayload
	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformedCookie, err)
	}
	if p.Token == "" || p.LeaderID == "" || p.ChurchID == "" || p.CreatedAt.IsZero() {
		return p, fmt.Errorf("%w: missing fields", ErrMalformedCookie)
	}
	return p, nil
}

// Expired reports whether the payload is older than maxAge at now.
func (p LegacyCookiePayload) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(p.CreatedAt) > maxAge
}

// NewLegacyCookie builds the HTTP-only legacy session cookie.
func NewLegacyCookie(name, value string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie returns a cookie that clears name in the browser.
func ExpiredCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ProviderAccessToken extracts the access token from a provider session
// cookie. The provider's SSR helpers write either the bare JWT, a JSON object
// with access_token, a JSON array [access_token, refresh_token, ...], or any
// of the JSON forms prefixed with "base64-".
func ProviderAccessToken(value string) string {
	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}
	value = strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(value, "base64-"); ok {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(rest, "="))
		if err != nil {
			return ""
		}
		value = string(decoded)
	}

	switch {
	case strings.HasPrefix(value, "{"):
		var obj struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal([]byte(value), &obj); err != nil {
			return ""
		}
		return obj.AccessToken
	case strings.HasPrefix(value, "["):
		var arr []*string
		if err := json.Unmarshal([]byte(value), &arr); err != nil || len(arr) == 0 || arr[0] == nil {
			return ""
		}
		return *arr[0]
	default:
		return value
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(h http.Header) string {
	value := h.Get("Authorization")
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return ""
}
