package credstore

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Identity is the subset of a credential-store user the API relies on.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// userMetadata is the free-form user_metadata object. Sign-up flows disagree
// on the key, so several are accepted.
type userMetadata struct {
	FullName    string `mapstructure:"full_name"`
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
}

// displayName decodes user_metadata and returns the first non-empty name.
func displayName(raw map[string]any) string {
	if len(raw) == 0 {
		return ""
	}
	var md userMetadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ""
	}
	if err := decoder.Decode(raw); err != nil {
		return ""
	}
	for _, candidate := range []string{md.FullName, md.Name, md.DisplayName} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return ""
}

// user is the wire shape of a credential-store user.
type user struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u user) identity() *Identity {
	return &Identity{
		UserID: u.ID,
		Email:  strings.ToLower(strings.TrimSpace(u.Email)),
		Name:   displayName(u.UserMetadata),
	}
}
