package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

// MatchReason records which rule matched an event.
type MatchReason string

const (
	MatchNone     MatchReason = ""
	MatchMapping  MatchReason = "mapping"
	MatchExisting MatchReason = "existing"
	MatchKeyword  MatchReason = "keyword"
)

// Match is the outcome of matching one event.
type Match struct {
	ChurchID string
	Reason   MatchReason
	// Existing is the stored record for the external id, if any
	Existing *models.CalendarEvent
}

// Matched reports whether a church was found.
func (m Match) Matched() bool { return m.ChurchID != "" }

type keywordRule struct {
	churchID string
	keyword  string // lower-cased
}

// Matcher applies the matching rules in order; the first hit wins. It holds a
// snapshot of church keywords taken when it was built.
type Matcher struct {
	mappings repository.CalendarMappingRepository
	events   repository.CalendarEventRepository
	rules    []keywordRule
}

// NewMatcher builds a matcher over the given churches' keywords.
func NewMatcher(mappings repository.CalendarMappingRepository, events repository.CalendarEventRepository, churches []models.Church) *Matcher {
	m := &Matcher{mappings: mappings, events: events}
	for _, c := range churches {
		if c.CalendarKeyword == nil {
			continue
		}
		kw := strings.ToLower(strings.TrimSpace(*c.CalendarKeyword))
		if kw == "" {
			continue
		}
		m.rules = append(m.rules, keywordRule{churchID: c.ID, keyword: kw})
	}
	return m
}

// Match finds the church for ev.
func (m *Matcher) Match(ctx context.Context, ev Event) (Match, error) {
	existing, err := m.events.GetByExternalID(ctx, ev.ExternalID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return Match{}, fmt.Errorf("load event %s: %w", ev.ExternalID, err)
		}
		existing = nil
	}

	mapping, err := m.mappings.Get(ctx, ev.ExternalID)
	switch {
	case err == nil:
		return Match{ChurchID: mapping.ChurchID, Reason: MatchMapping, Existing: existing}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return Match{}, fmt.Errorf("load mapping %s: %w", ev.ExternalID, err)
	}

	if existing != nil {
		return Match{ChurchID: existing.ChurchID, Reason: MatchExisting, Existing: existing}, nil
	}

	if churchID, ok := m.keywordChurch(ev); ok {
		return Match{ChurchID: churchID, Reason: MatchKeyword}, nil
	}
	return Match{}, nil
}

// keywordChurch returns the church when exactly one church's keyword occurs
// in the title or description.
func (m *Matcher) keywordChurch(ev Event) (string, bool) {
	title := strings.ToLower(ev.Title)
	desc := strings.ToLower(ev.Description)

	found := ""
	for _, rule := range m.rules {
		if !strings.Contains(title, rule.keyword) && !strings.Contains(desc, rule.keyword) {
			continue
		}
		if found != "" && found != rule.churchID {
			return "", false
		}
		found = rule.churchID
	}
	return found, found != ""
}
