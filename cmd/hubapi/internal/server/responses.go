package server

import (
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
)

type assignmentResponse struct {
	Role     string  `json:"role"`
	ChurchID *string `json:"churchId"`
}

type sessionResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name,omitempty"`
	} `json:"user"`
	Roles           []assignmentResponse `json:"roles"`
	Source          auth.SessionSource   `json:"source"`
	IsAdmin         bool                 `json:"isAdmin"`
	PrimaryChurchID *string              `json:"primaryChurchId"`
}

func newSessionResponse(s *auth.Session) sessionResponse {
	var resp sessionResponse
	resp.User.ID = s.UserID
	resp.User.Email = s.Email
	resp.User.Name = s.Name
	resp.Roles = make([]assignmentResponse, 0, len(s.Roles))
	for _, a := range s.Roles {
		resp.Roles = append(resp.Roles, assignmentResponse{Role: string(a.Role), ChurchID: a.Scope.Nullable()})
	}
	resp.Source = s.Source
	resp.IsAdmin = auth.IsAdmin(s)
	if id, ok := auth.PrimaryChurch(s); ok {
		resp.PrimaryChurchID = &id
	}
	return resp
}

type roleAssignmentResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	ChurchID  *string   `json:"churchId"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
}

func newRoleAssignmentResponse(ra *models.RoleAssignment) roleAssignmentResponse {
	return roleAssignmentResponse{
		ID:        ra.ID,
		UserID:    ra.UserID,
		Role:      ra.Role,
		ChurchID:  ra.ChurchID,
		CreatedAt: ra.CreatedAt,
		CreatedBy: ra.CreatedBy,
	}
}

type churchResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	CalendarKeyword *string `json:"calendarKeyword"`
}

type eventResponse struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"externalId"`
	ChurchID    string    `json:"churchId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
}

func newEventResponse(e *models.CalendarEvent) eventResponse {
	return eventResponse{
		ID:          e.ID,
		ExternalID:  e.ExternalID,
		ChurchID:    e.ChurchID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
	}
}

type unmatchedEventResponse struct {
	ExternalID   string    `json:"externalId"`
	AccountEmail string    `json:"accountEmail"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	StartsAt     time.Time `json:"startsAt"`
	EndsAt       time.Time `json:"endsAt"`
	FirstSeenAt  time.Time `json:"firstSeenAt"`
}
