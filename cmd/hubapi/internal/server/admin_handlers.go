package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/services/onboarding"
)

func actorID(r *http.Request) string {
	if s, ok := auth.SessionFromContext(r.Context()); ok {
		return s.UserID
	}
	return ""
}

type roleRequest struct {
	Role     string  `json:"role"`
	ChurchID *string `json:"churchId"`
}

func (req roleRequest) assignment() (auth.Assignment, error) {
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return auth.Assignment{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return auth.NewAssignment(role, auth.ScopeFromNullable(req.ChurchID)), nil
}

// HandleListUserRoles lists a user's role grants.
func HandleListUserRoles(roles roleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := roles.List(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		out := make([]roleAssignmentResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newRoleAssignmentResponse(&rows[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": out})
	}
}

// HandleAssignUserRole grants a role. Duplicate grants answer 409.
func HandleAssignUserRole(roles roleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		a, err := req.assignment()
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		row, err := roles.Assign(r.Context(), actorID(r), chi.URLParam(r, "userID"), a)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newRoleAssignmentResponse(row))
	}
}

// HandleRevokeUserRole removes a grant named by the role and churchId query
// parameters. A missing churchId addresses the global grant.
func HandleRevokeUserRole(roles roleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := roleRequest{Role: q.Get("role")}
		if churchID := q.Get("churchId"); churchID != "" {
			req.ChurchID = &churchID
		}
		a, err := req.assignment()
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		if err := roles.Revoke(r.Context(), actorID(r), chi.URLParam(r, "userID"), a); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type emailRequest struct {
	Email string `json:"email"`
}

// HandleUpdateUserEmail changes a user's login email.
func HandleUpdateUserEmail(onboard onboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		identity, err := onboard.UpdateUserEmail(r.Context(), actorID(r), chi.URLParam(r, "userID"), req.Email)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": identity.UserID, "email": identity.Email})
	}
}

type provisionLeaderRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	ChurchID string `json:"churchId"`
	Role     string `json:"role,omitempty"`
}

// HandleProvisionLeader onboards a leader. An email already known to the
// credential store answers 409.
func HandleProvisionLeader(onboard onboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req provisionLeaderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		res, err := onboard.ProvisionLeader(r.Context(), actorID(r), onboarding.ProvisionLeaderInput{
			Email:    req.Email,
			Name:     req.Name,
			ChurchID: req.ChurchID,
			Role:     auth.Role(req.Role),
		})
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"userId":   res.UserID,
			"email":    res.Email,
			"churchId": res.ChurchID,
			"role":     res.Role,
			"invited":  res.Invited,
		})
	}
}

// HandleIssueActivation issues a one-time legacy activation link for a leader.
func HandleIssueActivation(onboard onboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := onboard.IssueActivation(r.Context(), actorID(r), chi.URLParam(r, "leaderID"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"leaderId":  act.LeaderID,
			"link":      act.Link,
			"expiresAt": act.ExpiresAt,
		})
	}
}
