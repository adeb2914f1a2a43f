package handlers

import (
	"net/http"

	"feedback-hub/internal/models"
	"feedback-hub/internal/policy"
	"feedback-hub/internal/utils"
)

type AuthHTTP struct {
	policy *policy.Policy
}

func NewAuthHTTP(p *policy.Policy) *AuthHTTP {
	return &AuthHTTP{policy: p}
}

type meResponse struct {
	User        *models.User `json:"user"`
	Role        models.Role  `json:"role"`
	Permissions []string     `json:"permissions"`
	Groups      []string     `json:"groups"`
}

// GET /api/users/me
func (h *AuthHTTP) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := utils.IdentityFrom(r.Context())
		if !ok {
			utils.Fail(w, r, utils.AuthError(""))
			return
		}
		resp := meResponse{
			User:        id.User,
			Role:        id.Role,
			Permissions: h.policy.Permissions(id.Role),
			Groups:      []string{},
		}
		if id.Claims != nil && id.Claims.Groups != nil {
			resp.Groups = id.Claims.Groups
		}
		if resp.Permissions == nil {
			resp.Permissions = []string{}
		}
		utils.JSON(w, http.StatusOK, resp)
	}
}
