package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
	"feedback-hub/internal/service"
	"feedback-hub/internal/utils"
	"feedback-hub/internal/validation"
)

type UserHTTP struct {
	dir *service.Directory
}

func NewUserHTTP(dir *service.Directory) *UserHTTP {
	return &UserHTTP{dir: dir}
}

// GET /api/users?q=&role=&page=&limit=
func (h *UserHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qv := r.URL.Query()
		page, limit := utils.Page(qv, 20, 200)
		f := repository.UserFilter{Q: qv.Get("q"), Limit: limit, Offset: (page - 1) * limit}
		if s := strings.TrimSpace(qv.Get("role")); s != "" {
			role, ok := models.ParseRole(s)
			if !ok {
				utils.Fail(w, r, utils.ValidationError("Invalid role value"))
				return
			}
			f.Role = role
		}

		users, total, err := h.dir.List(r.Context(), f)
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]any{
			"users":      users,
			"pagination": newPagination(page, limit, total),
		})
	}
}

// PATCH /api/users/{id}/role
func (h *UserHTTP) UpdateRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role" validate:"required,role"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.Fail(w, r, err)
			return
		}
		if err := validation.Struct(&req); err != nil {
			utils.Fail(w, r, err)
			return
		}
		role, _ := models.ParseRole(req.Role)
		u, err := h.dir.SetRole(r.Context(), chi.URLParam(r, "id"), role)
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusOK, u)
	}
}
