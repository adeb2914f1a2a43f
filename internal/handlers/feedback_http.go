package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
	"feedback-hub/internal/service"
	"feedback-hub/internal/utils"
)

// FeedbackHTTP wires the feedback endpoints to the service.
type FeedbackHTTP struct {
	svc *service.FeedbackService
}

func NewFeedbackHTTP(svc *service.FeedbackService) *FeedbackHTTP {
	return &FeedbackHTTP{svc: svc}
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type feedbackPage struct {
	Feedback   []models.Feedback `json:"feedback"`
	Pagination pagination        `json:"pagination"`
}

func newPagination(page, limit, total int) pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// parseFeedbackFilter reads status, tag, assignedLeader, submitter,
// isAnonymous, startDate, endDate, page and limit.
func parseFeedbackFilter(r *http.Request) (repository.FeedbackFilter, int, error) {
	qv := r.URL.Query()
	page, limit := utils.Page(qv, 10, 100)
	f := repository.FeedbackFilter{
		Tag:            strings.TrimSpace(qv.Get("tag")),
		AssignedLeader: strings.TrimSpace(qv.Get("assignedLeader")),
		Submitter:      strings.TrimSpace(qv.Get("submitter")),
		IsAnonymous:    utils.QueryBool(qv, "isAnonymous"),
		Limit:          limit,
		Offset:         (page - 1) * limit,
	}
	if s := qv.Get("status"); s != "" {
		st, ok := models.ParseStatus(s)
		if !ok {
			return f, 0, utils.ValidationError("Invalid status value")
		}
		f.Status = st
	}

	start, ok := utils.QueryTime(qv, "startDate")
	if !ok {
		return f, 0, utils.ValidationError("Invalid startDate")
	}
	end, ok := utils.QueryTime(qv, "endDate")
	if !ok {
		return f, 0, utils.ValidationError("Invalid endDate")
	}
	if end != nil && len(strings.TrimSpace(qv.Get("endDate"))) == len("2006-01-02") {
		eod := end.Add(24*time.Hour - time.Nanosecond)
		end = &eod
	}
	if start != nil && end != nil && end.Before(*start) {
		return f, 0, utils.ValidationError("endDate must not be before startDate")
	}
	f.StartDate, f.EndDate = start, end
	return f, page, nil
}

func (h *FeedbackHTTP) list(w http.ResponseWriter, r *http.Request, submitter string) {
	f, page, err := parseFeedbackFilter(r)
	if err != nil {
		utils.Fail(w, r, err)
		return
	}
	if submitter != "" {
		f.Submitter = submitter
	}
	items, total, err := h.svc.List(r.Context(), f)
	if err != nil {
		utils.Fail(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, feedbackPage{Feedback: items, Pagination: newPagination(page, f.Limit, total)})
}

// -----------------------------------------------------------------------------
// GET /api/feedback
// -----------------------------------------------------------------------------
func (h *FeedbackHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, "")
	}
}

// -----------------------------------------------------------------------------
// GET /api/feedback/mine
// -----------------------------------------------------------------------------
func (h *FeedbackHTTP) Mine() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := utils.UserID(r.Context())
		if uid == "" {
			utils.Fail(w, r, utils.AuthError(""))
			return
		}
		h.list(w, r, uid)
	}
}

// -----------------------------------------------------------------------------
// POST /api/feedback
// -----------------------------------------------------------------------------
func (h *FeedbackHTTP) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.CreateFeedbackInput
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.Fail(w, r, err)
			return
		}
		f, err := h.svc.Create(r.Context(), in, utils.UserID(r.Context()))
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusCreated, f)
	}
}

// -----------------------------------------------------------------------------
// GET /api/feedback/{id}
// -----------------------------------------------------------------------------
func (h *FeedbackHTTP) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusOK, f)
	}
}

// -----------------------------------------------------------------------------
// PATCH /api/feedback/{id}/status|tags|assign
// -----------------------------------------------------------------------------
func (h *FeedbackHTTP) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Status string `json:"status"`
		}
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.Fail(w, r, err)
			return
		}
		f, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), in.Status)
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusOK, f)
	}
}

func (h *FeedbackHTTP) UpdateTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Tags []string `json:"tags"`
		}
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.Fail(w, r, err)
			return
		}
		if in.Tags == nil {
			utils.Fail(w, r, utils.ValidationError("tags is required"))
			return
		}
		f, err := h.svc.UpdateTags(r.Context(), chi.URLParam(r, "id"), in.Tags)
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusOK, f)
	}
}

func (h *FeedbackHTTP) Assign() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			LeaderID string `json:"leaderId"`
		}
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.Fail(w, r, err)
			return
		}
		f, err := h.svc.Assign(r.Context(), chi.URLParam(r, "id"), in.LeaderID)
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusOK, f)
	}
}

// -----------------------------------------------------------------------------
// POST /api/feedback/{id}/replies
// -----------------------------------------------------------------------------
func (h *FeedbackHTTP) AddReply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Content string `json:"content"`
		}
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.Fail(w, r, err)
			return
		}
		f, err := h.svc.AddReply(r.Context(), chi.URLParam(r, "id"), in.Content, utils.UserID(r.Context()))
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusCreated, f)
	}
}

// -----------------------------------------------------------------------------
// DELETE /api/feedback/{id}
// -----------------------------------------------------------------------------
func (h *FeedbackHTTP) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]string{"message": "Feedback deleted successfully"})
	}
}
