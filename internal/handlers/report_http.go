package handlers

import (
	"net/http"

	"feedback-hub/internal/service"
	"feedback-hub/internal/utils"
)

type ReportsHTTP struct {
	svc *service.FeedbackService
}

func NewReportsHTTP(svc *service.FeedbackService) *ReportsHTTP { return &ReportsHTTP{svc: svc} }

// GET /api/feedback/metrics/dashboard and /api/metrics/dashboard
// Returns: { total, statusDistribution, tagDistribution, topSubmitters, anonymousCount, anonymousRatio }
func (h *ReportsHTTP) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := h.svc.Metrics(r.Context())
		if err != nil {
			utils.Fail(w, r, err)
			return
		}
		utils.JSON(w, http.StatusOK, m)
	}
}
