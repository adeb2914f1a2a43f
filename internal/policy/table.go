package policy

import "feedback-hub/internal/models"

const (
	ManageUsers       = "manage:users"
	ViewLogs          = "view:logs"
	ViewMetrics       = "view:metrics"
	ViewFeedback      = "view:feedback"
	ManageFeedback    = "manage:feedback"
	RespondFeedback   = "respond:feedback"
	CreateFeedback    = "create:feedback"
	ViewOwnFeedback   = "view:own-feedback"
	EditOwnFeedback   = "edit:own-feedback"
	DeleteOwnFeedback = "delete:own-feedback"
	DeleteAnyFeedback = "delete:any-feedback"
)

// Grant is what one role may do.
type Grant struct {
	Permissions []string
	Routes      []string
}

type Table map[models.Role]Grant

// DefaultTable is the process-wide access table.
func DefaultTable() Table {
	return Table{
		models.RoleAdmin: {
			Permissions: []string{
				ManageUsers, ViewLogs, ViewMetrics, ViewFeedback,
				ManageFeedback, RespondFeedback, CreateFeedback,
				DeleteOwnFeedback, DeleteAnyFeedback,
			},
			Routes: []string{"/api/users", "/api/logs", "/api/metrics", "/api/feedback"},
		},
		models.RoleLeader: {
			Permissions: []string{ManageFeedback, ViewMetrics, ViewFeedback, RespondFeedback, CreateFeedback},
			Routes:      []string{"/api/feedback", "/api/metrics"},
		},
		models.RoleEmployee: {
			Permissions: []string{CreateFeedback, ViewOwnFeedback, EditOwnFeedback, DeleteOwnFeedback},
			Routes:      []string{"/api/feedback"},
		},
	}
}
