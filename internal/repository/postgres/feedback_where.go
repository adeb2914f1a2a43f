package postgres

import (
	"strings"

	"feedback-hub/internal/repository"
)

// buildFeedbackWhere composes WHERE clause and args for the list filters.
// Ids that are not uuids cannot match anything and are filtered as false.
func buildFeedbackWhere(f repository.FeedbackFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if f.Status != "" {
		args = append(args, string(f.Status))
		clauses = append(clauses, "f.status = $"+itoa(len(args)))
	}
	if t := strings.TrimSpace(f.Tag); t != "" {
		args = append(args, t)
		clauses = append(clauses, "$"+itoa(len(args))+" = ANY(f.tags)")
	}
	if a := strings.TrimSpace(f.AssignedLeader); a != "" {
		if checkID(a) != nil {
			clauses = append(clauses, "FALSE")
		} else {
			args = append(args, a)
			clauses = append(clauses, "f.assigned_leader = $"+itoa(len(args))+"::uuid")
		}
	}
	if s := strings.TrimSpace(f.Submitter); s != "" {
		if checkID(s) != nil {
			clauses = append(clauses, "FALSE")
		} else {
			args = append(args, s)
			clauses = append(clauses, "f.submitter = $"+itoa(len(args))+"::uuid")
		}
	}
	if f.IsAnonymous != nil {
		args = append(args, *f.IsAnonymous)
		clauses = append(clauses, "f.is_anonymous = $"+itoa(len(args)))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		clauses = append(clauses, "f.created_at >= $"+itoa(len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		clauses = append(clauses, "f.created_at <= $"+itoa(len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}
