package mongo

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"feedback-hub/internal/repository"
)

// feedbackQuery translates the list filter into a query document. The
// second return is false when an id filter is malformed, in which case
// nothing can match.
func feedbackQuery(f repository.FeedbackFilter) (bson.M, bool) {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = string(f.Status)
	}
	if t := strings.TrimSpace(f.Tag); t != "" {
		q["tags"] = t
	}
	if a := strings.TrimSpace(f.AssignedLeader); a != "" {
		oid, err := primitive.ObjectIDFromHex(a)
		if err != nil {
			return nil, false
		}
		q["assignedLeader"] = oid
	}
	if s := strings.TrimSpace(f.Submitter); s != "" {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, false
		}
		q["submitter"] = oid
	}
	if f.IsAnonymous != nil {
		q["isAnonymous"] = *f.IsAnonymous
	}
	if f.StartDate != nil || f.EndDate != nil {
		rng := bson.M{}
		if f.StartDate != nil {
			rng["$gte"] = *f.StartDate
		}
		if f.EndDate != nil {
			rng["$lte"] = *f.EndDate
		}
		q["createdAt"] = rng
	}
	return q, true
}

func userQuery(f repository.UserFilter) bson.M {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = string(f.Role)
	}
	if f.Q != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Q), Options: "i"}
		q["$or"] = bson.A{bson.M{"email": pattern}, bson.M{"name": pattern}}
	}
	return q
}
