package models

import "time"

type Status string

const (
	StatusNew      Status = "New"
	StatusInAction Status = "In Action"
	StatusHold     Status = "Hold"
	StatusClosed   Status = "Closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusNew, StatusInAction, StatusHold, StatusClosed}

// ParseStatus is exact: "in action" is not a status.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// KnownTags is the closed set of labels leaders can put on feedback.
var KnownTags = []string{
	"Workplace",
	"Management",
	"Compensation",
	"Benefits",
	"Culture",
	"Process",
	"Tools",
	"Communication",
	"Other",
}

func IsKnownTag(tag string) bool {
	for _, t := range KnownTags {
		if t == tag {
			return true
		}
	}
	return false
}

type Feedback struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	IsAnonymous    bool      `json:"isAnonymous"`
	Submitter      string    `json:"submitter,omitempty"`
	Status         Status    `json:"status"`
	Tags           []string  `json:"tags"`
	AssignedLeader string    `json:"assignedLeader,omitempty"`
	Replies        []Reply   `json:"replies"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Reply struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Metrics is the admin dashboard payload.
type Metrics struct {
	Total              int              `json:"total"`
	StatusDistribution map[Status]int   `json:"statusDistribution"`
	TagDistribution    map[string]int   `json:"tagDistribution"`
	TopSubmitters      []SubmitterCount `json:"topSubmitters"`
	AnonymousCount     int              `json:"anonymousCount"`
	AnonymousRatio     float64          `json:"anonymousRatio"`
}

type SubmitterCount struct {
	UserID string `json:"userId"`
	Count  int    `json:"count"`
}
