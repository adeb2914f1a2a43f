// Package mongo stores users and feedback in MongoDB collections.
package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
)

const (
	usersCollection    = "users"
	feedbackCollection = "feedback"
)

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ExternalID string             `bson:"externalId"`
	Email      string             `bson:"email"`
	Name       string             `bson:"name"`
	Role       string             `bson:"role"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d userDoc) toModel() *models.User {
	return &models.User{
		ID:         d.ID.Hex(),
		ExternalID: d.ExternalID,
		Email:      d.Email,
		Name:       d.Name,
		Role:       models.Role(d.Role),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type replyDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Content   string             `bson:"content"`
	Author    string             `bson:"author"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type feedbackDoc struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty"`
	Content        string              `bson:"content"`
	IsAnonymous    bool                `bson:"isAnonymous"`
	Submitter      *primitive.ObjectID `bson:"submitter,omitempty"`
	Status         string              `bson:"status"`
	Tags           []string            `bson:"tags"`
	AssignedLeader *primitive.ObjectID `bson:"assignedLeader,omitempty"`
	Replies        []replyDoc          `bson:"replies"`
	CreatedAt      time.Time           `bson:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt"`
}

func (d feedbackDoc) toModel() *models.Feedback {
	f := &models.Feedback{
		ID:          d.ID.Hex(),
		Content:     d.Content,
		IsAnonymous: d.IsAnonymous,
		Status:      models.Status(d.Status),
		Tags:        append([]string{}, d.Tags...),
		Replies:     make([]models.Reply, 0, len(d.Replies)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Submitter != nil {
		f.Submitter = d.Submitter.Hex()
	}
	if d.AssignedLeader != nil {
		f.AssignedLeader = d.AssignedLeader.Hex()
	}
	for _, r := range d.Replies {
		f.Replies = append(f.Replies, models.Reply{
			ID:        r.ID.Hex(),
			Content:   r.Content,
			Author:    r.Author,
			CreatedAt: r.CreatedAt,
		})
	}
	return f
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", repository.ErrInvalidID, id)
	}
	return oid, nil
}

func optionalObjectID(id string) (*primitive.ObjectID, error) {
	if id == "" {
		return nil, nil
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}
