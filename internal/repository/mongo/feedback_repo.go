package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
)

type FeedbackRepo struct {
	col *mongo.Collection
}

func NewFeedbackRepo(db *mongo.Database) *FeedbackRepo {
	return &FeedbackRepo{col: db.Collection(feedbackCollection)}
}

func (r *FeedbackRepo) Create(ctx context.Context, f *models.Feedback) error {
	submitter, err := optionalObjectID(f.Submitter)
	if err != nil {
		return err
	}
	leader, err := optionalObjectID(f.AssignedLeader)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	doc := feedbackDoc{
		ID:             primitive.NewObjectID(),
		Content:        f.Content,
		IsAnonymous:    f.IsAnonymous,
		Submitter:      submitter,
		Status:         string(f.Status),
		Tags:           append([]string{}, f.Tags...),
		AssignedLeader: leader,
		Replies:        []replyDoc{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	*f = *doc.toModel()
	return nil
}

func (r *FeedbackRepo) Get(ctx context.Context, id string) (*models.Feedback, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc feedbackDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *FeedbackRepo) List(ctx context.Context, f repository.FeedbackFilter) ([]models.Feedback, int, error) {
	f.Normalize()
	q, ok := feedbackQuery(f)
	if !ok {
		return []models.Feedback{}, 0, nil
	}
	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Offset)).
		SetLimit(int64(f.Limit))
	out, err := r.find(ctx, q, opts)
	return out, int(total), err
}

func (r *FeedbackRepo) ListAll(ctx context.Context) ([]models.Feedback, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *FeedbackRepo) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Feedback, error) {
	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	var docs []feedbackDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Feedback, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.toModel())
	}
	return out, nil
}

func (r *FeedbackRepo) update(ctx context.Context, id string, update bson.M) (*models.Feedback, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now().UTC()
	update["$set"] = set

	var doc feedbackDoc
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *FeedbackRepo) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Feedback, error) {
	return r.update(ctx, id, bson.M{"$set": bson.M{"status": string(status)}})
}

func (r *FeedbackRepo) UpdateTags(ctx context.Context, id string, tags []string) (*models.Feedback, error) {
	return r.update(ctx, id, bson.M{"$set": bson.M{"tags": append([]string{}, tags...)}})
}

func (r *FeedbackRepo) Assign(ctx context.Context, id, leaderID string) (*models.Feedback, error) {
	leader, err := objectID(leaderID)
	if err != nil {
		return nil, err
	}
	return r.update(ctx, id, bson.M{"$set": bson.M{"assignedLeader": leader}})
}

func (r *FeedbackRepo) AddReply(ctx context.Context, id string, reply models.Reply) (*models.Feedback, error) {
	doc := replyDoc{ID: primitive.NewObjectID(), Content: reply.Content, Author: reply.Author, CreatedAt: reply.CreatedAt}
	return r.update(ctx, id, bson.M{"$push": bson.M{"replies": doc}})
}

func (r *FeedbackRepo) DeleteNew(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid, "status": string(models.StatusNew)})
	if err != nil {
		return err
	}
	if res.DeletedCount > 0 {
		return nil
	}
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if n > 0 {
		return repository.ErrConflict
	}
	return repository.ErrNotFound
}
