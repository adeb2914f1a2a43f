package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"feedback-hub/internal/models"
	"feedback-hub/internal/repository"
)

type UserRepo struct {
	col *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{col: db.Collection(usersCollection)}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	doc := userDoc{
		ID:         primitive.NewObjectID(),
		ExternalID: u.ExternalID,
		Email:      strings.ToLower(u.Email),
		Name:       u.Name,
		Role:       string(u.Role),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", repository.ErrConflict, err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	*u = *doc.toModel()
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, q bson.M) (*models.User, error) {
	var doc userDoc
	if err := r.col.FindOne(ctx, q).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"externalId": externalID})
}

func (r *UserRepo) List(ctx context.Context, f repository.UserFilter) ([]models.User, int, error) {
	f.Normalize()
	q := userQuery(f)
	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetSkip(int64(f.Offset)).
		SetLimit(int64(f.Limit)))
	if err != nil {
		return nil, 0, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]models.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.toModel())
	}
	return out, int(total), nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc userDoc
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"role": string(role), "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}
