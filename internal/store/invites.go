package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/pkg/id"
)

// Invites is the invites repository.
type Invites struct {
	coll *mongo.Collection
}

// Create stores inv with a fresh UUID code. A second invite for the same
// email fails with ErrDuplicate.
func (r *Invites) Create(ctx context.Context, inv *schema.Invite) error {
	if inv.ID == "" {
		inv.ID = id.NewULID()
	}
	inv.Code = uuid.NewString()
	inv.Email = schema.NormalizeEmail(inv.Email)
	inv.CreatedAt = time.Now().UTC()
	_, err := r.coll.InsertOne(ctx, inv)
	return mapErr(err)
}

// Delete removes an invite by ID.
func (r *Invites) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Invites) ByEmail(ctx context.Context, email string) (*schema.Invite, error) {
	return findOne[schema.Invite](ctx, r.coll, bson.M{"email": schema.NormalizeEmail(email)})
}

func (r *Invites) ByCode(ctx context.Context, code string) (*schema.Invite, error) {
	if _, err := uuid.Parse(code); err != nil {
		return nil, ErrNotFound
	}
	return findOne[schema.Invite](ctx, r.coll, bson.M{"code": code})
}

// Accept marks a pending invite as used. Already accepted invites give
// ErrNotFound.
func (r *Invites) Accept(ctx context.Context, code string) (*schema.Invite, error) {
	var inv schema.Invite
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"code": code, "accepted_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"accepted_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&inv)
	if err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}
