package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/pkg/id"
)

const defaultRadiusMeters = 5000

// Pins is the pins repository.
type Pins struct {
	coll *mongo.Collection
}

func (r *Pins) Create(ctx context.Context, p *schema.Pin) error {
	if p.ID == "" {
		p.ID = id.NewULID()
	}
	p.Tags = schema.NormalizeTags(p.Tags)
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, p)
	return mapErr(err)
}

func (r *Pins) ByID(ctx context.Context, id string) (*schema.Pin, error) {
	return findOne[schema.Pin](ctx, r.coll, bson.M{"_id": id})
}

// PinFilter narrows List. Near sorts by distance and ignores recency.
type PinFilter struct {
	UserID string
	Near   *schema.Point
	Radius float64 // meters
	Page
}

func (f PinFilter) query() bson.M {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.Near != nil {
		radius := f.Radius
		if radius <= 0 {
			radius = defaultRadiusMeters
		}
		q["location"] = bson.M{"$nearSphere": bson.M{
			"$geometry":    f.Near,
			"$maxDistance": radius,
		}}
	}
	return q
}

func (r *Pins) List(ctx context.Context, f PinFilter) ([]schema.Pin, error) {
	opts := f.apply(options.Find())
	if f.Near == nil {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}
	return findAll[schema.Pin](ctx, r.coll, f.query(), opts)
}

// PinPatch holds the fields an update may change.
type PinPatch struct {
	Title       *string
	Description *string
	URL         *string
	Tags        *[]string
	Location    *schema.Point
	VenueID     *string
}

func (p PinPatch) set() bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.URL != nil {
		set["url"] = *p.URL
	}
	if p.Tags != nil {
		set["tags"] = schema.NormalizeTags(*p.Tags)
	}
	if p.Location != nil {
		set["location"] = p.Location
	}
	if p.VenueID != nil {
		set["venue_id"] = *p.VenueID
	}
	return set
}

func (r *Pins) Update(ctx context.Context, id string, patch PinPatch) (*schema.Pin, error) {
	var p schema.Pin
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": patch.set()},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *Pins) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUser removes every pin owned by userID.
func (r *Pins) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, mapErr(err)
	}
	return res.DeletedCount, nil
}

// Search runs a $text query ranked by relevance.
func (r *Pins) Search(ctx context.Context, q string, limit int64) ([]schema.Pin, error) {
	score := bson.M{"score": bson.M{"$meta": "textScore"}}
	opts := Page{Limit: limit}.apply(options.Find().
		SetProjection(score).
		SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}))
	return findAll[schema.Pin](ctx, r.coll, bson.M{"$text": bson.M{"$search": q}}, opts)
}
