package store

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/pkg/id"
)

// Users is the users repository.
type Users struct {
	coll *mongo.Collection
}

// Create inserts u, assigning an ID and timestamps when missing. Email and
// username are normalized first.
func (r *Users) Create(ctx context.Context, u *schema.User) error {
	if u.ID == "" {
		u.ID = id.NewULID()
	}
	if u.Role == "" {
		u.Role = schema.RoleUser
	}
	u.Email = schema.NormalizeEmail(u.Email)
	u.Username = schema.NormalizeUsername(u.Username)
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, u)
	return mapErr(err)
}

func (r *Users) ByID(ctx context.Context, id string) (*schema.User, error) {
	return findOne[schema.User](ctx, r.coll, bson.M{"_id": id})
}

func (r *Users) ByEmail(ctx context.Context, email string) (*schema.User, error) {
	return findOne[schema.User](ctx, r.coll, bson.M{"email": schema.NormalizeEmail(email)})
}

// ByProvider finds the user linked to a provider account.
func (r *Users) ByProvider(ctx context.Context, provider, providerID string) (*schema.User, error) {
	return findOne[schema.User](ctx, r.coll, bson.M{"providers." + provider: providerID})
}

// LinkProvider attaches a provider account to an existing user.
func (r *Users) LinkProvider(ctx context.Context, userID, provider, providerID string) (*schema.User, error) {
	return r.update(ctx, userID, bson.M{"providers." + provider: providerID})
}

// UserPatch holds the fields a profile update may change. Nil fields are
// left as they are.
type UserPatch struct {
	Name     *string
	Username *string
	Avatar   *string
	Role     *string
}

func (p UserPatch) set() bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Username != nil {
		set["username"] = schema.NormalizeUsername(*p.Username)
	}
	if p.Avatar != nil {
		set["avatar"] = *p.Avatar
	}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	return set
}

// Update applies patch and returns the stored user.
func (r *Users) Update(ctx context.Context, id string, patch UserPatch) (*schema.User, error) {
	return r.update(ctx, id, patch.set())
}

// SetPassword replaces the password hash.
func (r *Users) SetPassword(ctx context.Context, id, hash string) error {
	_, err := r.update(ctx, id, bson.M{"password_hash": hash})
	return err
}

func (r *Users) update(ctx context.Context, id string, set bson.M) (*schema.User, error) {
	set["updated_at"] = time.Now().UTC()
	var u schema.User
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *Users) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns users newest first.
func (r *Users) List(ctx context.Context, page Page) ([]schema.User, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, mapErr(err)
	}
	opts := page.apply(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	users, err := findAll[schema.User](ctx, r.coll, bson.M{}, opts)
	return users, total, err
}

// Search matches users whose name or username starts with q.
func (r *Users) Search(ctx context.Context, q string, limit int64) ([]schema.User, error) {
	prefix := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(schema.NormalizeEmail(q)), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": prefix},
		bson.M{"name": prefix},
	}}
	opts := Page{Limit: limit}.apply(options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	return findAll[schema.User](ctx, r.coll, filter, opts)
}
