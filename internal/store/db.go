// Package store is the MongoDB handle and the repositories over it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/pinspot/api/internal/schema"
)

const (
	defaultDatabase       = "pinspot"
	defaultConnectTimeout = 10 * time.Second
)

// Opener opens the database for the App's InitDB phase.
type Opener func(ctx context.Context, uri, name string, def schema.Definition) (*DB, error)

// DB is the shared database handle. It is safe for concurrent use.
type DB struct {
	client *mongo.Client
	db     *mongo.Database

	Users   *Users
	Pins    *Pins
	Invites *Invites
}

// DatabaseName returns name, or the database in the uri path, or the default.
func DatabaseName(uri, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", errors.Join(ErrInvalidURI, err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}
	return defaultDatabase, nil
}

// Connect creates the client without waiting for the server. Failures to
// reach it surface on first use or on Ping.
func Connect(ctx context.Context, uri, name string) (*DB, error) {
	if uri == "" {
		return nil, ErrEmptyURI
	}
	dbName, err := DatabaseName(uri, name)
	if err != nil {
		return nil, err
	}
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(defaultConnectTimeout).
		SetServerSelectionTimeout(defaultConnectTimeout))
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}
	return newDB(client, client.Database(dbName)), nil
}

func newDB(client *mongo.Client, db *mongo.Database) *DB {
	return &DB{
		client:  client,
		db:      db,
		Users:   &Users{coll: db.Collection(schema.Users)},
		Pins:    &Pins{coll: db.Collection(schema.Pins)},
		Invites: &Invites{coll: db.Collection(schema.Invites)},
	}
}

// Open connects, pings and applies the schema indexes.
func Open(ctx context.Context, uri, name string, def schema.Definition) (*DB, error) {
	db, err := Connect(ctx, uri, name)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		return nil, errors.Join(err, db.Close(ctx))
	}
	if err := db.EnsureIndexes(ctx, def); err != nil {
		return nil, errors.Join(err, db.Close(ctx))
	}
	return db, nil
}

// Name returns the database name.
func (db *DB) Name() string { return db.db.Name() }

// Database exposes the driver handle.
func (db *DB) Database() *mongo.Database { return db.db }

// Ping checks the primary is reachable. It doubles as the readiness check.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Join(ErrPing, err)
	}
	return nil
}

// Close disconnects the client.
func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes declared in def. Existing indexes with
// the same spec are left alone.
func (db *DB) EnsureIndexes(ctx context.Context, def schema.Definition) error {
	for _, c := range def.Collections {
		models := IndexModels(c)
		if len(models) == 0 {
			continue
		}
		if _, err := db.db.Collection(c.Name).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Join(ErrIndexes, fmt.Errorf("%s: %w", c.Name, err))
		}
	}
	return nil
}

// IndexModels converts a schema collection into driver index models.
func IndexModels(c schema.Collection) []mongo.IndexModel {
	models := make([]mongo.IndexModel, 0, len(c.Indexes))
	for _, idx := range c.Indexes {
		keys := make(bson.D, 0, len(idx.Keys))
		for _, k := range idx.Keys {
			keys = append(keys, bson.E{Key: k.Field, Value: keyValue(k.Kind)})
		}
		opts := options.Index().SetName(idx.Name)
		if idx.Unique {
			opts.SetUnique(true)
		}
		if idx.Sparse {
			opts.SetSparse(true)
		}
		models = append(models, mongo.IndexModel{Keys: keys, Options: opts})
	}
	return models
}

func keyValue(kind string) any {
	switch kind {
	case schema.Desc:
		return -1
	case schema.Text:
		return "text"
	case schema.Sphere2D:
		return "2dsphere"
	default:
		return 1
	}
}

// Page bounds a list query.
type Page struct {
	Limit  int64
	Offset int64
}

func (p Page) apply(o *options.FindOptions) *options.FindOptions {
	if p.Limit > 0 {
		o.SetLimit(p.Limit)
	}
	if p.Offset > 0 {
		o.SetSkip(p.Offset)
	}
	return o
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any) (*T, error) {
	var v T
	if err := coll.FindOne(ctx, filter).Decode(&v); err != nil {
		return nil, mapErr(err)
	}
	return &v, nil
}
