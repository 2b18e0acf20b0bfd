/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mongodb implements datastore.Database on the MongoDB Go driver.
// Filters, sorting and paging run on the server.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/errors"
	"github.com/suparena/doccontext/filter"
	"github.com/suparena/doccontext/logging"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Database is a MongoDB database whose documents are encoded with a bsonmap
// registry.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
	maps   *bsonmap.Registry
	log    *logrus.Entry
}

type config struct {
	maps           *bsonmap.Registry
	log            *logrus.Entry
	appName        string
	connectTimeout time.Duration
	ping           bool
}

// Option configures Connect.
type Option func(*config)

// WithClassMaps encodes documents with maps instead of bsonmap.Default().
func WithClassMaps(maps *bsonmap.Registry) Option {
	return func(c *config) { c.maps = maps }
}

// WithLogger sets the entry connection events and commands are logged to.
func WithLogger(log *logrus.Entry) Option {
	return func(c *config) { c.log = log }
}

// WithAppName reports name to the server.
func WithAppName(name string) Option {
	return func(c *config) { c.appName = name }
}

// WithConnectTimeout bounds connection establishment and the initial ping.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) { c.connectTimeout = d }
}

// WithoutPing skips the initial round trip to the primary.
func WithoutPing() Option {
	return func(c *config) { c.ping = false }
}

// Connect opens a client on uri and returns the named database. An empty
// database name falls back to the one in the URI.
func Connect(ctx context.Context, uri, database string, opts ...Option) (*Database, error) {
	cfg := config{
		maps:           bsonmap.Default(),
		log:            logging.Named("mongodb"),
		connectTimeout: 10 * time.Second,
		ping:           true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if database == "" {
		cs, err := connstring.ParseAndValidate(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		database = cs.Database
	}
	if database == "" {
		return nil, errors.NewValidationError("database", "no database name given and none in the URI")
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetRegistry(cfg.maps.Codecs()).
		SetMonitor(commandMonitor(cfg.log)).
		SetConnectTimeout(cfg.connectTimeout)
	if cfg.appName != "" {
		clientOpts.SetAppName(cfg.appName)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if cfg.ping {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
	}

	cfg.log.WithField("database", database).Info("MongoDB datastore initialized")
	return &Database{client: client, db: client.Database(database), maps: cfg.maps, log: cfg.log}, nil
}

// commandMonitor logs every command at debug level.
func commandMonitor(log *logrus.Entry) *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(_ context.Context, e *event.CommandStartedEvent) {
			log.WithFields(logrus.Fields{
				"command":    e.CommandName,
				"database":   e.DatabaseName,
				"request_id": e.RequestID,
			}).Debug("mongo command started")
		},
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			log.WithFields(logrus.Fields{
				"command":    e.CommandName,
				"request_id": e.RequestID,
				"duration":   e.Duration,
			}).Debug("mongo command succeeded")
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			log.WithFields(logrus.Fields{
				"command":    e.CommandName,
				"request_id": e.RequestID,
				"duration":   e.Duration,
				"failure":    e.Failure,
			}).Warn("mongo command failed")
		},
	}
}

// Client returns the underlying driver client.
func (d *Database) Client() *mongo.Client { return d.client }

// Disconnect closes the client.
func (d *Database) Disconnect(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *Database) Name() string { return d.db.Name() }

func (d *Database) ClassMaps() *bsonmap.Registry { return d.maps }

func (d *Database) Collection(name string) datastore.Collection {
	return &Collection{coll: d.db.Collection(name)}
}

// Collection adapts *mongo.Collection. Driver errors are returned as they
// come, except duplicate key errors, which also match errors.ErrAlreadyExists.
type Collection struct {
	coll *mongo.Collection
}

func (c *Collection) Name() string { return c.coll.Name() }

func (c *Collection) InsertOne(ctx context.Context, document any) error {
	_, err := c.coll.InsertOne(ctx, document)
	return duplicateKey(err)
}

func (c *Collection) ReplaceOne(ctx context.Context, f filter.Filter, document any, upsert bool) error {
	_, err := c.coll.ReplaceOne(ctx, f.Render(), document, options.Replace().SetUpsert(upsert))
	return duplicateKey(err)
}

func (c *Collection) DeleteOne(ctx context.Context, f filter.Filter) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, f.Render())
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *Collection) DeleteMany(ctx context.Context, f filter.Filter) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, f.Render())
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *Collection) UpdateOne(ctx context.Context, f filter.Filter, u datastore.Update, upsert bool) error {
	_, err := c.coll.UpdateOne(ctx, f.Render(), u.Render(), options.Update().SetUpsert(upsert))
	return duplicateKey(err)
}

func (c *Collection) Find(ctx context.Context, f filter.Filter, opts *datastore.FindOptions) (datastore.Cursor, error) {
	cur, err := c.coll.Find(ctx, f.Render(), findOptions(opts))
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (c *Collection) CountDocuments(ctx context.Context, f filter.Filter) (int64, error) {
	return c.coll.CountDocuments(ctx, f.Render())
}

func findOptions(opts *datastore.FindOptions) *options.FindOptions {
	fo := options.Find()
	if opts == nil {
		return fo
	}
	if sort := opts.SortDocument(); sort != nil {
		fo.SetSort(sort)
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	return fo
}

func duplicateKey(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", errors.ErrAlreadyExists, err)
	}
	return err
}

var (
	_ datastore.Database   = (*Database)(nil)
	_ datastore.Collection = (*Collection)(nil)
)
