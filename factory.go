/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package doccontext

import (
	"context"
	"fmt"

	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/config"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/datastore/ddb"
	"github.com/suparena/doccontext/datastore/instrument"
	"github.com/suparena/doccontext/datastore/mock"
	"github.com/suparena/doccontext/datastore/mongodb"
	"github.com/suparena/doccontext/logging"
)

// Store is a database opened from configuration.
type Store struct {
	datastore.Database
	close func(context.Context) error
}

// Close releases the connection, if the driver holds one.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open configures logging and connects the driver cfg names. Documents are
// encoded with maps, or bsonmap.Default() when maps is nil. With metrics
// enabled the database is wrapped with instrument.Wrap.
func Open(ctx context.Context, cfg *config.Config, maps *bsonmap.Registry) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if maps == nil {
		maps = bsonmap.Default()
	}
	logging.Configure(cfg.Logging.Level, cfg.Logging.Format)
	log := logging.Named("doccontext")

	store := &Store{}
	switch cfg.Driver {
	case config.DriverMongoDB:
		opts := []mongodb.Option{mongodb.WithClassMaps(maps)}
		if cfg.MongoDB.AppName != "" {
			opts = append(opts, mongodb.WithAppName(cfg.MongoDB.AppName))
		}
		if cfg.MongoDB.ConnectTimeout > 0 {
			opts = append(opts, mongodb.WithConnectTimeout(cfg.MongoDB.ConnectTimeout))
		}
		db, err := mongodb.Connect(ctx, cfg.MongoDB.URI, cfg.Database, opts...)
		if err != nil {
			return nil, err
		}
		store.Database, store.close = db, db.Disconnect

	case config.DriverDynamoDB:
		client, err := ddb.NewClient(ctx, ddb.ClientOptions{
			Region:    cfg.DynamoDB.Region,
			AccessKey: cfg.DynamoDB.AccessKey,
			SecretKey: cfg.DynamoDB.SecretKey,
			Endpoint:  cfg.DynamoDB.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		db, err := ddb.New(client, cfg.DynamoDB.Table, cfg.Database, maps)
		if err != nil {
			return nil, err
		}
		store.Database = db

	case config.DriverMemory:
		store.Database = mock.New(cfg.Database, maps)
	}

	if cfg.Metrics.Enabled {
		store.Database = instrument.Wrap(store.Database)
	}
	log.WithField("driver", cfg.Driver).WithField("database", store.Name()).Info("Store opened")
	return store, nil
}
