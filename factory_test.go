/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package doccontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/config"
	"github.com/suparena/doccontext/datastore/ddb"
	"github.com/suparena/doccontext/datastore/instrument"
	"github.com/suparena/doccontext/datastore/mock"
	"github.com/suparena/doccontext/errors"
	"github.com/suparena/doccontext/registry"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := config.Default()
		store, err := Open(ctx, cfg, bsonmap.NewRegistry())
		require.NoError(t, err)
		defer store.Close(ctx)

		assert.IsType(t, &mock.Database{}, store.Database)
		assert.Equal(t, "doccontext", store.Name())
	})

	t.Run("instrumented memory store backs a context", func(t *testing.T) {
		cfg := config.Default()
		cfg.Metrics.Enabled = true
		store, err := Open(ctx, cfg, bsonmap.NewRegistry())
		require.NoError(t, err)

		wrapped, ok := store.Database.(*instrument.Database)
		require.True(t, ok)
		assert.IsType(t, &mock.Database{}, wrapped.Unwrap())

		cat := newCatalogModel().New(store, WithRegistry(registry.New()))
		require.NoError(t, cat.Widgets.SaveRange(ctx, widgets(3)))
		n, err := cat.Widgets.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("dynamodb", func(t *testing.T) {
		cfg := config.Default()
		cfg.Driver = config.DriverDynamoDB
		cfg.DynamoDB = config.DynamoDBConfig{
			Region:    "us-west-2",
			Table:     "doccontext",
			Endpoint:  "http://localhost:8000",
			AccessKey: "local",
			SecretKey: "local",
		}
		store, err := Open(ctx, cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, &ddb.Database{}, store.Database)
		assert.NoError(t, store.Close(ctx))
	})

	t.Run("invalid configuration", func(t *testing.T) {
		_, err := Open(ctx, nil, nil)
		assert.Error(t, err)

		cfg := config.Default()
		cfg.Driver = "sqlite"
		_, err = Open(ctx, cfg, nil)
		assert.True(t, errors.IsValidationError(err), "got %v", err)
	})
}
