/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/sirupsen/logrus"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/logging"
)

// API is the part of the DynamoDB client the driver uses. *dynamodb.Client
// satisfies it.
type API interface {
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	Region string
	// Static credentials. Both empty means the default AWS credential chain.
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, for DynamoDB Local.
	Endpoint string
}

// NewClient initializes a DynamoDB client.
func NewClient(ctx context.Context, opts ClientOptions) (*sdk.Client, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// Database stores every collection of one logical database in a single
// DynamoDB table. Each collection is one partition; documents are kept as
// BSON bytes so any entity maps without DynamoDB-specific tags.
type Database struct {
	client API
	table  string
	name   string
	maps   *bsonmap.Registry
	layout KeyLayout
	log    *logrus.Entry
}

// Option configures a Database.
type Option func(*Database)

// WithKeyLayout replaces DefaultKeyLayout.
func WithKeyLayout(l KeyLayout) Option {
	return func(d *Database) { d.layout = l }
}

// WithLogger sets the entry the driver logs to.
func WithLogger(log *logrus.Entry) Option {
	return func(d *Database) {
		if log != nil {
			d.log = log
		}
	}
}

// New creates a driver over table. The database name namespaces collection
// partitions so several databases can share one table. A nil registry means
// bsonmap.Default().
func New(client API, table, name string, maps *bsonmap.Registry, opts ...Option) (*Database, error) {
	if maps == nil {
		maps = bsonmap.Default()
	}
	d := &Database{
		client: client,
		table:  table,
		name:   name,
		maps:   maps,
		layout: DefaultKeyLayout,
		log:    logging.Named("ddb"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.layout.validate(); err != nil {
		return nil, fmt.Errorf("ddb: %w", err)
	}
	d.log.WithFields(logrus.Fields{"table": table, "database": name}).Info("DynamoDB datastore initialized")
	return d, nil
}

func (d *Database) Name() string { return d.name }

func (d *Database) ClassMaps() *bsonmap.Registry { return d.maps }

func (d *Database) Collection(name string) datastore.Collection {
	return &Collection{db: d, name: name}
}

var _ datastore.Database = (*Database)(nil)
