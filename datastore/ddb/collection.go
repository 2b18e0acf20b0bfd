/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/suparena/doccontext/bsonmap"
	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/datastore/docquery"
	"github.com/suparena/doccontext/errors"
	"github.com/suparena/doccontext/filter"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// batchSize is the BatchWriteItem request limit.
const batchSize = 25

// maxBatchAttempts bounds the resubmission of unprocessed batch items.
const maxBatchAttempts = 5

// storedItem is the DynamoDB representation of one document.
type storedItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Seq        int64  `dynamodbav:"Seq"`
	Document   []byte `dynamodbav:"Document"`
}

// loaded is a decoded storedItem.
type loaded struct {
	doc bson.Raw
	seq int64
	sk  string
}

var lastSeq atomic.Int64

// nextSeq returns a strictly increasing insertion stamp.
func nextSeq() int64 {
	for {
		prev := lastSeq.Load()
		now := time.Now().UnixNano()
		if now <= prev {
			now = prev + 1
		}
		if lastSeq.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// Collection is one partition of the table. Filters, sorting and paging are
// evaluated in-process over the partition. Writes that depend on a filter
// read the partition first; replacements and updates then fail with a
// ConditionFailedError if the item changed after that read.
type Collection struct {
	db   *Database
	name string
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) partition() string {
	return c.db.layout.partition(c.db.name, c.name)
}

func (c *Collection) sortKey(id bson.RawValue) string {
	return c.db.layout.sort(c.db.name, c.name, docquery.IDKey(id))
}

func (c *Collection) InsertOne(ctx context.Context, document any) error {
	raw, err := c.db.maps.Marshal(document)
	if err != nil {
		return err
	}
	raw, id, err := docquery.EnsureID(raw)
	if err != nil {
		return err
	}
	return c.put(ctx, raw, id, nextSeq(), createOnly)
}

func (c *Collection) ReplaceOne(ctx context.Context, f filter.Filter, document any, upsert bool) error {
	query, err := docquery.Compile(f, c.db.maps)
	if err != nil {
		return err
	}
	raw, err := c.db.maps.Marshal(document)
	if err != nil {
		return err
	}
	items, docs, err := c.load(ctx)
	if err != nil {
		return err
	}

	idx, err := docquery.Index(docs, query)
	if err != nil {
		return err
	}
	if idx >= 0 {
		existing := docs[idx].Lookup(bsonmap.IDElement)
		if id, err := raw.LookupErr(bsonmap.IDElement); err == nil && !docquery.Equal(id, existing) {
			return errors.NewValidationError(bsonmap.IDElement, "replacement cannot change the document identity")
		}
		if raw, err = docquery.WithID(raw, existing); err != nil {
			return err
		}
		return c.put(ctx, raw, existing, items[idx].seq, sameVersion)
	}
	if !upsert {
		return nil
	}

	if _, err := raw.LookupErr(bsonmap.IDElement); err != nil {
		seed, err := docquery.Seed(f, c.db.maps)
		if err != nil {
			return err
		}
		if id, err := seed.LookupErr(bsonmap.IDElement); err == nil {
			if raw, err = docquery.WithID(raw, id); err != nil {
				return err
			}
		}
	}
	raw, id, err := docquery.EnsureID(raw)
	if err != nil {
		return err
	}
	return c.put(ctx, raw, id, nextSeq(), createOnly)
}

func (c *Collection) DeleteOne(ctx context.Context, f filter.Filter) (int64, error) {
	matched, err := c.matching(ctx, f, 1)
	if err != nil || len(matched) == 0 {
		return 0, err
	}
	_, err = c.db.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: aws.String(c.db.table),
		Key:       buildKey(c.partition(), matched[0].sk),
	})
	if err != nil {
		return 0, fmt.Errorf("DeleteItem failed: %w", err)
	}
	return 1, nil
}

func (c *Collection) DeleteMany(ctx context.Context, f filter.Filter) (int64, error) {
	matched, err := c.matching(ctx, f, 0)
	if err != nil || len(matched) == 0 {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for start := 0; start < len(matched); start += batchSize {
		chunk := matched[start:min(start+batchSize, len(matched))]
		g.Go(func() error {
			return c.deleteBatch(gctx, chunk)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// deleteBatch removes up to batchSize items, resubmitting unprocessed ones.
func (c *Collection) deleteBatch(ctx context.Context, chunk []loaded) error {
	requests := make([]types.WriteRequest, 0, len(chunk))
	for _, it := range chunk {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: buildKey(c.partition(), it.sk)},
		})
	}

	pending := map[string][]types.WriteRequest{c.db.table: requests}
	for attempt := 1; ; attempt++ {
		out, err := c.db.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("BatchWriteItem failed: %w", err)
		}
		if len(out.UnprocessedItems) == 0 || len(out.UnprocessedItems[c.db.table]) == 0 {
			return nil
		}
		if attempt == maxBatchAttempts {
			return fmt.Errorf("BatchWriteItem left %d items unprocessed", len(out.UnprocessedItems[c.db.table]))
		}
		pending = out.UnprocessedItems
		c.db.log.WithFields(logrus.Fields{
			"collection":  c.name,
			"unprocessed": len(pending[c.db.table]),
			"attempt":     attempt,
		}).Debug("resubmitting unprocessed deletes")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
}

func (c *Collection) UpdateOne(ctx context.Context, f filter.Filter, u datastore.Update, upsert bool) error {
	query, err := docquery.Compile(f, c.db.maps)
	if err != nil {
		return err
	}
	set, err := docquery.EncodeSet(u, c.db.maps)
	if err != nil {
		return err
	}
	items, docs, err := c.load(ctx)
	if err != nil {
		return err
	}

	idx, err := docquery.Index(docs, query)
	if err != nil {
		return err
	}
	if idx >= 0 {
		updated, err := docquery.ApplySet(docs[idx], set)
		if err != nil {
			return err
		}
		return c.put(ctx, updated, updated.Lookup(bsonmap.IDElement), items[idx].seq, sameVersion)
	}
	if !upsert {
		return nil
	}

	seed, err := docquery.Seed(f, c.db.maps)
	if err != nil {
		return err
	}
	doc, err := docquery.ApplySet(seed, set)
	if err != nil {
		return err
	}
	doc, id, err := docquery.EnsureID(doc)
	if err != nil {
		return err
	}
	return c.put(ctx, doc, id, nextSeq(), createOnly)
}

func (c *Collection) Find(ctx context.Context, f filter.Filter, opts *datastore.FindOptions) (datastore.Cursor, error) {
	query, err := docquery.Compile(f, c.db.maps)
	if err != nil {
		return nil, err
	}
	_, docs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	found, err := docquery.Find(docs, query, opts)
	if err != nil {
		return nil, err
	}
	return docquery.NewCursor(found, c.db.maps), nil
}

func (c *Collection) CountDocuments(ctx context.Context, f filter.Filter) (int64, error) {
	matched, err := c.matching(ctx, f, 0)
	return int64(len(matched)), err
}

// matching returns up to limit items whose documents match f. A limit of 0
// returns all of them.
func (c *Collection) matching(ctx context.Context, f filter.Filter, limit int) ([]loaded, error) {
	query, err := docquery.Compile(f, c.db.maps)
	if err != nil {
		return nil, err
	}
	items, _, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	var out []loaded
	for _, it := range items {
		ok, err := docquery.Match(query, it.doc)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// writeCondition guards a put.
type writeCondition int

const (
	// createOnly fails when an item with the same key exists.
	createOnly writeCondition = iota
	// sameVersion fails unless the stored item still carries the Seq that
	// was read, so a concurrent replacement or delete is not overwritten.
	sameVersion
)

const sameVersionCondition = "Seq = :seq"

// put writes one document under cond.
func (c *Collection) put(ctx context.Context, doc bson.Raw, id bson.RawValue, seq int64, cond writeCondition) error {
	av, err := attributevalue.MarshalMap(storedItem{
		PK:         c.partition(),
		SK:         c.sortKey(id),
		EntityType: c.name,
		Seq:        seq,
		Document:   doc,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &sdk.PutItemInput{
		TableName: aws.String(c.db.table),
		Item:      av,
	}
	switch cond {
	case createOnly:
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	case sameVersion:
		input.ConditionExpression = aws.String(sameVersionCondition)
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":seq": &types.AttributeValueMemberN{Value: strconv.FormatInt(seq, 10)},
		}
	}

	if _, err := c.db.client.PutItem(ctx, input); err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			if cond == createOnly {
				return errors.NewAlreadyExistsError(c.name, docquery.IDKey(id))
			}
			return errors.NewConditionFailedError("PutItem", sameVersionCondition)
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// load reads the whole partition in stored order.
func (c *Collection) load(ctx context.Context) ([]loaded, []bson.Raw, error) {
	paginator := sdk.NewQueryPaginator(c.db.client, &sdk.QueryInput{
		TableName:              aws.String(c.db.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: c.partition()},
		},
		ConsistentRead: aws.Bool(true),
	})

	var items []loaded
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("query error: %w", err)
		}
		for _, av := range out.Items {
			var it storedItem
			if err := attributevalue.UnmarshalMap(av, &it); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal item: %w", err)
			}
			if err := bson.Raw(it.Document).Validate(); err != nil {
				return nil, nil, fmt.Errorf("item %s holds an invalid document: %w", it.SK, err)
			}
			items = append(items, loaded{doc: it.Document, seq: it.Seq, sk: it.SK})
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].seq < items[j].seq })
	docs := make([]bson.Raw, len(items))
	for i, it := range items {
		docs[i] = it.doc
	}
	return items, docs, nil
}

var _ datastore.Collection = (*Collection)(nil)
