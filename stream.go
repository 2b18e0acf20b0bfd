/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package doccontext

import (
	"context"
	"fmt"
	"time"

	"github.com/suparena/doccontext/datastore"
	"github.com/suparena/doccontext/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stream reads the query page by page in the background and delivers every
// result on the returned channel, which is closed when the query is
// exhausted, fails, or ctx is done. Transient store faults are retried with
// a linear backoff before they count as page errors.
func (q *Query[T]) Stream(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.PageSize <= 0 {
		options.PageSize = storagemodels.DefaultStreamOptions().PageSize
	}

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)
	go q.streamWorker(ctx, options, resultCh)
	return resultCh
}

func (q *Query[T]) streamWorker(ctx context.Context, options storagemodels.StreamOptions, resultCh chan<- storagemodels.StreamResult[T]) {
	defer close(resultCh)

	var (
		index      int64
		pageNumber int
		errs       []error
		startTime  = time.Now()
		pageSize   = int64(options.PageSize)
	)

	reportProgress := func() {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: index,
			PagesProcessed: pageNumber,
			Errors:         errs,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(index) / elapsed
		}
		options.ProgressHandler(progress)
	}

	meta := func() storagemodels.StreamMeta {
		return storagemodels.StreamMeta{Index: index, PageNumber: pageNumber, Timestamp: time.Now()}
	}

	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}

		take := pageSize
		if q.limit > 0 {
			if offset >= q.limit {
				break
			}
			take = min(take, q.limit-offset)
		}
		page := q.Skip(offset).Take(take)

		docs, err := page.fetchWithRetry(ctx, options)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if options.ErrorHandler == nil || !options.ErrorHandler(err) {
				select {
				case resultCh <- storagemodels.StreamResult[T]{Error: fmt.Errorf("stream page %d: %w", pageNumber+1, err), Meta: meta()}:
				case <-ctx.Done():
				}
				reportProgress()
				return
			}
			// A skipped page still advances the window.
			errs = append(errs, err)
			pageNumber++
			offset += take
			continue
		}

		pageNumber++
		for _, result := range docs {
			result.Meta = meta()
			index++
			select {
			case <-ctx.Done():
				return
			case resultCh <- result:
			}
			if result.Error != nil {
				errs = append(errs, result.Error)
			}
		}
		reportProgress()

		if int64(len(docs)) < take {
			break
		}
		offset += take
	}
	reportProgress()
}

// fetchWithRetry reads one page, retrying transient faults.
func (q *Query[T]) fetchWithRetry(ctx context.Context, options storagemodels.StreamOptions) ([]storagemodels.StreamResult[T], error) {
	var lastErr error
	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		docs, err := q.fetch(ctx)
		if err == nil {
			return docs, nil
		}
		lastErr = err
		if !datastore.IsRetryable(err) {
			return nil, err
		}
		if attempt < options.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * options.RetryBackoff):
			}
		}
	}
	return nil, fmt.Errorf("after %d retries: %w", options.MaxRetries, lastErr)
}

// fetch reads one page. A document that does not decode becomes an item
// error; it does not fail the page.
func (q *Query[T]) fetch(ctx context.Context) ([]storagemodels.StreamResult[T], error) {
	if q.empty() {
		return nil, nil
	}
	cur, err := q.collection().Find(ctx, q.Filter(), q.FindOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []storagemodels.StreamResult[T]
	for cur.Next(ctx) {
		var result storagemodels.StreamResult[T]
		result.Raw = q.currentRaw(cur)
		if err := cur.Decode(&result.Item); err != nil {
			result.Error = fmt.Errorf("decode %T: %w", result.Item, err)
		} else if result.Raw == nil {
			result.Raw, _ = q.ctx.ClassMaps().Marshal(&result.Item)
		}
		out = append(out, result)
	}
	return out, cur.Err()
}

// currentRaw copies the document the cursor is positioned on, when the
// cursor exposes it.
func (q *Query[T]) currentRaw(cur datastore.Cursor) bson.Raw {
	var raw bson.Raw
	switch c := cur.(type) {
	case *mongo.Cursor:
		raw = c.Current
	case interface{ Current() bson.Raw }:
		raw = c.Current()
	}
	if raw == nil {
		return nil
	}
	return append(bson.Raw(nil), raw...)
}
