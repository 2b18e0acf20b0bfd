/*
Package storagemodels defines the result types shared by repositories and
queries.

Key Types:

Page:
One page of a paged listing, with the total number of matches:

	page, err := league.Players.Paginate(ctx, filter.Eq("Club", "Hastings"), 20, 2)
	for _, p := range page.Items {
	    ...
	}
	if page.HasNext() {
	    ...
	}

StreamResult:
Results from streaming queries with metadata:

	type StreamResult[T any] struct {
	    Item  T          // The decoded entity
	    Raw   bson.Raw   // The stored document
	    Error error      // Item-specific error, if any
	    Meta  StreamMeta // Metadata about this item
	}

StreamOptions:
Configuration for streaming behavior:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}

These types are the same for every datastore driver.
*/
package storagemodels
