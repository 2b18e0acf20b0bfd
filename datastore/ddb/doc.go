/*
Package ddb provides a DynamoDB implementation of datastore.Database.

Every collection of a database lives in one partition of a single table.
Items carry the document as BSON bytes next to the key attributes:

	PK          "{database}#COLLECTION#{collection}"
	SK          "ID#{identity}"
	EntityType  the collection name
	Seq         insertion stamp, kept by replacements
	Document    the encoded document

Key templates use macros that are replaced when a key is built, and can be
changed with WithKeyLayout:

	db, err := ddb.New(client, "app-table", "league", maps,
	    ddb.WithKeyLayout(ddb.KeyLayout{PK: "DOC#{collection}", SK: "{id}"}),
	)

Reads page through the partition with a Query paginator and evaluate
filters, sorting and paging in-process with docquery, so the driver answers
exactly the queries the in-memory driver does. Inserts are conditional on the
key being free. Replacements and updates are conditional on the Seq read with
the partition, and fail with a ConditionFailedError when another writer got
there first. Bulk deletes go out as BatchWriteItem requests of 25.
*/
package ddb
