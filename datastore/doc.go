/*
Package datastore defines the boundary between the repository layer and a
document store.

	type Database interface {
	    Name() string
	    Collection(name string) Collection
	    ClassMaps() *bsonmap.Registry
	}

A Collection offers the handful of operations the repositories need:
InsertOne, ReplaceOne (optionally upserting), DeleteOne, DeleteMany,
UpdateOne with a $set Update (optionally upserting), Find with sort, skip
and limit, and CountDocuments. Predicates are filter.Filter values.

Implementations:
  - mongodb: MongoDB through go.mongodb.org/mongo-driver
  - ddb: DynamoDB single-table layout, filters evaluated in process
  - mock: in-memory store for tests, with error injection
  - instrument: decorator adding Prometheus metrics and OpenTelemetry spans

Drivers return their own faults unchanged; the repositories above them do the
same, so errors reach the caller exactly as the store produced them.
*/
package datastore
