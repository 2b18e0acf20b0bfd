/*
Package bsonmap is the serialization subsystem the datastore drivers share.

A ClassMap is the storage plan of one entity type: which fields are stored,
under which element names, which field is the document identity (always
stored as _id), whether unknown elements are ignored and which discriminator
value is written to _t. Class maps are registered once into a Registry and are
frozen from then on:

	cm := bsonmap.NewClassMap(reflect.TypeOf(Order{})).AutoMap()
	cm.SetIDMember(cm.MapMember("ID"))
	cm.SetIgnoreExtraElements(true)
	bsonmap.Default().Register(cm)

Registry.Codecs returns a go.mongodb.org/mongo-driver codec registry that
encodes every registered type through its class map and every other struct
through the driver's default struct codec. time.Time, strfmt.DateTime and
big.Float always use the canonical DateTimeCodec and DecimalCodec.
*/
package bsonmap
