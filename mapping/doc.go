/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package mapping derives the storage metadata of a context model's entity sets
and registers it, once per model, into the entity registry and the class-map
registry.

For every set the collection name is resolved in this order:

 1. a per-model override, Builder.Map(set, collection)
 2. the entity's own CollectionName() method
 3. the entity type name followed by "s"

When the class-map registry has no plan for the entity type yet, AutoMap
builds one: exported fields keyed by their bson tag or field name, unknown
elements ignored, the identifier (the field tagged `bson:"_id"`, else the
first field named id in any case) stored as _id, and the canonical codecs
forced for time.Time, strfmt.DateTime and big.Float members. Types
implementing Discriminated also get a required _t element.

A model can hand one set to its own Procedure with MapWith. The procedure
replaces the default steps for that set only.
*/
package mapping
