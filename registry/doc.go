/*
Package registry holds the collection metadata of entity types.

Every entity type declared on a context model gets one EntityDescriptor, the
first time a context of that model is built:

	reg := registry.New()
	reg.Register(registry.EntityDescriptor{
	    Type:            reflect.TypeOf(Order{}),
	    Collection:      "Orders",
	    IdentifierField: "ID",
	})
	d, ok := registry.LookupFor[Order](reg)

Registration is add-if-absent and never fails, so concurrent first use of the
same model from several goroutines is safe without caller-side locking. Reads
go through a sync.Map and never wait on writers.

Once guards the mapping of a context model: the first caller runs the mapping,
every later caller (including ones racing with the first) returns after it has
completed. The guard is held only for that in-memory work.

Registry.RegisterDiscriminator keeps the _t values of polymorphic entity types
unique within a registry.

Default returns the process-wide registry; contexts can be given their own
through doccontext.WithRegistry, which is what tests usually do.
*/
package registry
