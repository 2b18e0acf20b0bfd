/*
Package errors provides semantic error types for the doccontext module.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrAlreadyExists   = errors.New("entity already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrConfiguration   = errors.New("invalid mapping configuration")
	)

Repositories never translate store faults, so these types come from the
datastore drivers (duplicate inserts, failed conditional writes) and from the
mapping layer, which panics with a *ConfigurationError when a context model
is declared incorrectly. A missing entity is not an error: lookups return nil.

Usage:

	// Check error type
	err := collection.InsertOne(ctx, doc)
	if errors.IsAlreadyExists(err) {
	    // another writer got there first
	}

	// Create typed errors
	err := errors.NewAlreadyExistsError("Orders", key)
	err := errors.NewValidationError("_id", "document has no identifier")
	err := errors.NewConfigurationError("ShopContext", "Orders", "nil registration procedure")

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors