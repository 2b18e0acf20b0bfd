/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"

	"github.com/suparena/doccontext/errors"
)

// RegisterDiscriminator claims value for t. Claiming the same value for the
// same type again is a no-op; claiming it for another type panics with a
// *errors.ConfigurationError, because documents of both types would become
// indistinguishable in a shared collection.
func (r *Registry) RegisterDiscriminator(value string, t reflect.Type) {
	if value == "" {
		return
	}
	t = indirect(t)
	existing, loaded := r.discriminators.LoadOrStore(value, t)
	if loaded && existing.(reflect.Type) != t {
		panic(errors.NewConfigurationError(t.String(), "", fmt.Sprintf("discriminator %q already used by %s", value, existing)))
	}
}

// ByDiscriminator resolves the entity type stored under a _t value.
func (r *Registry) ByDiscriminator(value string) (reflect.Type, bool) {
	v, ok := r.discriminators.Load(value)
	if !ok {
		return nil, false
	}
	return v.(reflect.Type), true
}
