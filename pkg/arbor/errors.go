package arbor

import "errors"

// ErrNoProvider is returned by Context.Lookup when no provider for the
// context exists on the scope's ancestor chain. The core never substitutes
// a default; callers decide whether absence is fatal or a fall-back case
// (see Context.UseOr).
var ErrNoProvider = errors.New("arbor: no provider in scope")

// ErrScopeDisposed is returned when an operation targets a scope that has
// already been disposed.
var ErrScopeDisposed = errors.New("arbor: scope disposed")
