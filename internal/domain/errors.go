// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist within the
// caller's scope. Cross-tenant lookups intentionally report this rather
// than ErrForbidden so existence is never leaked across tenants.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates malformed or missing required input.
var ErrValidation = errors.New("validation failed")

// ErrForbidden indicates the principal's scope does not allow the operation.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidState indicates a transition attempted from a terminal or
// otherwise wrong state.
var ErrInvalidState = errors.New("invalid state transition")

// ErrConflict indicates a cross-entity invariant violation, such as deleting
// a lead that still has open follow-up obligations.
var ErrConflict = errors.New("conflict")

// ErrNoTenant indicates a principal without a home tenant attempted a
// tenant-scoped operation.
var ErrNoTenant = errors.New("principal has no tenant")
