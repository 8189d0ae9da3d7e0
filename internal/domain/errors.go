// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the entity already exists or was modified by another request.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates a request failed validation checks.
var ErrValidation = errors.New("validation failed")

// ErrRejected indicates a prompt was rejected as infeasible by the planner.
// This is a business-rule rejection carrying a reason, not a transport failure.
var ErrRejected = errors.New("prompt rejected")

// ErrUpstream indicates an LLM or catalog call failed or timed out.
var ErrUpstream = errors.New("upstream failure")

// ErrUnavailable indicates the integration catalog returned no usable actions.
var ErrUnavailable = errors.New("no actions available")
