// Package engine implements the booking engine: device occupancy, per-device
// FIFO queues, the revenue ledger, session expiry and promotion-pending
// signals.  All mutable state lives behind a single mutex so that command
// handling and clock ticks never interleave.
//
// This file defines the sentinel errors returned by engine operations.
// Handlers distinguish failure modes with errors.Is and translate them into
// HTTP status codes; the engine itself never panics on bad input.
package engine

import "errors"

// ErrValidation is returned when required input is missing or malformed,
// such as an empty customer name or an unknown tier key.  The caller should
// re-prompt and retry.
var ErrValidation = errors.New("validation failed")

// ErrUnsupportedGame is returned when an explicitly chosen device cannot run
// the requested game.  The caller must pick a different device or game.
var ErrUnsupportedGame = errors.New("device does not support game")

// ErrNoDeviceSupportsGame is returned when no device in the catalog can ever
// serve the request.  The request is terminal; queueing would never help.
var ErrNoDeviceSupportsGame = errors.New("no device supports game")

// ErrNotFound is returned when an operation names a device or booking that
// does not exist.  Callers may treat it as already resolved.
var ErrNotFound = errors.New("not found")

// ErrDeviceBusy is returned when a promotion is attempted while the device
// still has an active session.  Promoting must never overwrite a session.
var ErrDeviceBusy = errors.New("device busy")

// ErrEmptyQueue is returned when a promotion is attempted on a device with
// nobody waiting.
var ErrEmptyQueue = errors.New("queue is empty")
