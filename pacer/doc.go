/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package pacer provides a sliding-window request pacer that bounds
// the rate of outbound requests to an external service.
//
// Pacer keeps the instants of the admitted requests and, before every admission,
// forgets those that are older than the window. When the window is full,
// the caller is suspended until the oldest admission leaves the window.
// The internal lock is never held while the caller is suspended,
// so waiting callers do not block each other's bookkeeping.
package pacer
