/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package backend provides an HTTP JSON implementation of assistant.Backend.
//
// Outgoing requests pass through a chain of round trippers that set User-Agent, X-Request-ID
// and Authorization headers, log and measure every call.
package backend
