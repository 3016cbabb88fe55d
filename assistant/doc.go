/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package assistant composes a generation backend with request pacing, response caching and retries.
//
// Completions are cached by a fingerprint of the request and concurrent identical completions
// are coalesced into a single backend call. Chat requests are paced and retried but never cached,
// a bounded conversation history is attached to each of them.
package assistant
