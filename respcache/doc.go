/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package respcache provides a bounded in-memory cache for responses of an external service
// keyed by request fingerprints.
//
// Entries become stale after a fixed period since their insertion. Stale entries are reported as misses
// but are not removed until they are overwritten, evicted or the cache is cleared (lazy expiry).
// When a new fingerprint is added to a full cache, the entry inserted earliest is evicted.
package respcache
