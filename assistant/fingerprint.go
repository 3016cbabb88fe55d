/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package assistant

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the cache key of the request.
// CacheKey is used as is when set, otherwise the key is a SHA-256 digest of the kind, task, language, prompt and context.
func Fingerprint(req *Request) string {
	if req.CacheKey != "" {
		return req.CacheKey
	}
	h := sha256.New()
	for _, part := range []string{string(req.Kind), req.Task, string(req.Language), req.Prompt, req.Context} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
