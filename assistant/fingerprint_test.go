/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package assistant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	base := Request{Kind: KindCompletion, Language: "go", Prompt: "func main() {", Context: "package main"}
	fp := Fingerprint(&base)
	require.Len(t, fp, 64)
	require.Equal(t, fp, Fingerprint(&Request{Kind: KindCompletion, Language: "go", Prompt: "func main() {",
		Context: "package main", MaxTokens: 100, ID: "other"}))

	variants := map[string]Request{
		"kind":     {Kind: KindChat, Language: base.Language, Prompt: base.Prompt, Context: base.Context},
		"task":     {Kind: base.Kind, Task: "security", Language: base.Language, Prompt: base.Prompt, Context: base.Context},
		"language": {Kind: base.Kind, Language: "python", Prompt: base.Prompt, Context: base.Context},
		"prompt":   {Kind: base.Kind, Language: base.Language, Prompt: "func init() {", Context: base.Context},
		"context":  {Kind: base.Kind, Language: base.Language, Prompt: base.Prompt, Context: ""},
		"boundary": {Kind: base.Kind, Language: base.Language, Prompt: "func main() {package main", Context: ""},
	}
	for name, req := range variants {
		t.Run(name, func(t *testing.T) {
			require.NotEqual(t, fp, Fingerprint(&req))
		})
	}

	t.Run("cache key", func(t *testing.T) {
		req := base
		req.CacheKey = "main.go:1"
		require.Equal(t, "main.go:1", Fingerprint(&req))
	})
}
