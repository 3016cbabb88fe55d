/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package assistant

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-aikit/langdetect"
)

func TestAssistant_UpdateCodeContext(t *testing.T) {
	t.Run("content and language are tracked", func(t *testing.T) {
		env := newTestEnv(t, 10, Opts{})
		env.asst.UpdateCodeContext("main.go", "package main\n\nfunc main() {}")
		cc, found := env.asst.CodeContext("main.go")
		require.True(t, found)
		require.Equal(t, CodeContext{
			Path:      "main.go",
			Content:   "package main\n\nfunc main() {}",
			Language:  langdetect.LanguageGo,
			UpdatedAt: env.clock.Now(),
		}, cc)

		_, found = env.asst.CodeContext("other.go")
		require.False(t, found)
	})

	t.Run("least recently updated files are forgotten", func(t *testing.T) {
		env := newTestEnv(t, 10, Opts{MaxCodeContexts: 3})
		for i := 0; i < 4; i++ {
			env.asst.UpdateCodeContext(fmt.Sprintf("file%d.py", i), "import os")
			env.clock.Advance(time.Second)
		}
		require.Equal(t, 3, env.asst.Stats().ContextsTracked)
		_, found := env.asst.CodeContext("file0.py")
		require.False(t, found)

		// Updating refreshes the file, so the next oldest one goes.
		env.asst.UpdateCodeContext("file1.py", "import sys")
		env.asst.UpdateCodeContext("file4.py", "import re")
		require.Equal(t, 3, env.asst.Stats().ContextsTracked)
		_, found = env.asst.CodeContext("file2.py")
		require.False(t, found)
		cc, found := env.asst.CodeContext("file1.py")
		require.True(t, found)
		require.Equal(t, "import sys", cc.Content)
	})

	t.Run("default limit", func(t *testing.T) {
		env := newTestEnv(t, 10, Opts{})
		for i := 0; i < 15; i++ {
			env.asst.UpdateCodeContext(fmt.Sprintf("file%d.js", i), "const x = 1;")
		}
		require.Equal(t, DefaultMaxCodeContexts, env.asst.Stats().ContextsTracked)
		_, found := env.asst.CodeContext("file4.js")
		require.False(t, found)
		_, found = env.asst.CodeContext("file5.js")
		require.True(t, found)
	})
}
