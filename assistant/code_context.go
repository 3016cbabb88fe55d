/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package assistant

import (
	"time"

	"github.com/acronis/go-aikit/langdetect"
	"github.com/acronis/go-aikit/log"
)

// CodeContext is the latest known content of an edited file.
type CodeContext struct {
	Path      string
	Content   string
	Language  langdetect.Language
	UpdatedAt time.Time
}

// UpdateCodeContext remembers the content of the file.
// When more than MaxCodeContexts files are tracked, the least recently updated ones are forgotten.
func (a *Assistant) UpdateCodeContext(path, content string) {
	cc := CodeContext{Path: path, Content: content, Language: a.detector.Detect(content)}

	a.contextsMu.Lock()
	defer a.contextsMu.Unlock()

	cc.UpdatedAt = a.now()
	for i := range a.contexts {
		if a.contexts[i].Path == path {
			a.contexts = append(a.contexts[:i], a.contexts[i+1:]...)
			break
		}
	}
	a.contexts = append(a.contexts, cc)
	if overflow := len(a.contexts) - a.maxContexts; overflow > 0 {
		for _, old := range a.contexts[:overflow] {
			a.logger.Debug("code context forgotten", log.String("path", old.Path))
		}
		a.contexts = append([]CodeContext(nil), a.contexts[overflow:]...)
	}
}

// CodeContext returns the tracked content of the file.
func (a *Assistant) CodeContext(path string) (CodeContext, bool) {
	a.contextsMu.Lock()
	defer a.contextsMu.Unlock()
	for _, cc := range a.contexts {
		if cc.Path == path {
			return cc, true
		}
	}
	return CodeContext{}, false
}

func (a *Assistant) contextsTracked() int {
	a.contextsMu.Lock()
	defer a.contextsMu.Unlock()
	return len(a.contexts)
}
