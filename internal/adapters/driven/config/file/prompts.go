package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/askme/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads prompt templates from <dir>/<name>.txt, falling back to
// built-in defaults. A template is re-read when its file's modification
// time changes, so edits apply without a restart.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]cachedPrompt
	initOnce  sync.Once
	initErr   error
}

type cachedPrompt struct {
	text    string
	modTime time.Time
}

// defaultPrompts are written out on first use so operators can edit them.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptFAQAnswer: `You are A customer support chatbot, designed to give precise, relevant answers based on the provided FAQ. Use the FAQ entries and conversation history below to craft a direct, helpful response to the user's question. If the exact answer isn't in the FAQ, infer the best possible answer or advise on next steps.

FAQs:
%s

Conversation so far:
%s

User question: %s

Please provide a clear answer based on the information above. Use a polite, concise tone and avoid unnecessary elaboration.`,
}

// NewPromptStore creates a file-based prompt store.
// If promptDir is empty, defaults to <config dir>/prompts.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get config directory: %w", err)
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]cachedPrompt),
	}, nil
}

// Load returns the named template. The file on disk wins over the
// built-in default; a missing or unreadable file falls back to it.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.writeDefaults)

	fallback, known := defaultPrompts[name]
	info, err := os.Stat(s.path(name))
	if err != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok && cached.modTime.Equal(info.ModTime()) {
		return cached.text, nil
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	text := strings.TrimSpace(string(data))

	s.mu.Lock()
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime()}
	s.mu.Unlock()
	return text, nil
}

// Reload drops every cached template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]cachedPrompt)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.promptDir, name+".txt")
}

// writeDefaults seeds the directory with editable copies of the built-in
// templates and a README. Existing files are left alone.
func (s *PromptStore) writeDefaults() {
	if err := os.MkdirAll(s.promptDir, 0o700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	for name, content := range defaultPrompts {
		if err := writeIfMissing(s.path(name), content); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}
	if err := writeIfMissing(filepath.Join(s.promptDir, "README.md"), promptReadme); err != nil {
		s.initErr = err
	}
}

func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var promptReadme = `# askme prompts

- ` + "`faq_answer.txt`" + ` - instructions for answering from retrieved FAQs (llm delivery mode)

The template takes three ` + "`%s`" + ` placeholders, in order: the FAQ
context, the conversation so far, and the user's question. A template
with a different number of placeholders is ignored in favour of the
built-in one.

Edits apply to the next answer; no restart is needed.
`
