// Package english canonicalises English text before it is embedded.
//
// Text is lowercased and split into word tokens. Stopwords and tokens that
// are not purely alphabetic are dropped, and the survivors are reduced to
// their dictionary lemma and joined with single spaces.
package english

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"

	"github.com/custodia-labs/askme/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.TextNormaliser = (*Normaliser)(nil)

// tokenPattern matches word-like runs, keeping clitics attached so they can
// be split off explicitly.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+(?:['’][\p{L}]+)*`)

// Normaliser is immutable after construction and safe for concurrent use.
type Normaliser struct {
	lemmatizer *golem.Lemmatizer
	stopwords  map[string]struct{}
}

var (
	sharedOnce sync.Once
	shared     *Normaliser
	sharedErr  error
)

// New loads the English lemma dictionary. The dictionary is large, so
// callers should construct one Normaliser per process and share it.
func New() (*Normaliser, error) {
	l, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemmas: %w", err)
	}
	return &Normaliser{
		lemmatizer: l,
		stopwords:  defaultStopwords(),
	}, nil
}

// Shared returns a process-wide Normaliser, loading it on first use.
func Shared() (*Normaliser, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = New()
	})
	return shared, sharedErr
}

// Normalise reduces text to its lemma sequence. It never fails; an input
// with no surviving tokens yields "".
func (n *Normaliser) Normalise(text string) string {
	tokens := n.tokenize(strings.ToLower(text))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		if !isAlpha(tok) {
			continue
		}
		out = append(out, strings.ToLower(n.lemmatizer.Lemma(tok)))
	}
	return strings.Join(out, " ")
}

// NormaliseMany applies Normalise to every element.
func (n *Normaliser) NormaliseMany(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = n.Normalise(t)
	}
	return out
}

// tokenize splits lowercased text into tokens, separating English clitics
// ("don't" -> "do" "n't", "it's" -> "it" "'s").
func (n *Normaliser) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(text, -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.ReplaceAll(tok, "’", "'")
		if strings.HasSuffix(tok, "n't") && len(tok) > 3 {
			tokens = append(tokens, tok[:len(tok)-3], "n't")
			continue
		}
		if i := strings.IndexByte(tok, '\''); i > 0 {
			tokens = append(tokens, tok[:i], tok[i:])
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
