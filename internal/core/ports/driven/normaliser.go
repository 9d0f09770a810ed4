package driven

// TextNormaliser canonicalises free text for embedding.
// Implementations are pure and safe for concurrent use; an input that
// reduces to no tokens yields the empty string, never an error.
type TextNormaliser interface {
	// Normalise lowercases, drops stopwords and non-alphabetic tokens,
	// lemmatises the rest and joins them with single spaces.
	Normalise(text string) string

	// NormaliseMany is Normalise applied element-wise.
	NormaliseMany(texts []string) []string
}
