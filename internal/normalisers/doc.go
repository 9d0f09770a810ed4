// Package normalisers groups the text normalisers that canonicalise FAQ
// questions and user queries before they are embedded.
//
// Each language lives in its own subpackage and implements
// driven.TextNormaliser. Only English is provided.
package normalisers
