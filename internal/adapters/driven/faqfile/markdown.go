package faqfile

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/custodia-labs/askme/internal/core/domain"
)

var (
	headingLine  = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	fenceLine    = regexp.MustCompile("^\\s*(```|~~~)")
	imageSyntax  = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkSyntax   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	emphasis     = regexp.MustCompile(`(\*\*|__|\*)([^*_]+)(\*\*|__|\*)`)
	blockquote   = regexp.MustCompile(`^>\s?`)
	bulletMarker = regexp.MustCompile(`^\s*[-*+]\s+`)
	ruleLine     = regexp.MustCompile(`^\s*([-*_])(\s*([-*_])){2,}\s*$`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// section is one heading and the lines under it.
type section struct {
	level int
	title string
	body  []string
}

// parseMarkdown reads FAQs from a markdown document. Every heading is a
// question and the text under it, stripped of markup, is its answer. A
// heading followed by a deeper heading is a section title and yields no
// FAQ; text under it is treated as an introduction.
func parseMarkdown(r io.Reader) ([]domain.FAQInput, error) {
	var (
		sections []*section
		current  *section
		inFence  bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if fenceLine.MatchString(line) {
			inFence = !inFence
			continue
		}
		if !inFence {
			if m := headingLine.FindStringSubmatch(line); m != nil {
				current = &section{level: len(m[1]), title: stripInline(m[2])}
				sections = append(sections, current)
				continue
			}
		}
		if current == nil {
			continue
		}
		if inFence {
			current.body = append(current.body, line)
		} else {
			current.body = append(current.body, stripLine(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: markdown file has no headings", domain.ErrInvalidInput)
	}

	faqs := make([]domain.FAQInput, 0, len(sections))
	for i, s := range sections {
		if i+1 < len(sections) && sections[i+1].level > s.level {
			continue
		}
		faqs = append(faqs, domain.FAQInput{Question: s.title, Answer: joinBody(s.body)})
	}
	return faqs, nil
}

func stripLine(line string) string {
	if ruleLine.MatchString(line) {
		return ""
	}
	line = blockquote.ReplaceAllString(line, "")
	line = bulletMarker.ReplaceAllString(line, "- ")
	return stripInline(line)
}

func stripInline(s string) string {
	s = imageSyntax.ReplaceAllString(s, "")
	s = linkSyntax.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = emphasis.ReplaceAllString(s, "$2")
	return strings.TrimRight(s, " \t")
}

func joinBody(lines []string) string {
	text := strings.Join(lines, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
