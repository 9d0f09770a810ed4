// Package faqfile reads FAQ upload files and watches directories of them.
//
// CSV files need a header row naming a question and an answer column.
// JSON and YAML files hold either a list of objects or an object with a
// "faqs" list. Column and field names are matched case-insensitively.
// Markdown files use headings as questions and the text under each
// heading as the answer. A file with any blank question or answer is
// rejected whole.
package faqfile

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/askme/internal/core/domain"
)

// Format names an upload file format.
type Format string

// Supported formats.
const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

const (
	questionField = "question"
	answerField   = "answer"
	listField     = "faqs"
)

// ParseFormat resolves a format name such as "csv" or "yml".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: file format %q", domain.ErrUnsupportedType, name)
	}
}

// FormatFromPath picks the format from a file's extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Supported reports whether path has an extension Parse understands.
func Supported(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// ParseFile reads and parses the file at path.
func ParseFile(path string) ([]domain.FAQInput, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	faqs, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return faqs, nil
}

// Parse decodes FAQs from r in the given format.
func Parse(r io.Reader, format Format) ([]domain.FAQInput, error) {
	var (
		faqs []domain.FAQInput
		err  error
	)
	switch format {
	case FormatCSV:
		faqs, err = parseCSV(r)
	case FormatJSON:
		faqs, err = parseDocument(r, func(data []byte, v any) error { return json.Unmarshal(data, v) })
	case FormatYAML:
		faqs, err = parseDocument(r, yaml.Unmarshal)
	case FormatMarkdown:
		faqs, err = parseMarkdown(r)
	default:
		return nil, fmt.Errorf("%w: file format %q", domain.ErrUnsupportedType, format)
	}
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateFAQs(faqs); err != nil {
		return nil, err
	}
	return faqs, nil
}

func parseCSV(r io.Reader) ([]domain.FAQInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty CSV file", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read CSV header: %w", domain.ErrInvalidInput, err)
	}

	qCol, aCol := -1, -1
	for i, name := range header {
		switch normaliseKey(name) {
		case questionField:
			qCol = i
		case answerField:
			aCol = i
		}
	}
	if qCol < 0 || aCol < 0 {
		return nil, fmt.Errorf("%w: CSV header needs %q and %q columns", domain.ErrInvalidInput, questionField, answerField)
	}

	var faqs []domain.FAQInput
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", domain.ErrInvalidInput, line, err)
		}
		if qCol >= len(record) || aCol >= len(record) {
			return nil, fmt.Errorf("%w: line %d: missing fields", domain.ErrInvalidInput, line)
		}
		faqs = append(faqs, domain.FAQInput{Question: record[qCol], Answer: record[aCol]})
	}
	return faqs, nil
}

// parseDocument decodes a JSON or YAML document holding FAQ objects.
func parseDocument(r io.Reader, unmarshal func([]byte, any) error) ([]domain.FAQInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var doc any
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", domain.ErrInvalidInput, err)
	}

	if obj, ok := doc.(map[string]any); ok {
		doc = field(obj, listField)
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of FAQs or an object with a %q list", domain.ErrInvalidInput, listField)
	}

	faqs := make([]domain.FAQInput, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is not an object", domain.ErrInvalidInput, i+1)
		}
		q, qok := field(obj, questionField).(string)
		a, aok := field(obj, answerField).(string)
		if !qok || !aok {
			return nil, fmt.Errorf("%w: row %d needs string %q and %q fields", domain.ErrInvalidInput, i+1, questionField, answerField)
		}
		faqs[i] = domain.FAQInput{Question: q, Answer: a}
	}
	return faqs, nil
}

// field looks up key in obj ignoring case.
func field(obj map[string]any, key string) any {
	if v, ok := obj[key]; ok {
		return v
	}
	for k, v := range obj {
		if normaliseKey(k) == key {
			return v
		}
	}
	return nil
}

func normaliseKey(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}
