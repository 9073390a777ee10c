package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Extractor returns the plain text of a document.
type Extractor interface {
	Extract(path string) (string, error)
}

// ExtractionError reports a document whose text could not be obtained.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// markupExtensions are parsed as markup; every other file is read as text.
var markupExtensions = map[string]bool{
	".html":  true,
	".htm":   true,
	".xhtml": true,
	".xml":   true,
	".svg":   true,
}

// FileExtractor reads documents from the local file system.
type FileExtractor struct{}

func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

// Extract reads path and flattens it to text. Markup documents keep only
// their text nodes; other documents must be valid UTF-8.
func (f *FileExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}

	if markupExtensions[strings.ToLower(filepath.Ext(path))] {
		text, err := ParseMarkup(bytes.NewReader(data))
		if err != nil {
			return "", &ExtractionError{Path: path, Err: fmt.Errorf("parsing error: %w", err)}
		}
		return text, nil
	}

	if !utf8.Valid(data) {
		return "", &ExtractionError{Path: path, Err: fmt.Errorf("content is not valid UTF-8")}
	}
	return string(data), nil
}

// ParseMarkup extracts the text nodes of an HTML or XML stream, separated
// by single spaces. Script and style contents are dropped.
func ParseMarkup(body io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(body)
	var textBuilder strings.Builder
	inScript := false
	inStyle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return cleanText(textBuilder.String()), nil
			}
			return "", tokenizer.Err()

		case html.StartTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = true
			case "style":
				inStyle = true
			}

		case html.EndTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = false
			case "style":
				inStyle = false
			}

		case html.TextToken:
			if !inScript && !inStyle {
				text := strings.TrimSpace(tokenizer.Token().Data)
				if text != "" {
					textBuilder.WriteString(text + " ")
				}
			}
		}
	}
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
