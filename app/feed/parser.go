package feed

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
)

var errNotXML = errors.New("content is not XML")

// ParseError is returned when a response cannot be parsed in either format.
// Markup reports that the body looked like broken or foreign markup (an HTML
// block page, unescaped tags), which is worth one more fetch through a browser.
type ParseError struct {
	Err    error
	Markup bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// DetectFormat classifies text as JSON only when it parses as JSON and is not a
// JSON rendition of an RSS or Atom envelope.
func DetectFormat(text string) Format {
	format, _ := detect(trimBOM(text))
	return format
}

func (p *Parser) Run(text string) (*FetchResult, error) {
	text = trimBOM(text)

	if format, value := detect(text); format == FormatJSON {
		return &FetchResult{Format: FormatJSON, JSON: value}, nil
	}

	parsed, err := p.parseXML(text)
	if err == nil {
		return &FetchResult{Format: FormatXML, XML: parsed}, nil
	}

	if repaired := RepairMarkup(text); repaired != text {
		parsed, retryErr := p.parseXML(repaired)
		if retryErr == nil {
			slog.Debug("Feed parsed after markup repair", "original_error", err)
			return &FetchResult{Format: FormatXML, XML: parsed}, nil
		}
		slog.Debug("Markup repair did not help", "error", retryErr)
	}

	return nil, &ParseError{Err: err, Markup: isMarkupFailure(text, err)}
}

func (p *Parser) parseXML(text string) (*gofeed.Feed, error) {
	if !strings.HasPrefix(strings.TrimSpace(text), "<") {
		return nil, errNotXML
	}

	// gofeed parsers keep per-document state, so each parse gets its own.
	parsed, err := gofeed.NewParser().ParseString(text)
	if err != nil {
		return nil, err
	}
	return parsed, nil
}

func detect(text string) (Format, any) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return FormatXML, nil
	}

	decoder := json.NewDecoder(strings.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return FormatXML, nil
	}
	if decoder.More() {
		return FormatXML, nil
	}

	if object, ok := value.(map[string]any); ok {
		if _, ok := object["rss"]; ok {
			return FormatXML, nil
		}
		if _, ok := object["feed"]; ok {
			return FormatXML, nil
		}
	}

	return FormatJSON, value
}

func isMarkupFailure(text string, err error) bool {
	if looksLikeHTML(text) {
		return true
	}

	var syntaxErr *xml.SyntaxError
	return errors.As(err, &syntaxErr)
}

func looksLikeHTML(text string) bool {
	head := strings.TrimSpace(text)
	if len(head) > 512 {
		head = head[:512]
	}
	head = strings.ToLower(head)
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html")
}

func trimBOM(text string) string {
	return strings.TrimPrefix(text, "\ufeff")
}
