package feed

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	xunicode "golang.org/x/text/encoding/unicode"
)

const (
	StrategyUTF8     = "utf-8"
	StrategyMojibake = "mojibake-repair"

	keywordWeight     = 100
	replacementWeight = 50

	// chardet guesses below this confidence are not worth scoring.
	minDetectConfidence = 50
)

// ScriptProfile describes the text a correct decode is expected to contain.
type ScriptProfile struct {
	Script   *unicode.RangeTable
	Keywords []string
}

// ArabicGamingProfile matches the Arabic gaming news sources the pipeline polls.
var ArabicGamingProfile = ScriptProfile{
	Script: unicode.Arabic,
	Keywords: []string{
		"لعبة", "ألعاب", "العاب", "الألعاب", "تحديث", "إصدار", "جديد",
		"بلايستيشن", "إكس بوكس", "نينتندو", "مجانا", "مراجعة",
	},
}

type DecodeStrategy struct {
	Name   string
	Decode func(data []byte) (string, error)
	// SingleByte strategies read every byte as one character. They are only
	// tried when the input is not valid UTF-8.
	SingleByte bool
}

type EncodingResolver struct {
	strategies []DecodeStrategy
	profile    ScriptProfile
	detector   *chardet.Detector
}

func NewEncodingResolver(legacyCodepage string, profile ScriptProfile) (*EncodingResolver, error) {
	legacy, err := htmlindex.Get(legacyCodepage)
	if err != nil {
		return nil, fmt.Errorf("unknown legacy codepage %q: %w", legacyCodepage, err)
	}
	legacyName, err := htmlindex.Name(legacy)
	if err != nil {
		legacyName = strings.ToLower(legacyCodepage)
	}

	return &EncodingResolver{
		strategies: []DecodeStrategy{
			{Name: StrategyUTF8, Decode: decodeUTF8},
			{Name: legacyName, Decode: decodeWith(legacy), SingleByte: true},
			{Name: StrategyMojibake, Decode: repairMojibake},
		},
		profile:  profile,
		detector: chardet.NewTextDetector(),
	}, nil
}

// Resolve decodes data with every candidate strategy and returns the text of the
// best scoring one together with the strategy name. hint is the charset announced
// by the server, if any.
func (r *EncodingResolver) Resolve(data []byte, hint string) (string, string) {
	bestText := ""
	bestName := ""
	bestScore := 0
	found := false

	for _, strategy := range r.candidates(data, hint) {
		text, err := strategy.Decode(data)
		if err != nil {
			slog.Debug("Decode strategy skipped", "strategy", strategy.Name, "error", err)
			continue
		}

		score := r.Score(text)
		if !found || score > bestScore {
			bestText, bestName, bestScore = text, strategy.Name, score
			found = true
		}
	}

	if !found {
		return string(data), StrategyUTF8
	}

	return bestText, bestName
}

// Score rates how plausible a decode is for the configured script.
func (r *EncodingResolver) Score(text string) int {
	script := 0
	replacements := 0
	for _, c := range text {
		switch {
		case c == utf8.RuneError:
			replacements++
		case r.profile.Script != nil && unicode.Is(r.profile.Script, c):
			script++
		}
	}

	keywords := 0
	for _, keyword := range r.profile.Keywords {
		keywords += strings.Count(text, keyword)
	}

	return script + keywordWeight*keywords - replacementWeight*replacements
}

func (r *EncodingResolver) candidates(data []byte, hint string) []DecodeStrategy {
	validUTF8 := utf8.Valid(data)

	candidates := make([]DecodeStrategy, 0, len(r.strategies)+2)
	for _, s := range r.strategies {
		if validUTF8 && s.SingleByte {
			continue
		}
		candidates = append(candidates, s)
	}

	if validUTF8 {
		return candidates
	}

	seen := make(map[string]bool, len(candidates))
	for _, s := range candidates {
		seen[s.Name] = true
	}

	addNamed := func(label string) {
		enc, err := htmlindex.Get(strings.TrimSpace(label))
		if err != nil {
			return
		}
		name, err := htmlindex.Name(enc)
		if err != nil || seen[name] {
			return
		}
		seen[name] = true
		candidates = append(candidates, DecodeStrategy{Name: name, Decode: decodeWith(enc), SingleByte: true})
	}

	if hint != "" {
		addNamed(hint)
	}

	if r.detector != nil {
		if result, err := r.detector.DetectBest(data); err == nil && result.Confidence >= minDetectConfidence {
			addNamed(result.Charset)
		}
	}

	return candidates
}

func decodeUTF8(data []byte) (string, error) {
	out, err := xunicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeWith(enc encoding.Encoding) func([]byte) (string, error) {
	return func(data []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// repairMojibake undoes UTF-8 text that was decoded as Windows-1252 and re-encoded:
// every rune is mapped back to its single byte and the bytes are read as UTF-8.
func repairMojibake(data []byte) (string, error) {
	text, err := decodeUTF8(data)
	if err != nil {
		return "", err
	}

	raw := make([]byte, 0, len(text))
	for _, c := range text {
		if c < 0x100 {
			raw = append(raw, byte(c))
			continue
		}
		b, ok := charmap.Windows1252.EncodeRune(c)
		if !ok {
			return "", fmt.Errorf("rune %U has no single-byte form", c)
		}
		raw = append(raw, b)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("repaired bytes are not valid UTF-8")
	}

	return string(raw), nil
}
