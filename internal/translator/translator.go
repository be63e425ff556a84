package translator

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

// AutoDetect asks the translator to detect the source language.
const AutoDetect = ""

type Result struct {
	Text string
	// DetectedSourceLanguage is the primary subtag the service detected, if any.
	DetectedSourceLanguage string
}

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (Result, error)
}

// PrimarySubtag returns the canonical base language of a BCP 47 tag
// ("en-US" -> "en", "iw" -> "he"). Tags that do not parse fall back to the
// lower-cased text before the first separator.
func PrimarySubtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if t, err := language.Parse(tag); err == nil {
		base, _ := t.Base()
		return base.String()
	}
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// Noop returns every input unchanged.
type Noop struct{}

func (Noop) Translate(_ context.Context, text, sourceLang, _ string) (Result, error) {
	return Result{Text: text, DetectedSourceLanguage: PrimarySubtag(sourceLang)}, nil
}
