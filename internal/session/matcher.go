package session

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/morahq/mora/internal/events"
)

// Matcher decides which thought steps a completion-trigger event marks as
// complete. It is a documented heuristic, not a correctness mechanism: the
// backend phrases its progress lines freely, so matching is a keyword
// substring check, and zero matches is a valid no-op outcome.
type Matcher interface {
	Matches(trigger events.Type, stepText string) bool
}

// KeywordMatcher matches step text against a fixed bilingual keyword set per
// trigger tag. Matching is case-insensitive on NFC-normalized text so
// composed and decomposed wire spellings compare equal.
type KeywordMatcher struct {
	keywords map[events.Type][]string
}

// NewKeywordMatcher builds a matcher from a trigger-to-keywords mapping.
// Keywords are normalized and lowercased once, up front.
func NewKeywordMatcher(keywords map[events.Type][]string) *KeywordMatcher {
	m := &KeywordMatcher{keywords: make(map[events.Type][]string, len(keywords))}
	for trigger, words := range keywords {
		normalized := make([]string, 0, len(words))
		for _, w := range words {
			normalized = append(normalized, canonical(w))
		}
		m.keywords[trigger] = normalized
	}
	return m
}

// DefaultMatcher returns the keyword set observed from the backend's
// Chinese/English progress lines.
func DefaultMatcher() *KeywordMatcher {
	return NewKeywordMatcher(map[events.Type][]string{
		events.TypeSubtitle: {
			"字幕", "subtitle", "提取", "extract",
		},
		events.TypeCodeDone: {
			"生成代码", "generating code",
			"分析视频", "analyzing video",
			"代码", "code",
		},
	})
}

// Matches reports whether stepText contains any keyword registered for the
// trigger tag.
func (m *KeywordMatcher) Matches(trigger events.Type, stepText string) bool {
	words, ok := m.keywords[trigger]
	if !ok {
		return false
	}
	text := canonical(stepText)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func canonical(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
