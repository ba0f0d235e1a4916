package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/morahq/mora/internal/events"
	"github.com/morahq/mora/internal/session"
)

func TestDefaultMatcherSubtitleKeywords(t *testing.T) {
	m := session.DefaultMatcher()

	tests := []struct {
		text string
		want bool
	}{
		{"正在提取字幕...", true},
		{"Subtitle extraction in progress", true},
		{"EXTRACTING audio track", true},
		{"正在生成代码", false},
		{"warming up workspace", false},
		{"", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, m.Matches(events.TypeSubtitle, tc.text), tc.text)
	}
}

func TestDefaultMatcherCodeDoneKeywords(t *testing.T) {
	m := session.DefaultMatcher()

	tests := []struct {
		text string
		want bool
	}{
		{"正在分析视频内容，生成代码...", true},
		{"Generating Code from transcript", true},
		{"analyzing video frames", true},
		{"代码生成成功", true},
		{"正在提取字幕...", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, m.Matches(events.TypeCodeDone, tc.text), tc.text)
	}
}

func TestMatcherUnknownTriggerNeverMatches(t *testing.T) {
	m := session.DefaultMatcher()
	assert.False(t, m.Matches(events.TypeDone, "code"))
	assert.False(t, m.Matches(events.TypeThought, "字幕"))
}

func TestCustomKeywordMatcher(t *testing.T) {
	m := session.NewKeywordMatcher(map[events.Type][]string{
		events.TypeSubtitle: {"transcript"},
	})
	assert.True(t, m.Matches(events.TypeSubtitle, "Downloading TRANSCRIPT"))
	assert.False(t, m.Matches(events.TypeSubtitle, "字幕"))
}
