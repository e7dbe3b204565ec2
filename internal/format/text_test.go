package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/slack"
)

func TestSlackTimeISO(t *testing.T) {
	got, err := SlackTimeISO("1577880000.000000")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T12:00:00Z", got)

	got, err = SlackTimeISO("1577880000.500000")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T12:00:00.5Z", got)

	_, err = SlackTimeISO("not-a-timestamp")
	assert.Error(t, err)
}

func TestProcessText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello there", "hello there"},
		{
			"slack link mid-sentence gets a comma",
			"check <https://example.com/x|the docs> please",
			"check https://example.com/x - the docs, please",
		},
		{
			"slack link at end gets no comma",
			"see <https://example.com/x|the docs>",
			"see https://example.com/x - the docs",
		},
		{
			"markdown link",
			"read [this page](https://example.com/page) now",
			"read https://example.com/page - this page, now",
		},
		{
			"html anchor",
			`go to <a href="https://example.com">our site</a>`,
			"go to https://example.com - our site",
		},
		{
			"special characters stripped",
			"what?! *bold* ~strike~ (note)",
			"what? bold strike note",
		},
		{
			"urls survive cleaning",
			"fetch https://example.com/a?b=1&c=2 now!",
			"fetch https://example.com/a?b=1&c=2 now",
		},
		{
			"whitespace collapsed",
			"too   many\t\tspaces",
			"too many spaces",
		},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProcessText(tt.in))
		})
	}
}

func TestAttachmentText(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		got := AttachmentText(slack.Attachment{
			Title:      "Release notes",
			AuthorName: "release-bot",
			Pretext:    "new version",
			Text:       "v1.2.3 is out\n(changelog attached)",
			Footer:     "builds",
			Ts:         "1577880000",
		})
		assert.Equal(t, "Title: Release notes; Author: release-bot; Pretext: new version; Text: v1.2.3 is out [changelog attached]; Footer: builds @ 2020-01-01T12:00:00Z", got)
	})
	t.Run("empty attachment", func(t *testing.T) {
		assert.Empty(t, AttachmentText(slack.Attachment{}))
	})
	t.Run("footer without timestamp", func(t *testing.T) {
		got := AttachmentText(slack.Attachment{Footer: "source"})
		assert.Equal(t, "Footer: source", got)
	})
}

func TestAttachmentSuffix(t *testing.T) {
	atts := []slack.Attachment{
		{Title: "one"},
		{}, // contributes nothing
		{Title: "two"},
	}
	assert.Equal(t, ". Title: one, Title: two", AttachmentSuffix("some text", atts))
	assert.Equal(t, "Title: one, Title: two", AttachmentSuffix("", atts))
	assert.Empty(t, AttachmentSuffix("some text", nil))
	assert.Empty(t, AttachmentSuffix("some text", []slack.Attachment{{}}))
}

func TestUnfurlingEnabled(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		policy string
		want   bool
	}{
		{"empty policy", "https://example.com", "", false},
		{"no", "https://example.com", "no", false},
		{"false", "https://example.com", "false", false},
		{"zero", "https://example.com", "0", false},
		{"yes", "https://example.com", "yes", true},
		{"true", "https://example.com", "true", true},
		{"one", "https://example.com", "1", true},
		{"allowed domain", "see https://example.com/page", "example.com", true},
		{"www stripped", "see https://www.example.com/page", "example.com", true},
		{"port stripped", "see https://example.com:8443/page", "example.com", true},
		{"disallowed domain", "see https://evil.example.org/x", "example.com", false},
		{"one bad apple", "https://example.com and https://evil.org", "example.com", false},
		{"multiple domains", "https://a.com https://b.com", "a.com, b.com", true},
		{"no urls in text", "just words", "example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnfurlingEnabled(tt.text, tt.policy))
		})
	}
}
