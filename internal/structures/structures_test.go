package structures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsChannelID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"C051D4052", true},
		{"D0500012X", true},
		{"G0500012X", true},
		{"C01", false},
		{"U0500012X", false},
		{"#general", false},
		{"", false},
		{"c051d4052", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsChannelID(tt.id))
		})
	}
}

func TestIsUserID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"U024BE7LH", true},
		{"W024BE7LH", true},
		{"C024BE7LH", false},
		{"@alice", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUserID(tt.id))
		})
	}
}

func TestUnwrapMention(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"<@U024BE7LH>", "U024BE7LH", true},
		{"<@W024BE7LH|alice>", "W024BE7LH", true},
		{"@alice", "@alice", false},
		{"<@invalid>", "<@invalid>", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := UnwrapMention(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestExtractWorkspace(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"name as is", "unittest", "unittest", false},
		{"url", "https://unittest.slack.com/", "unittest", false},
		{"domain", "unittest.slack.com", "unittest", false},
		{"wrong domain", "unittest.example.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractWorkspace(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
