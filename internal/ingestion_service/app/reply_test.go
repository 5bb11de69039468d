package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldAutoReply(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		hasMedia bool
		want     bool
	}{
		{"empty body", "", false, false},
		{"whitespace only", "   ", true, false},
		{"question without media", "which quarter?", false, true},
		{"acknowledgment with media", "thanks", true, false},
		{"acknowledgment with punctuation and media", "Thanks!", true, false},
		{"acknowledgment prefix with media", "ok here it is", true, false},
		{"acknowledgment without media still replies", "thanks", false, true},
		{"long message with media", "I attached the statement but I am missing the January pages, is that a problem?", true, true},
		{"here you go with media", "Here you go", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldAutoReply(tt.body, tt.hasMedia))
		})
	}
}

func TestNormalizeBody(t *testing.T) {
	assert.Equal(t, "thanks", normalizeBody("  Thanks!  "))
	assert.Equal(t, "here you go", normalizeBody("Here   You  Go."))
	assert.Equal(t, "", normalizeBody("...!"))
}
