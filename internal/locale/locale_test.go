package locale

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", language.Japanese},
		{"ja-JP,ja;q=0.9", language.Japanese},
		{"en-US,en;q=0.8", language.English},
		{"fr-FR", language.Japanese},
		{"fr;q=0.9,en;q=0.5", language.English},
		{"!!!", language.Japanese},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.header))
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Default, FromContext(ctx))
	assert.False(t, IsEnglish(ctx))

	ctx = WithTag(ctx, language.English)
	assert.Equal(t, language.English, FromContext(ctx))
	assert.True(t, IsEnglish(ctx))
}
