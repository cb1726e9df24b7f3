package scraper

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
)

func TestIsTrackerHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"doubleclick.net", true},
		{"pagead2.googlesyndication.com", true},
		{"WWW.Google-Analytics.com.", true},
		{"www.startupsg.gov.sg", false},
		{"notdoubleclick.net", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, isTrackerHost(tt.host))
		})
	}
}

func TestRequestFilter(t *testing.T) {
	f := newRequestFilter([]string{"Image", "Font", "Bogus"}, true)

	assert.True(t, f.blocks(proto.NetworkResourceTypeImage, "https://example.test/a.png"))
	assert.True(t, f.blocks(proto.NetworkResourceTypeFont, "https://example.test/a.woff"))
	assert.True(t, f.blocks(proto.NetworkResourceTypeScript, "https://www.googletagmanager.com/gtm.js"))
	assert.False(t, f.blocks(proto.NetworkResourceTypeDocument, "https://example.test/profiles/1"))
	assert.False(t, f.blocks(proto.NetworkResourceTypeXHR, "https://api.example.test/startups?page=2"))
}

func TestRequestFilter_Empty(t *testing.T) {
	assert.True(t, newRequestFilter(nil, false).empty())
	assert.True(t, newRequestFilter([]string{"Bogus"}, false).empty())
	assert.False(t, newRequestFilter(nil, true).empty())

	f := newRequestFilter(nil, false)
	assert.False(t, f.blocks(proto.NetworkResourceTypeImage, "https://doubleclick.net/x"))
}
