package domain

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_TruncatesPayloadByRunes(t *testing.T) {
	e := &FetchError{
		Venue:      VenueFutuur,
		Op:         "GET markets/1/",
		StatusCode: 502,
		Payload:    strings.Repeat("é", 300),
		Err:        errors.New("exhausted 3 retries"),
	}

	msg := e.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.Contains(t, msg, strings.Repeat("é", 200)+"...")
	assert.NotContains(t, msg, strings.Repeat("é", 201))
}

func TestFetchError_ShortPayloadUntouched(t *testing.T) {
	e := &FetchError{Venue: VenueManifold, Op: "GET market", Payload: `{"detail":"ñ"}`}
	assert.Equal(t, `manifold: GET market: {"detail":"ñ"}`, e.Error())
}
