package futuur

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HMACSigner signs Futuur requests: the query params plus Key and Timestamp,
// sorted by name and url-encoded, are signed with HMAC-SHA512 using the private key.
// The signature travels in the Key, Timestamp and HMAC headers.
type HMACSigner struct {
	publicKey  string
	privateKey string
	now        func() time.Time
}

// NewHMACSigner returns a signer using the wall clock.
func NewHMACSigner(publicKey, privateKey string) *HMACSigner {
	return &HMACSigner{publicKey: publicKey, privateKey: privateKey, now: time.Now}
}

// Sign implements venuehttp.Signer.
func (s *HMACSigner) Sign(h http.Header, params url.Values) error {
	return s.SignAt(h, params, s.now())
}

// SignAt signs with an explicit timestamp so tests are deterministic.
func (s *HMACSigner) SignAt(h http.Header, params url.Values, at time.Time) error {
	if s.publicKey == "" || s.privateKey == "" {
		return errors.New("futuur: missing API credentials")
	}
	ts := strconv.FormatInt(at.Unix(), 10)

	h.Set("Key", s.publicKey)
	h.Set("Timestamp", ts)
	h.Set("HMAC", s.Signature(params, ts))
	return nil
}

// Signature computes the hex HMAC-SHA512 over the sorted, encoded params.
func (s *HMACSigner) Signature(params url.Values, timestamp string) string {
	signed := make(url.Values, len(params)+2)
	for k, v := range params {
		signed[k] = v
	}
	signed.Set("Key", s.publicKey)
	signed.Set("Timestamp", timestamp)

	mac := hmac.New(sha512.New, []byte(s.privateKey))
	mac.Write([]byte(signed.Encode())) // Encode sorts by key
	return hex.EncodeToString(mac.Sum(nil))
}

// String never prints the private key.
func (s *HMACSigner) String() string {
	return "futuur.HMACSigner{key=" + s.publicKey + ", secret=[REDACTED]}"
}
