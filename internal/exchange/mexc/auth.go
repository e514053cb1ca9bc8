package mexc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// SignParams computes the request signature: HMAC-SHA256 over the
// key-sorted query string, lowercase hex. Deterministic for identical input.
func SignParams(secret string, params url.Values) string {
	// url.Values.Encode sorts by key
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(params.Encode()))
	return strings.ToLower(hex.EncodeToString(mac.Sum(nil)))
}
