package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// ComputeSignature implements Twilio's request-signing scheme: the full
// callback URL concatenated with each POST parameter name and value in
// lexicographic parameter order, HMAC-SHA1 signed with the auth token,
// base64 encoded.
func ComputeSignature(authToken, callbackURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(callbackURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks an inbound X-Twilio-Signature header against the
// configured auth token.
func (c *client) ValidateSignature(callbackURL string, params url.Values, signature string) bool {
	return ValidateSignature(c.cfg.AuthToken, callbackURL, params, signature)
}

func ValidateSignature(authToken, callbackURL string, params url.Values, signature string) bool {
	if strings.TrimSpace(authToken) == "" || strings.TrimSpace(signature) == "" {
		return false
	}
	expected := ComputeSignature(authToken, callbackURL, params)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(signature))) == 1
}
