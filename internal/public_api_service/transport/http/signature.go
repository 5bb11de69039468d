package http

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"sort"
)

// computeWebhookSignature implements the transport's request signing scheme:
// HMAC-SHA1 over the full callback URL concatenated with every POST
// parameter name and value in lexicographic order, base64-encoded.
func computeWebhookSignature(authToken, callbackURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := callbackURL
	for _, k := range keys {
		// The signing scheme uses only the first value of each parameter.
		payload += k + form.Get(k)
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// validWebhookSignature compares the provider-sent signature in constant
// time.
func validWebhookSignature(authToken, callbackURL string, form url.Values, got string) bool {
	want := computeWebhookSignature(authToken, callbackURL, form)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
