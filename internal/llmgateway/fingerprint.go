package llmgateway

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Request is the canonical shape of a gateway call (spec.md §4.D: "1.
// Canonicalize the request (model name, normalized prompt, sorted
// params)").
type Request struct {
	Model  string
	Prompt string
	Params map[string]string
	TTL    int64 // seconds; 0 means use the gateway default
}

// canonicalize strips incidental whitespace and produces a stable,
// order-independent string encoding of the request so that two
// semantically identical requests fingerprint identically regardless
// of map iteration order or surrounding whitespace.
func canonicalize(r Request) string {
	var b strings.Builder
	b.WriteString("model=")
	b.WriteString(strings.ToLower(strings.TrimSpace(r.Model)))
	b.WriteString("\nprompt=")
	b.WriteString(normalizeWhitespace(r.Prompt))

	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(r.Params[k])
	}
	return b.String()
}

// normalizeWhitespace collapses runs of whitespace and trims the ends so
// that cosmetically different prompts with identical content share a
// fingerprint.
func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Fingerprint computes the SHA-256 hex digest of the canonical request
// form — the cache key of spec.md §4.D/§4.E.
func Fingerprint(r Request) string {
	sum := sha256.Sum256([]byte(canonicalize(r)))
	return hex.EncodeToString(sum[:])
}
