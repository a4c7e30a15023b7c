package llmgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIgnoresWhitespaceAndCase(t *testing.T) {
	a := Fingerprint(Request{Model: "Gemini-Flash", Prompt: "  hello   world  "})
	b := Fingerprint(Request{Model: "gemini-flash", Prompt: "hello world"})
	assert.Equal(t, a, b)
}

func TestFingerprintIgnoresParamOrder(t *testing.T) {
	a := Fingerprint(Request{Model: "m", Prompt: "p", Params: map[string]string{"temperature": "0.2", "top_p": "0.9"}})
	b := Fingerprint(Request{Model: "m", Prompt: "p", Params: map[string]string{"top_p": "0.9", "temperature": "0.2"}})
	assert.Equal(t, a, b)
}

func TestFingerprintDiffersOnContent(t *testing.T) {
	a := Fingerprint(Request{Model: "m", Prompt: "p1"})
	b := Fingerprint(Request{Model: "m", Prompt: "p2"})
	assert.NotEqual(t, a, b)
}
