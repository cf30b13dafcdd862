package service

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// The stylist appends a machine-readable "[PROMPT: ...]" segment to its
// replies once it has converged on a concrete design description. Only
// the first occurrence counts.
var promptTagPattern = regexp.MustCompile(`\[PROMPT: (.*?)\]`)

var (
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	jsonArrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
)

// extractTaggedPrompt pulls the first tagged prompt out of a stylist
// reply and returns it alongside the display text with the tag removed
// and trimmed. An absent tag yields an empty prompt, not an error.
func extractTaggedPrompt(text string) (prompt, display string) {
	loc := promptTagPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", strings.TrimSpace(text)
	}

	prompt = text[loc[2]:loc[3]]
	display = strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return prompt, display
}

// extractJSONObject returns the first brace-delimited substring of the
// raw model output. The model may wrap its JSON in prose.
func extractJSONObject(text string) (string, bool) {
	m := jsonObjectPattern.FindString(text)
	return m, m != ""
}

// extractJSONArray returns the first bracket-delimited substring of the
// raw model output.
func extractJSONArray(text string) (string, bool) {
	m := jsonArrayPattern.FindString(text)
	return m, m != ""
}

// DecodeDataURI splits a "data:<mime>;base64,<payload>" URI into raw
// bytes and MIME type.
func DecodeDataURI(uri string) ([]byte, string, error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found || !strings.HasPrefix(header, "data:") {
		return nil, "", fmt.Errorf("not a data URI")
	}

	meta := strings.TrimPrefix(header, "data:")
	meta, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data URI is not base64-encoded")
	}
	if meta == "" {
		meta = "application/octet-stream"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data URI payload: %w", err)
	}

	return data, meta, nil
}

// EncodeDataURI wraps raw bytes as a displayable data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
