package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
)

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\s*```$")

// ExtractJSON pulls a JSON object out of model output that may be wrapped in
// Markdown fences or surrounded by prose. It tries, in order: the text as
// is, the body of a fenced block, and the span from the first '{' to the last
// '}'. Failure is reported as *ErrInvalidResponse carrying the original text.
func ExtractJSON(raw []byte) (json.RawMessage, error) {
	text := trimSpace(raw)
	if len(text) == 0 {
		return nil, &ErrInvalidResponse{Content: raw, Err: errors.New("empty response")}
	}
	if json.Valid(text) {
		return json.RawMessage(text), nil
	}

	if m := fencePattern.FindSubmatch(text); m != nil {
		body := trimSpace(m[1])
		if json.Valid(body) {
			return json.RawMessage(body), nil
		}
		text = body
	}

	start := bytes.IndexByte(text, '{')
	end := bytes.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		candidate := text[start : end+1]
		if json.Valid(candidate) {
			return json.RawMessage(candidate), nil
		}
	}

	return nil, &ErrInvalidResponse{Content: raw, Err: errors.New("no JSON object found in response")}
}

func trimSpace(b []byte) []byte {
	return bytes.TrimSpace(b)
}
