package parsers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	errx "github.com/jan-sahayak/server/internal/core/error"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 256 * 1024
	maxErrSnippet = 200
)

// ErrNoJSON is returned when the model output contains no JSON object.
var ErrNoJSON = errors.New("no json object in model output")

// Validator is implemented by decode targets that check and normalize themselves.
type Validator interface {
	Validate() error
}

// ExtractJSON returns the outermost JSON object embedded in content. It
// tolerates markdown code fences and prose around the object.
func ExtractJSON(content string) (string, error) {
	s := strings.TrimSpace(content)
	// only a fence that opens before the object wraps it
	brace := strings.IndexByte(s, '{')
	if i := strings.Index(s, "```"); i >= 0 && (brace < 0 || i < brace) {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoJSON
	}
	depth, inString, escaped := 0, false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated json object: %s", safeSnippet(s[start:]))
}

// DecodeJSON parses model output into out and runs its Validator, if any.
// Unknown fields are ignored; a failed validation is a decode failure.
func DecodeJSON(content string, out any) (err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "json_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("json parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
		}
	}()

	if len(content) > maxContentLen {
		return fmt.Errorf("model output too large: %d bytes", len(content))
	}
	if !utf8.ValidString(content) {
		return errors.New("model output is not valid utf8")
	}

	raw, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %T: %w (%s)", out, err, safeSnippet(raw))
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate %T: %w", out, err)
		}
	}
	return nil
}

func safeSnippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	cut := maxErrSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
