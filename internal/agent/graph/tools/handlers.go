package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	logx "github.com/jan-sahayak/server/pkg/logger"
)

// unknownTool answers hallucinated or malformed tool calls (e.g. an empty
// name) with a compact result the model can proceed from.
func unknownTool(ctx context.Context, name, input string) (string, error) {
	logx.Warn().
		Str("tool_name", name).
		Str("arguments", input).
		Msg("Unknown or invalid tool call; returning fallback result")
	return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
}

// sanitizeArguments is a best-effort cleanup of model-produced arguments. It
// never fails; input that is not a JSON object passes through unchanged.
func sanitizeArguments(ctx context.Context, name, arguments string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments, nil
	}

	switch name {
	case ToolRetrievePolicy:
		coerceString(m, "query")
	case ToolCheckEligibilityRules:
		coerceString(m, "scheme_name")
		coerceString(m, "location")
		coerceNumber(m, "age", 0, 120)
		coerceNumber(m, "income", 0, 1e8)
	case ToolFindBenefitsDatabase:
		coerceString(m, "profile_summary")
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}

// coerceString trims string values and stringifies anything else. Nulls are
// dropped.
func coerceString(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch vv := v.(type) {
	case string:
		m[key] = strings.TrimSpace(vv)
	case nil:
		delete(m, key)
	default:
		m[key] = strings.TrimSpace(fmt.Sprint(v))
	}
}

// coerceNumber turns "50,000" into 50000 and drops values outside [lo, hi] or
// that do not parse.
func coerceNumber(m map[string]any, key string, lo, hi float64) {
	v, ok := m[key]
	if !ok {
		return
	}
	var n float64
	switch vv := v.(type) {
	case float64:
		n = vv
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(vv), ",", ""), 64)
		if err != nil {
			delete(m, key)
			return
		}
		n = parsed
	default:
		delete(m, key)
		return
	}
	if n < lo || n > hi {
		delete(m, key)
		return
	}
	m[key] = n
}
