package llm

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/eino-contrib/jsonschema"
)

var schemaCache sync.Map

// SchemaInstruction renders the reply-format instruction for decode target v.
func SchemaInstruction(v any) (string, error) {
	t := reflect.TypeOf(v)
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(string), nil
	}

	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	b, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return "", fmt.Errorf("render schema for %T: %w", v, err)
	}
	instruction := "Reply with exactly one JSON object and nothing else. " +
		"It must conform to this JSON Schema:\n" + string(b)
	schemaCache.Store(t, instruction)
	return instruction, nil
}
