package utils

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// GenerateSchema renders the JSON schema for T, used to pin a
// reasoning-service reply to a Go type via structured output.
// Panics on failure: schemas are built from package-level types at
// init, so an error here is a programming mistake, not runtime input.
func GenerateSchema[T any]() json.RawMessage {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("generating schema: %v", err))
	}
	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshaling schema: %v", err))
	}
	return b
}
