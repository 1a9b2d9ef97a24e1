package decision

import (
	_ "embed"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/action.schema.json
var actionSchemaJSON string

var (
	actionSchemaOnce sync.Once
	actionSchema     *jsonschema.Schema
	actionSchemaErr  error
)

// ActionSchema returns the compiled JSON schema for structured actions.
func ActionSchema() (*jsonschema.Schema, error) {
	actionSchemaOnce.Do(func() {
		actionSchema, actionSchemaErr = jsonschema.CompileString("action.schema.json", actionSchemaJSON)
	})
	return actionSchema, actionSchemaErr
}
