package tenant

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateConfigAgainstSchema validates a tenant-supplied AgentConfig.Config
// payload (or a bypass rule payload) against a JSON Schema before it enters
// the registry. Grounded on the teacher's
// registry/service.go:validatePayloadJSONAgainstSchema, which uses the same
// library the same way (compile then validate, resources unmarshaled as
// bare `any`).
func ValidateConfigAgainstSchema(payload, schema []byte) error {
	if len(schema) == 0 {
		return nil
	}

	var schemaDoc any
	if err := json.Unmarshal(schema, &schemaDoc); err != nil {
		return fmt.Errorf("tenant: unmarshal schema: %w", err)
	}
	var payloadDoc any
	if err := json.Unmarshal(payload, &payloadDoc); err != nil {
		return fmt.Errorf("tenant: unmarshal payload: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("agent-config.json", schemaDoc); err != nil {
		return fmt.Errorf("tenant: add schema resource: %w", err)
	}
	compiled, err := c.Compile("agent-config.json")
	if err != nil {
		return fmt.Errorf("tenant: compile schema: %w", err)
	}
	if err := compiled.Validate(payloadDoc); err != nil {
		return fmt.Errorf("tenant: config failed schema validation: %w", err)
	}
	return nil
}
