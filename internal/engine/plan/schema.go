package plan

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// planSchema is the contract an LLM-produced plan must meet before any of it
// is used. backup_strategy refers back to the strategy definition.
const planSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["strategies"],
  "additionalProperties": false,
  "properties": {
    "strategies": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"$ref": "#/$defs/strategy"}
    },
    "total_cost_estimate": {"type": "number", "minimum": 0},
    "budget_limit": {"type": "number", "minimum": 0}
  },
  "$defs": {
    "strategy": {
      "type": "object",
      "required": ["provider", "primary_query", "cost_estimate"],
      "additionalProperties": false,
      "properties": {
        "provider": {"type": "string", "minLength": 1},
        "primary_query": {"type": "string"},
        "fallback_queries": {"type": "array", "items": {"type": "string"}},
        "synonyms": {"type": "array", "items": {"type": "string"}},
        "location": {"type": ["string", "null"]},
        "max_age_days": {"type": "integer", "minimum": 1},
        "cost_estimate": {"type": "number", "minimum": 0},
        "priority": {"type": "integer", "minimum": 1},
        "backup_strategy": {
          "oneOf": [{"type": "null"}, {"$ref": "#/$defs/strategy"}]
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("plan.json", strings.NewReader(planSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return c.Compile("plan.json")
})

// ValidatePlanJSON checks raw against the plan schema. Any failure is
// reported as ErrInvalidPlan.
func ValidatePlanJSON(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile plan schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	return nil
}
