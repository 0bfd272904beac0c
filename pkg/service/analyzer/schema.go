package analyzer

import "github.com/xeipuuv/gojsonschema"

// JSON contracts of the analysis service, version 1
const (
	explainSchemaV1 = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$id": "claimdesk/analyzer/explain/v1",
  "type": "object",
  "required": ["description", "ai_generated_likelihood"],
  "properties": {
    "description": { "type": "string" },
    "ai_generated_likelihood": { "type": "number", "minimum": 0, "maximum": 1 },
    "reasoning": { "type": "string" }
  }
}`

	damageSchemaV1 = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$id": "claimdesk/analyzer/check_damage/v1",
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["part"],
        "properties": {
          "part": { "type": "string", "minLength": 1 },
          "severity": { "type": "string" },
          "cost": { "type": ["string", "number"] }
        }
      }
    },
    "total_cost": { "type": ["string", "number"] }
  }
}`

	componentsSchemaV1 = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$id": "claimdesk/analyzer/damage_components/v1",
  "type": "object",
  "required": ["components"],
  "properties": {
    "components": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": { "type": "string", "minLength": 1 },
          "damaged": { "type": "boolean" },
          "severity": { "type": "string" },
          "confidence": { "type": "number", "minimum": 0, "maximum": 1 }
        }
      }
    }
  }
}`
)

var (
	explainSchema    = mustSchema(explainSchemaV1)
	damageSchema     = mustSchema(damageSchemaV1)
	componentsSchema = mustSchema(componentsSchemaV1)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic("invalid analyzer schema: " + err.Error())
	}
	return s
}

// validate reports whether doc satisfies schema. The string describes the first
// violation when it does not.
func validate(schema *gojsonschema.Schema, doc string) (bool, string) {
	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return false, err.Error()
	}
	if result.Valid() {
		return true, ""
	}
	if errs := result.Errors(); len(errs) > 0 {
		return false, errs[0].String()
	}
	return false, "schema validation failed"
}
