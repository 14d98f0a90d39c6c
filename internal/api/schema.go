package api

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const scoreRequestSchema = `{
  "type": "object",
  "required": ["business_type", "latitude", "longitude"],
  "properties": {
    "neighborhood":  {"type": "string", "maxLength": 200},
    "business_type": {"type": "string", "minLength": 1, "maxLength": 100},
    "target_demo":   {"type": "string", "maxLength": 200},
    "latitude":      {"type": "number", "minimum": -90, "maximum": 90},
    "longitude":     {"type": "number", "minimum": -180, "maximum": 180},
    "rent_estimate": {"type": "number", "minimum": 0},
    "radius_meters": {"type": "integer", "minimum": 1, "maximum": 50000}
  }
}`

var scoreRequestLoader = gojsonschema.NewStringLoader(scoreRequestSchema)

// validateScoreRequest checks a raw request body against the score request schema.
func validateScoreRequest(body []byte) error {
	result, err := gojsonschema.Validate(scoreRequestLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("invalid score request: %s", strings.Join(errs, "; "))
	}
	return nil
}
