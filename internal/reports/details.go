package reports

import (
	"fmt"

	"github.com/goliatone/go-cms-replace/internal/validation"
)

const detailsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "mode", "records"],
  "properties": {
    "schema_version": {"const": 2},
    "mode": {"enum": ["all", "selected", "undo"]},
    "kinds": {"type": "array", "items": {"type": "string"}},
    "bundles": {"type": "array", "items": {"type": "string"}},
    "undone_from": {"type": "string", "pattern": "^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$"},
    "records": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["record_id", "kind", "langcode", "count", "fields"],
        "properties": {
          "record_id": {"type": "string", "minLength": 36},
          "kind": {"type": "string", "minLength": 1},
          "title": {"type": "string"},
          "bundle": {"type": "string"},
          "langcode": {"type": "string"},
          "count": {"type": "integer", "minimum": 1},
          "fields": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
        }
      }
    },
    "failures": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["stage", "message"],
        "properties": {
          "stage": {"type": "string"},
          "message": {"type": "string"}
        }
      }
    }
  }
}`

var detailsValidator = validation.MustCompile("replace_report_details.json", []byte(detailsSchema))

// ModeUndo marks details of undo reports.
const ModeUndo = "undo"

// ValidateDetails checks details against the versioned schema.
func ValidateDetails(details Details) error {
	if err := detailsValidator.Validate(details); err != nil {
		return fmt.Errorf("%w: %v", ErrDetailsInvalid, err)
	}
	return nil
}
