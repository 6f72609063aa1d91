package validation_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-cms-replace/internal/validation"
)

const personSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "age": {"type": "integer", "minimum": 0}
  }
}`

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestValidatorAcceptsValidStructs(t *testing.T) {
	v := validation.MustCompile("person.json", []byte(personSchema))
	if err := v.Validate(person{Name: "Ana", Age: 3}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestValidatorReportsIssues(t *testing.T) {
	v := validation.MustCompile("person.json", []byte(personSchema))
	err := v.Validate(person{Name: "", Age: -1})
	if !errors.Is(err, validation.ErrSchemaValidation) {
		t.Fatalf("expected schema validation error, got %v", err)
	}
	issues := validation.Issues(err)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", issues)
	}
}

func TestCompileRejectsBrokenSchema(t *testing.T) {
	if _, err := validation.Compile("broken.json", []byte(`{"type": 12}`)); !errors.Is(err, validation.ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
}
