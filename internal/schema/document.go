package schema

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/goliatone/go-cms-replace/internal/validation"
)

// ErrDocumentInvalid is returned when a bundle declaration does not match
// the bundle document schema. validation.Issues lists the offending paths.
var ErrDocumentInvalid = errors.New("schema: bundle document invalid")

//go:embed bundles.schema.json
var bundlesSchema []byte

var documentValidator = validation.MustCompile("bundles.schema.json", bundlesSchema)

// Document is the layout accepted by LoadYAML and RegisterAll.
type Document struct {
	Bundles []content.BundleSchema `yaml:"bundles" json:"bundles"`
}

// ValidateDocument checks the shape of bundle declarations before they are
// normalised.
func ValidateDocument(doc Document) error {
	if err := documentValidator.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrDocumentInvalid, err)
	}
	return nil
}
