package fixtures

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-cms-replace/content"
)

var (
	ErrFieldValueInvalid = errors.New("fixtures: unsupported field value")
	ErrHeaderMissing     = errors.New("fixtures: front matter missing")
)

// yamlFormat decodes front matter with yaml.v3 so nested values keep string keys.
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// Header is the front matter of one fixture document.
type Header struct {
	ID       string                 `yaml:"id"`
	Key      string                 `yaml:"key"`
	Kind     string                 `yaml:"kind"`
	Bundle   string                 `yaml:"bundle"`
	Langcode string                 `yaml:"langcode"`
	Default  bool                   `yaml:"default"`
	Title    string                 `yaml:"title"`
	Status   string                 `yaml:"status"`
	Updated  time.Time              `yaml:"updated"`
	Format   string                 `yaml:"format"`
	Fields   map[string]FieldValues `yaml:"fields"`
	Refs     map[string][]string    `yaml:"refs"`
}

// FieldValues decodes a scalar, a list of scalars, or a list of
// {text, format} mappings. Scalars are plain text, mappings rich text.
type FieldValues []content.FieldValue

func (v *FieldValues) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = FieldValues{content.PlainText(node.Value)}
		return nil
	case yaml.MappingNode:
		value, err := decodeRich(node)
		if err != nil {
			return err
		}
		*v = FieldValues{value}
		return nil
	case yaml.SequenceNode:
		out := make(FieldValues, 0, len(node.Content))
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, content.PlainText(item.Value))
			case yaml.MappingNode:
				value, err := decodeRich(item)
				if err != nil {
					return err
				}
				out = append(out, value)
			default:
				return fmt.Errorf("%w at line %d", ErrFieldValueInvalid, item.Line)
			}
		}
		*v = out
		return nil
	}
	return fmt.Errorf("%w at line %d", ErrFieldValueInvalid, node.Line)
}

func decodeRich(node *yaml.Node) (content.FieldValue, error) {
	var raw struct {
		Text   string `yaml:"text"`
		Format string `yaml:"format"`
	}
	if err := node.Decode(&raw); err != nil {
		return content.FieldValue{}, fmt.Errorf("%w: %v", ErrFieldValueInvalid, err)
	}
	return content.RichText(raw.Text, raw.Format), nil
}

// ParseDocument splits source into its header and Markdown body.
func ParseDocument(source []byte) (Header, []byte, error) {
	var header Header
	body, err := frontmatter.MustParse(bytes.NewReader(source), &header, yamlFormat)
	if errors.Is(err, frontmatter.ErrNotFound) {
		return Header{}, nil, ErrHeaderMissing
	}
	if err != nil {
		return Header{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	header.Kind = strings.TrimSpace(header.Kind)
	header.Bundle = strings.TrimSpace(header.Bundle)
	return header, bytes.TrimSpace(body), nil
}
