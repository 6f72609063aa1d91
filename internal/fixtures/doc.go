// Package fixtures loads content records from Markdown documents with YAML
// front matter. It seeds record stores for the CLI and for tests.
package fixtures
