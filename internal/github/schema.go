package github

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// releaseSchema covers the fields of the releases API payload the installer
// reads. Anything else in the document is ignored.
const releaseSchema = `{
  "type": "object",
  "required": ["tag_name", "assets"],
  "properties": {
    "tag_name": {"type": "string", "minLength": 1},
    "body": {"type": ["string", "null"]},
    "assets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "browser_download_url"],
        "properties": {
          "name": {"type": "string"},
          "browser_download_url": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce   sync.Once
	schemaLoaded *gojsonschema.Schema
	schemaErr    error
)

type schemaValidationError struct {
	issues []string
}

func (e schemaValidationError) Error() string {
	if len(e.issues) == 0 {
		return "release payload failed schema validation"
	}
	return "release payload failed schema validation: " + strings.Join(e.issues, "; ")
}

func validateRelease(raw []byte) error {
	schemaOnce.Do(func() {
		schemaLoaded, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(releaseSchema))
	})
	if schemaErr != nil {
		return fmt.Errorf("github: load release schema: %w", schemaErr)
	}

	result, err := schemaLoaded.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("github: decode release payload: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return schemaValidationError{issues: issues}
}
