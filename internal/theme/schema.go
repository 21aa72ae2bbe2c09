package theme

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema document describing Config, served to the
// admin editor so it can validate drafts client-side.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true, RequiredFromJSONSchemaTags: true}
	s := r.Reflect(&Config{})
	s.Title = "showroom theme config"
	return json.MarshalIndent(s, "", "  ")
}
