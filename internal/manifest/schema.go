package manifest

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

var documents = map[string]any{
	"skeleton": SkeletonDoc{},
	"manifest": ClipManifest{},
}

// SchemaNames lists the documents Schema knows.
func SchemaNames() []string {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Schema returns the JSON Schema of the named document as a generic map.
func Schema(name string) (map[string]any, error) {
	doc, ok := documents[name]
	if !ok {
		return nil, fmt.Errorf("unknown document %q (known: %v)", name, SchemaNames())
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	return schemaToMap(reflector.Reflect(doc))
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
