package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIFS embed.FS

var (
	openAPIOnce sync.Once
	openAPIJSON []byte
	openAPIErr  error
)

// getOpenAPIJSON returns the API description as JSON. The embedded YAML is
// converted once.
func getOpenAPIJSON() ([]byte, error) {
	openAPIOnce.Do(func() {
		openAPIJSON, openAPIErr = loadOpenAPI()
	})
	return openAPIJSON, openAPIErr
}

func loadOpenAPI() ([]byte, error) {
	data, err := openAPIFS.ReadFile("openapi.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading openapi.yaml: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing openapi.yaml: %w", err)
	}
	return json.MarshalIndent(stringKeys(doc), "", "  ")
}

// stringKeys rewrites YAML mappings into maps encoding/json accepts.
// Non-string keys (status codes such as 200) are formatted.
func stringKeys(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = stringKeys(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []interface{}:
		for i := range v {
			v[i] = stringKeys(v[i])
		}
		return v
	default:
		return v
	}
}
