package gateway

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiYAML []byte

// OpenAPIYAML serves the embedded API document.
func OpenAPIYAML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapiYAML)
}

// OpenAPIJSON serves the embedded API document converted to JSON.
func OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	doc, err := openapiDocument()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorDetails("invalid openapi document", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func openapiDocument() (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(openapiYAML, &doc); err != nil {
		return nil, fmt.Errorf("gateway: parse openapi: %w", err)
	}
	// Round trip through encoding/json to reject values JSON cannot carry.
	if _, err := json.Marshal(doc); err != nil {
		return nil, fmt.Errorf("gateway: encode openapi: %w", err)
	}
	return doc, nil
}
