package api

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"caucus/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed openapi/openapi.yaml
var openAPISpec []byte

// openAPIDocument is the embedded YAML plus its JSON rendering, each with a
// strong ETag. Built once on first request.
type openAPIDocument struct {
	yamlETag string
	json     []byte
	jsonETag string
	err      error
}

var (
	openAPIOnce sync.Once
	openAPIDoc  openAPIDocument
)

func loadOpenAPIDocument() *openAPIDocument {
	openAPIOnce.Do(func() {
		openAPIDoc.yamlETag = strongETag(openAPISpec)

		var doc interface{}
		if err := yaml.Unmarshal(openAPISpec, &doc); err != nil {
			openAPIDoc.err = fmt.Errorf("parse openapi document: %w", err)
			return
		}
		data, err := json.MarshalIndent(jsonCompatible(doc), "", "  ")
		if err != nil {
			openAPIDoc.err = fmt.Errorf("render openapi document as json: %w", err)
			return
		}
		openAPIDoc.json = data
		openAPIDoc.jsonETag = strongETag(data)
	})
	return &openAPIDoc
}

func strongETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// jsonCompatible rewrites any map with non-string keys, which yaml.v3 can
// produce and encoding/json rejects.
func jsonCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = jsonCompatible(val)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return out
	case []interface{}:
		for i, val := range t {
			t[i] = jsonCompatible(val)
		}
		return t
	default:
		return v
	}
}

// writeDocument serves a static document, answering 304 when the client
// already holds the current version.
func writeDocument(w http.ResponseWriter, r *http.Request, contentType, etag string, body []byte) {
	h := w.Header()
	h.Set("Cache-Control", "public, max-age=3600")
	h.Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ServeOpenAPISpec serves the OpenAPI 3.0.3 description of the routes in
// SetupRoutes as YAML.
// GET /api/openapi.yaml
func (h *Handlers) ServeOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	doc := loadOpenAPIDocument()
	writeDocument(w, r, "application/yaml", doc.yamlETag, openAPISpec)
}

// ServeOpenAPIJSON serves the same document converted to JSON.
// GET /api/openapi.json
func (h *Handlers) ServeOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc := loadOpenAPIDocument()
	if doc.err != nil {
		slog.Error("OpenAPI document unavailable", "error", doc.err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "OpenAPI document unavailable")
		return
	}
	writeDocument(w, r, "application/json", doc.jsonETag, doc.json)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Caucus Site API - Documentation</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/api/openapi.json',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      deepLinking: true,
      tryItOutEnabled: false,
      withCredentials: true
    });
  </script>
</body>
</html>`

// ServeSwaggerUI serves an interactive Swagger UI that loads the OpenAPI document.
// GET /api/docs
func (h *Handlers) ServeSwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(swaggerUIHTML))
}
