package handler

import (
	"net/http"
	"os"

	httpSwagger "github.com/swaggo/http-swagger"
)

// DocsHandler serves the interactive API documentation: Swagger UI
// rendered over the OpenAPI document that the contract tests validate.
type DocsHandler struct {
	specPath string
}

// NewDocsHandler creates a new DocsHandler. specPath is the on-disk
// location of the OpenAPI document.
func NewDocsHandler(specPath string) *DocsHandler {
	return &DocsHandler{specPath: specPath}
}

// UI returns the Swagger UI handler. Mount it on a wildcard route such
// as /docs/*.
func (h *DocsHandler) UI() http.HandlerFunc {
	return httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.yaml"),
	)
}

// Redirect sends bare /docs requests to the UI index.
func (h *DocsHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
}

// OpenAPISpec handles GET /docs/openapi.yaml.
func (h *DocsHandler) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(h.specPath); err != nil {
		writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "API documentation is not available")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	http.ServeFile(w, r, h.specPath)
}
