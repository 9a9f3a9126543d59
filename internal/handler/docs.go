package handler

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// DocsHandler serves the OpenAPI document of the admin API.
type DocsHandler struct {
	doc *openapi3.T
}

// NewDocsHandler creates a DocsHandler for a pre-generated document.
func NewDocsHandler(doc *openapi3.T) *DocsHandler {
	return &DocsHandler{doc: doc}
}

// ServeDocument returns the document. It is served without authentication.
// GET /api/docs/data, GET /openapi.json
func (h *DocsHandler) ServeDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.doc)
}
