package invoice

import "strings"

// Route identifies the extraction strategy for a declared content type.
type Route int

const (
	// RouteUnsupported means the attachment is skipped without download.
	RouteUnsupported Route = iota
	// RouteImage treats the content as a single image.
	RouteImage
	// RouteDocument rasterizes each page of a paginated document.
	RouteDocument
	// RouteMailContainer parses the content as a nested mail message.
	RouteMailContainer
)

func (r Route) String() string {
	switch r {
	case RouteImage:
		return "image"
	case RouteDocument:
		return "document"
	case RouteMailContainer:
		return "mail-container"
	default:
		return "unsupported"
	}
}

// pipelineForType is the canonical content-type-to-pipeline table.
var pipelineForType = map[string]Route{
	"application/pdf": RouteDocument,
	"image/jpeg":      RouteImage,
	"image/png":       RouteImage,
	"message/rfc822":  RouteMailContainer,
}

// Router selects extraction routes from declared MIME types. The routing
// table is built once from the allow-list and never mutated.
type Router struct {
	routes map[string]Route
}

// NewRouter builds a router for the given MIME type allow-list. Allow-listed
// types without a known pipeline fall back to the image route when they carry
// an image/ prefix; otherwise they are left unsupported.
func NewRouter(allowedTypes []string) *Router {
	routes := make(map[string]Route, len(allowedTypes))
	for _, mt := range allowedTypes {
		if route, ok := pipelineForType[mt]; ok {
			routes[mt] = route
		} else if strings.HasPrefix(mt, "image/") {
			routes[mt] = RouteImage
		}
	}
	return &Router{routes: routes}
}

// Route returns the extraction route for a declared MIME type. Types outside
// the allow-list route to RouteUnsupported.
func (r *Router) Route(mimeType string) Route {
	return r.routes[mimeType]
}
