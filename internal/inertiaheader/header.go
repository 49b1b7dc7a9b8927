// Package inertiaheader defines the header names and media types of the
// Inertia.js protocol as seen from the client.
package inertiaheader

// Request headers sent by the client.
const (
	HeaderXInertia                 = "X-Inertia"                   // marks a visit
	HeaderXInertiaVersion          = "X-Inertia-Version"           // asset version of the current page
	HeaderXInertiaPartialComponent = "X-Inertia-Partial-Component" // component a partial reload targets
	HeaderXInertiaPartialData      = "X-Inertia-Partial-Data"      // whitelist, comma separated
	HeaderXInertiaPartialExcept    = "X-Inertia-Partial-Except"    // blacklist, comma separated
	HeaderXInertiaReset            = "X-Inertia-Reset"             // merge props to replace instead
	HeaderXInertiaErrorBag         = "X-Inertia-Error-Bag"         // scopes validation errors
	HeaderXRequestedWith           = "X-Requested-With"
	HeaderPurpose                  = "Purpose" // "prefetch"
	HeaderAccept                   = "Accept"
)

// Response headers read by the client.
const (
	// HeaderXInertiaLocation carries the target of an external redirect
	// together with a 409 status.
	HeaderXInertiaLocation = "X-Inertia-Location"

	HeaderVary        = "Vary"
	HeaderContentType = "Content-Type"
)

const (
	ContentTypeHTML = "text/html"
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"

	AcceptPage        = "text/html, application/xhtml+xml"
	XMLHttpRequest    = "XMLHttpRequest"
	PurposePrefetch   = "prefetch"
	HeaderValueTrue   = "true"
	HeaderListDivider = ","
)
