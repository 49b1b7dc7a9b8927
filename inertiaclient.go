// Package inertiaclient implements the client side of the Inertia.js
// protocol: it issues visits against a server answering with full-page JSON,
// reconciles each response with the page currently shown, and records
// accepted pages in session history.
//
// Every response is processed on a single ordered queue, so pages are
// committed strictly in the order their processing was enqueued. Responses
// to asynchronous visits that no longer match what the user is looking at
// are dropped instead of clobbering a newer page.
//
// The entry point is Client, created with New. Its Router dispatches visits
// and the Store exposes the current Page.
//
// For detailed protocol documentation, visit https://inertiajs.com/the-protocol
package inertiaclient

import "go.inout.gg/foundations/debug"

//nolint:gochecknoglobals
var d = debug.Debuglog("inertiaclient")
