// Package render converts component trees into HTML strings or streams.
//
// It handles element rendering, text and attribute escaping, void element
// handling, boolean attributes, and handler ID (HID) assignment so the
// thin client can route DOM events back to server-side handlers.
package render
