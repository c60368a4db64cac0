// Package zerocore implements the Zero Install execution core: given a
// selections document and a content-addressed implementation store, it
// walks the dependency graph, applies bindings, expands runners into a
// command line, and launches the resulting process.
package zerocore

// InterfaceURI identifies a feed: either an absolute URI or a local path.
// It is treated as an opaque, interned value — two selections referring to
// the same interface must use byte-identical strings.
type InterfaceURI string
