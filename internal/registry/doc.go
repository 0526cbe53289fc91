// Package registry maintains the in-memory catalog of discovered workflow
// nodes, keyed by fully-qualified node name.
//
// The catalog is rebuilt wholesale by Discover and never updated
// incrementally. The registry is exclusively owned by whichever component
// invokes discovery; it is not safe for concurrent mutation.
package registry
