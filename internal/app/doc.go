// Package app wires the workflow backbone together: it builds the logger,
// loads the project manifest, discovers the node registry, and drives a
// workflow run while relaying its event stream to the user.
package app
