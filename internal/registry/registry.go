package registry

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/pyworks/internal/ctxlog"
	"github.com/vk/pyworks/internal/fsutil"
	"github.com/vk/pyworks/internal/pyscan"
)

// NodesDir is the directory under a project root that holds node source
// files. Each file's stem becomes the category of the nodes it defines.
const NodesDir = "nodes"

// Registry is the catalog of discovered node metadata.
type Registry struct {
	nodes map[string]pyscan.NodeMetadata
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{nodes: make(map[string]pyscan.NodeMetadata)}
}

// Discover clears the catalog and rebuilds it from every node source file
// under <root>/nodes. Files are scanned in sorted name order; when two files
// define the same fully-qualified name, the later file wins (last-write-wins).
//
// A structurally unparsable file is skipped with a warning so one broken
// category does not hide the rest; the first such error is still returned
// after the scan completes, letting the caller choose to abort instead.
func (r *Registry) Discover(ctx context.Context, root string) error {
	logger := ctxlog.FromContext(ctx)
	r.nodes = make(map[string]pyscan.NodeMetadata)

	nodesPath := filepath.Join(root, NodesDir)
	files, err := fsutil.ListFilesByExtension(nodesPath, ".py")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("No nodes directory found in project.", "path", nodesPath)
			return nil
		}
		return err
	}

	var firstParseErr error
	for _, file := range files {
		category := strings.TrimSuffix(filepath.Base(file), ".py")
		extracted, err := pyscan.ExtractNodes(file, category)
		if err != nil {
			logger.Warn("Skipping unparsable node source file.", "file", file, "error", err)
			if firstParseErr == nil {
				firstParseErr = err
			}
			continue
		}
		for fqnn, meta := range extracted {
			if _, exists := r.nodes[fqnn]; exists {
				logger.Warn("Duplicate node name, later file wins.", "fqnn", fqnn, "file", file)
			}
			r.nodes[fqnn] = meta
		}
	}

	logger.Debug("Node discovery complete.", "node_count", len(r.nodes), "files_scanned", len(files))
	return firstParseErr
}

// Get returns the metadata for a fully-qualified node name.
func (r *Registry) Get(fqnn string) (pyscan.NodeMetadata, bool) {
	meta, ok := r.nodes[fqnn]
	return meta, ok
}

// ByCategory returns the metadata of every node in the given category,
// keyed by fully-qualified name.
func (r *Registry) ByCategory(category string) map[string]pyscan.NodeMetadata {
	result := make(map[string]pyscan.NodeMetadata)
	for fqnn, meta := range r.nodes {
		if meta.Category == category {
			result[fqnn] = meta
		}
	}
	return result
}

// All returns every catalog entry in sorted fully-qualified-name order.
func (r *Registry) All() []pyscan.NodeMetadata {
	names := make([]string, 0, len(r.nodes))
	for fqnn := range r.nodes {
		names = append(names, fqnn)
	}
	sort.Strings(names)

	out := make([]pyscan.NodeMetadata, 0, len(names))
	for _, fqnn := range names {
		out = append(out, r.nodes[fqnn])
	}
	return out
}

// Len returns the number of cataloged nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}
