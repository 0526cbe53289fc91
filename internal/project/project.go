// Package project scaffolds and validates workflow project directories.
// A valid project has a nodes/ directory of node source files and a
// .layout.json canvas description; requirements.txt and project.hcl are
// optional companions.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/pyworks/internal/manifest"
	"github.com/vk/pyworks/internal/pyenv"
	"github.com/vk/pyworks/internal/registry"
)

// exampleNodes seeds a new project's first node category. It includes a
// local node decorator shim so the file is importable standalone.
const exampleNodes = `"""
Example node category.

Add functions tagged with @node here. Each node is called with the outputs
of its data parents and a state mapping shared across the whole run, and
returns a mapping of named outputs for its children.
"""

def node(func):
    """Marks a function as a workflow node."""
    func._is_workflow_node = True
    return func


@node
def get_data(inputs, global_state):
    """Produces initial data for downstream nodes."""
    numbers = [1, 2, 3, 4, 5]
    print(f"Generated data: {numbers}")
    return {"numbers": numbers}


@node
def process_data(inputs, global_state):
    """Doubles whatever get_data produced."""
    data = inputs.get("example.get_data", {}).get("numbers", [])
    result = [x * 2 for x in data]
    print(f"Processed {len(data)} numbers: {result}")
    return {"processed": result}
`

const exampleRequirements = "# Add your project dependencies here\n# Example:\n# numpy>=1.21.0\n# pandas>=1.3.0\n"

const emptyLayout = "{\n  \"version\": \"1.0\",\n  \"nodes\": {},\n  \"connections\": []\n}\n"

// Create scaffolds a new project directory and returns its path. It
// refuses to overwrite an existing path.
func Create(name string, location string) (string, error) {
	root := filepath.Join(location, name)
	if _, err := os.Stat(root); err == nil {
		return "", fmt.Errorf("project already exists at %s", root)
	}

	if err := os.MkdirAll(filepath.Join(root, registry.NodesDir), 0o755); err != nil {
		return "", err
	}

	files := map[string]string{
		filepath.Join(registry.NodesDir, "example.py"): exampleNodes,
		pyenv.RequirementsFile:                         exampleRequirements,
		manifest.DefaultLayoutFile:                     emptyLayout,
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644); err != nil {
			return "", err
		}
	}

	return root, nil
}

// Validate reports whether path holds a structurally valid project.
func Validate(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}

	nodesInfo, err := os.Stat(filepath.Join(path, registry.NodesDir))
	if err != nil || !nodesInfo.IsDir() {
		return false
	}

	data, err := os.ReadFile(filepath.Join(path, manifest.DefaultLayoutFile))
	if err != nil {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, hasNodes := probe["nodes"]
	_, hasConnections := probe["connections"]
	return hasNodes && hasConnections
}

// Name returns a project's display name: its directory base name.
func Name(path string) string {
	return filepath.Base(path)
}
