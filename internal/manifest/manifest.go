// Package manifest loads the optional per-project manifest, project.hcl,
// which lets a project override the interpreter, layout location, and
// environment passed to workflow runs. Attribute values are HCL
// expressions evaluated against the project, so paths can be written as
// "${root}/.venv/bin/python".
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/pyworks/internal/ctxlog"
)

// Filename is the manifest file name looked up under the project root.
const Filename = "project.hcl"

// DefaultLayoutFile is the layout file used when the manifest does not
// override it.
const DefaultLayoutFile = ".layout.json"

// Manifest holds the resolved per-project settings.
type Manifest struct {
	// Name is the project's display name; defaults to the root directory name.
	Name string
	// Interpreter is an explicit interpreter path, or empty to let the
	// caller locate one.
	Interpreter string
	// LayoutPath is the absolute path of the layout file.
	LayoutPath string
	// Env is extra environment for workflow runs.
	Env map[string]string
}

type projectBlock struct {
	Name        *string        `hcl:"name,optional"`
	Interpreter *string        `hcl:"interpreter,optional"`
	Layout      *string        `hcl:"layout,optional"`
	Env         hcl.Expression `hcl:"env,optional"`
}

type fileContent struct {
	Project *projectBlock `hcl:"project,block"`
}

// Load reads <root>/project.hcl. A missing manifest is not an error: the
// returned Manifest then carries the defaults.
func Load(ctx context.Context, root string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)

	m := &Manifest{
		Name:       filepath.Base(root),
		LayoutPath: filepath.Join(root, DefaultLayoutFile),
	}

	path := filepath.Join(root, Filename)
	if _, err := os.Stat(path); err != nil {
		logger.Debug("No project manifest found, using defaults.", "path", path)
		return m, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"root": cty.StringVal(filepath.ToSlash(root)),
		},
	}

	var content fileContent
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &content); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, diags)
	}
	if content.Project == nil {
		logger.Debug("Manifest has no project block, using defaults.", "path", path)
		return m, nil
	}

	p := content.Project
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Interpreter != nil {
		m.Interpreter = filepath.FromSlash(*p.Interpreter)
	}
	if p.Layout != nil {
		m.LayoutPath = filepath.FromSlash(*p.Layout)
		if !filepath.IsAbs(m.LayoutPath) {
			m.LayoutPath = filepath.Join(root, m.LayoutPath)
		}
	}

	env, err := decodeEnv(p.Env, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}
	m.Env = env

	logger.Debug("Project manifest loaded.", "name", m.Name, "layout", m.LayoutPath)
	return m, nil
}

// decodeEnv evaluates the env attribute expression and converts it to a
// string map.
func decodeEnv(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}

	converted, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("env must be a map of strings: %w", err)
	}

	env := make(map[string]string)
	for it := converted.ElementIterator(); it.Next(); {
		k, v := it.Element()
		env[k.AsString()] = v.AsString()
	}
	return env, nil
}
