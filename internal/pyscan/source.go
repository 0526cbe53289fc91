package pyscan

import (
	"fmt"
	"os"
	"strings"
)

// FunctionSource returns the file's top-level import statements followed by
// the named function's source block. Editor frontends use this to show a
// node's code with enough context to be runnable on its own.
func FunctionSource(path string, functionName string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	s := &scanner{file: path, lines: splitLines(string(data))}
	funcs, err := s.scan()
	if err != nil {
		return "", err
	}

	var target *function
	for i := range funcs {
		if funcs[i].name == functionName {
			target = &funcs[i]
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("function %q not found in %s", functionName, path)
	}

	var imports []string
	for _, line := range s.lines {
		if !isTopLevel(line) {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ") {
			imports = append(imports, trimmed)
		}
	}

	body := s.lines[target.startLine-1 : target.endLine]
	if len(imports) == 0 {
		return strings.Join(body, "\n"), nil
	}
	return strings.Join(imports, "\n") + "\n\n" + strings.Join(body, "\n"), nil
}
