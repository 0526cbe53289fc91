package pyscan

import (
	"fmt"
	"os"
	"strings"
)

// NodeMetadata describes one discovered workflow node. Instances are created
// here and owned by the registry, which replaces them wholesale on each
// rediscovery.
type NodeMetadata struct {
	// FQNN is the fully-qualified node name, "<category>.<function>". It
	// identifies a node type, not a placed instance.
	FQNN string
	// Category is the grouping label, by convention the source file stem.
	Category string
	// FunctionName is the bare Python function name.
	FunctionName string
	// FilePath is the file the function was discovered in.
	FilePath string
	// Docstring is the function's docstring, cleaned, or empty.
	Docstring string
	// StartLine and EndLine delimit the function body (1-based, inclusive).
	// StartLine is the def line, decorators excluded.
	StartLine int
	EndLine   int
	// Signature is the parameter list as written, e.g. "(inputs, global_state)".
	Signature string
}

// ParseError reports structurally unparsable source. The caller decides
// whether to skip the file or abort discovery.
type ParseError struct {
	File   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s:%d: %s", e.File, e.Line, e.Reason)
}

// decorator is one pending top-level decorator line.
type decorator struct {
	name     string
	callForm bool
	line     int
}

// ExtractNodes scans one Python source file and returns metadata for every
// top-level function carrying the node tag, keyed by fully-qualified name.
// The file is parsed structurally and never executed.
func ExtractNodes(path string, category string) (map[string]NodeMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s := &scanner{file: path, lines: splitLines(string(data))}
	funcs, err := s.scan()
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]NodeMetadata)
	for _, fn := range funcs {
		if !fn.tagged {
			continue
		}
		fqnn := category + "." + fn.name
		nodes[fqnn] = NodeMetadata{
			FQNN:         fqnn,
			Category:     category,
			FunctionName: fn.name,
			FilePath:     path,
			Docstring:    fn.docstring,
			StartLine:    fn.startLine,
			EndLine:      fn.endLine,
			Signature:    fn.signature,
		}
	}
	return nodes, nil
}

// function is one top-level def collected during a scan.
type function struct {
	name      string
	signature string
	docstring string
	startLine int
	endLine   int
	tagged    bool
	defLine   int
}

// scanner walks a file line by line, tracking only top-level structure.
type scanner struct {
	file  string
	lines []string
}

func (s *scanner) errorf(line int, format string, args ...any) error {
	return &ParseError{File: s.file, Line: line, Reason: fmt.Sprintf(format, args...)}
}

// scan collects every top-level function together with its pending
// decorators. Indented lines belong to the most recent top-level block and
// are only inspected to find body extents.
func (s *scanner) scan() ([]function, error) {
	var funcs []function
	var pending []decorator

	i := 0
	for i < len(s.lines) {
		line := s.lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			i++

		case !isTopLevel(line):
			// Body of a preceding block; a dangling decorator cannot be
			// followed by an indented line.
			if len(pending) > 0 {
				return nil, s.errorf(pending[len(pending)-1].line, "decorator is not attached to a declaration")
			}
			i++

		case strings.HasPrefix(trimmed, "@"):
			d, err := s.parseDecorator(trimmed, i+1)
			if err != nil {
				return nil, err
			}
			pending = append(pending, d)
			// A call-form decorator may spread its arguments across lines.
			depth := parenBalance(line)
			for depth > 0 {
				i++
				if i >= len(s.lines) {
					return nil, s.errorf(d.line, "unterminated decorator")
				}
				depth += parenBalance(s.lines[i])
			}
			i++

		case isDefLine(trimmed):
			fn, next, err := s.parseFunction(i)
			if err != nil {
				return nil, err
			}
			fn.tagged = hasNodeDecorator(pending)
			pending = nil
			funcs = append(funcs, fn)
			i = next

		case strings.HasPrefix(trimmed, "class ") || strings.HasPrefix(trimmed, "class("):
			// Classes may legally consume decorators but are not nodes.
			pending = nil
			i++

		default:
			if len(pending) > 0 {
				return nil, s.errorf(pending[len(pending)-1].line, "decorator is not attached to a declaration")
			}
			i++
		}
	}

	if len(pending) > 0 {
		return nil, s.errorf(pending[len(pending)-1].line, "decorator at end of file is not attached to a declaration")
	}
	return funcs, nil
}

// parseDecorator extracts the dotted decorator name from a line like
// "@node" or "@pyworks.node(arg)". Call forms are kept but flagged.
func (s *scanner) parseDecorator(trimmed string, lineNo int) (decorator, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "@"))
	if rest == "" {
		return decorator{}, s.errorf(lineNo, "empty decorator")
	}
	name := rest
	callForm := false
	if idx := strings.IndexAny(rest, "( \t#"); idx >= 0 {
		name = rest[:idx]
		callForm = strings.HasPrefix(strings.TrimSpace(rest[idx:]), "(")
	}
	if name == "" {
		return decorator{}, s.errorf(lineNo, "empty decorator")
	}
	return decorator{name: name, callForm: callForm, line: lineNo}, nil
}

// hasNodeDecorator reports whether any pending decorator is the node tag,
// in its bare or namespace-qualified spelling. Call forms never match.
func hasNodeDecorator(pending []decorator) bool {
	for _, d := range pending {
		if d.callForm {
			continue
		}
		if d.name == "node" || strings.HasSuffix(d.name, ".node") {
			return true
		}
	}
	return false
}

// parseFunction parses a top-level def starting at index i. It returns the
// collected function and the index of the first line after its body.
func (s *scanner) parseFunction(i int) (function, int, error) {
	defLineNo := i + 1
	trimmed := strings.TrimSpace(s.lines[i])
	rest := strings.TrimPrefix(trimmed, "async ")
	rest = strings.TrimPrefix(rest, "def")
	rest = strings.TrimSpace(rest)

	open := strings.Index(rest, "(")
	if open < 0 {
		return function{}, 0, s.errorf(defLineNo, "malformed function definition: missing parameter list")
	}
	name := strings.TrimSpace(rest[:open])
	if name == "" {
		return function{}, 0, s.errorf(defLineNo, "malformed function definition: missing name")
	}

	signature, closeIdx, tail, err := s.parseSignature(rest[open:], i)
	if err != nil {
		return function{}, 0, err
	}

	// One-liner: "def f(): return 1".
	if body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tail), ":")); body != "" && !strings.HasPrefix(body, "#") {
		return function{
			name:      name,
			signature: signature,
			startLine: defLineNo,
			endLine:   closeIdx + 1,
			defLine:   defLineNo,
		}, closeIdx + 1, nil
	}

	end, docstring, err := s.parseBody(closeIdx+1, defLineNo)
	if err != nil {
		return function{}, 0, err
	}

	return function{
		name:      name,
		signature: signature,
		docstring: docstring,
		startLine: defLineNo,
		endLine:   end,
		defLine:   defLineNo,
	}, end, nil
}

// parseSignature consumes the parameter list, which may span lines. It
// returns the list verbatim (whitespace collapsed), the index of the line
// holding the closing paren, and whatever follows it on that line.
func (s *scanner) parseSignature(fromOpen string, i int) (string, int, string, error) {
	depth := 0
	var parts []string
	text := fromOpen

	for {
		closed := -1
		for pos, r := range text {
			switch r {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
				if depth == 0 {
					closed = pos
				}
			}
			if closed >= 0 {
				break
			}
		}
		if closed >= 0 {
			parts = append(parts, strings.TrimSpace(text[:closed+1]))
			return strings.Join(parts, " "), i, text[closed+1:], nil
		}
		parts = append(parts, strings.TrimSpace(text))
		i++
		if i >= len(s.lines) {
			return "", 0, "", s.errorf(len(s.lines), "unterminated parameter list")
		}
		text = s.lines[i]
	}
}

// parenBalance counts bracket openers minus closers on a line. It is a
// structural approximation that ignores brackets inside string literals.
func parenBalance(line string) int {
	depth := 0
	for _, r := range line {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}
	return depth
}

// parseBody finds the last line of an indented block starting after line
// index bodyFrom, and extracts a leading docstring when present. Returns the
// 1-based end line.
func (s *scanner) parseBody(bodyFrom int, defLineNo int) (int, string, error) {
	end := defLineNo
	docstring := ""
	sawStatement := false

	for j := bodyFrom; j < len(s.lines); j++ {
		line := s.lines[j]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isTopLevel(line) {
			break
		}
		if !sawStatement && !strings.HasPrefix(trimmed, "#") {
			sawStatement = true
			if quote := tripleQuote(trimmed); quote != "" {
				doc, endIdx, err := s.parseDocstring(j, quote)
				if err != nil {
					return 0, "", err
				}
				docstring = doc
				end = endIdx + 1
				j = endIdx
				continue
			}
		}
		end = j + 1
	}

	if !sawStatement {
		return 0, "", s.errorf(defLineNo, "function has an empty body")
	}
	return end, docstring, nil
}

// parseDocstring consumes a triple-quoted string starting at line index j
// and returns the cleaned text plus the index of its closing line.
func (s *scanner) parseDocstring(j int, quote string) (string, int, error) {
	trimmed := strings.TrimSpace(s.lines[j])
	inner := trimmed[len(quote):]

	// Single-line docstring.
	if idx := strings.Index(inner, quote); idx >= 0 {
		return strings.TrimSpace(inner[:idx]), j, nil
	}

	parts := []string{inner}
	for k := j + 1; k < len(s.lines); k++ {
		line := s.lines[k]
		if idx := strings.Index(line, quote); idx >= 0 {
			parts = append(parts, line[:idx])
			return cleanDocstring(parts), k, nil
		}
		parts = append(parts, line)
	}
	return "", 0, s.errorf(j+1, "unterminated string literal")
}

// cleanDocstring trims surrounding blank lines and the common leading
// indentation of continuation lines, like Python's inspect.cleandoc.
func cleanDocstring(parts []string) string {
	margin := -1
	for _, line := range parts[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}

	out := []string{strings.TrimSpace(parts[0])}
	for _, line := range parts[1:] {
		if margin > 0 && len(line) >= margin {
			line = line[margin:]
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}

// tripleQuote returns the docstring delimiter opening the line, or "".
func tripleQuote(trimmed string) string {
	for _, q := range []string{`"""`, "'''"} {
		if strings.HasPrefix(trimmed, q) {
			return q
		}
	}
	return ""
}

// isTopLevel reports whether a line begins at column zero.
func isTopLevel(line string) bool {
	return len(line) > 0 && line[0] != ' ' && line[0] != '\t'
}

// isDefLine reports whether a trimmed line opens a function definition.
func isDefLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def ")
}

// splitLines splits file content into lines, tolerating CRLF endings.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
