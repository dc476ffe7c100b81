package format

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"
)

var log = commonlog.GetLogger("harp.format")

// isProbablyCompiler gates the rewrite: only strings that textually look
// like they contain an old-style compiler clause are re-tokenized. False
// positives (a "%" inside a quoted value) are rejected later by the
// rewriter itself.
var isProbablyCompiler = regexp.MustCompile(`%[a-zA-Z_][a-zA-Z0-9\-]`)

// maximum size of a file that can plausibly be user code or config
const maxFileSize = 1 << 20

// A Handler receives one rewritten spec string: where it was found, what
// it said, and what it should say.
type Handler func(path string, line, col int, old, new string)

// ReportHandler writes "path:line:col: `old` -> `new`" lines to w.
func ReportHandler(w io.Writer) Handler {
	return func(path string, line, col int, old, new string) {
		fmt.Fprintf(w, "%s:%d:%d: `%s` -> `%s`\n", path, line, col, old, new)
	}
}

// FixHandler applies each rewrite to the named line of the file in
// place. If the old text is not found verbatim on that line, the fix is
// skipped with a warning: either the file changed concurrently or the
// match was not precise.
func FixHandler(w io.Writer) Handler {
	return func(path string, line, col int, old, new string) {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warningf("%s:%d:%d: could not apply fix: %v", path, line, col, err)
			return
		}
		lines := strings.SplitAfter(string(data), "\n")
		if line < 1 || line > len(lines) {
			log.Warningf("%s:%d:%d: could not apply fix: line out of range", path, line, col)
			return
		}
		fixed := strings.ReplaceAll(lines[line-1], old, new)
		if fixed == lines[line-1] {
			log.Warningf("%s:%d:%d: could not apply fix: `%s` -> `%s`", path, line, col, old, new)
			return
		}
		lines[line-1] = fixed
		if err := os.WriteFile(path, []byte(strings.Join(lines, "")), 0o644); err != nil {
			log.Warningf("%s: could not write fix: %v", path, err)
			return
		}
		fmt.Fprintf(w, "%s:%d:%d: fixed `%s` -> `%s`\n", path, line, col, old, new)
	}
}

// CheckFiles scans Python, JSON and YAML files for old-style spec
// strings and calls handler for each one that the rewriter would change.
// Unreadable or oversized files are skipped with a warning.
func CheckFiles(paths []string, handler Handler) {
	for _, path := range paths {
		isJSONOrYAML := strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".yaml") ||
			strings.HasSuffix(path, ".yml")
		isPython := strings.HasSuffix(path, ".py")
		if !isJSONOrYAML && !isPython {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			log.Warningf("skipping %s: %v", path, err)
			continue
		}
		if info.Size() > maxFileSize {
			log.Warningf("skipping %s: too large", path)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warningf("skipping %s: %v", path, err)
			continue
		}
		if isJSONOrYAML {
			if err := checkYAMLOrJSON(path, data, handler); err != nil {
				log.Warningf("skipping %s: %v", path, err)
			}
		} else {
			checkPython(path, string(data), handler)
		}
	}
}

// checkYAMLOrJSON walks a YAML document (JSON being a subset of YAML)
// and applies handler to rewritable scalar strings. yaml.Node carries
// the line and column of every scalar.
func checkYAMLOrJSON(path string, data []byte, handler Handler) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	var walk func(node *yaml.Node)
	walk = func(node *yaml.Node) {
		if node.Kind == yaml.ScalarNode {
			value := node.Value
			if !isProbablyCompiler.MatchString(value) {
				return
			}
			if fixed, changed := FormatSpecString(value); changed {
				handler(path, node.Line, node.Column, value, fixed)
			}
			return
		}
		for _, child := range node.Content {
			walk(child)
		}
	}
	walk(&root)
	return nil
}

// checkPython applies handler to rewritable string literals of a Python
// source file. Only the literal spans are located; the surrounding code
// is not parsed. Literals containing backslash escapes are left alone
// since their source text differs from their value.
func checkPython(path, src string, handler Handler) {
	for _, lit := range pyStringLiterals(src) {
		if strings.Contains(lit.text, `\`) {
			continue
		}
		if !isProbablyCompiler.MatchString(lit.text) {
			continue
		}
		if fixed, changed := FormatSpecString(lit.text); changed {
			handler(path, lit.line, lit.col, lit.text, fixed)
		}
	}
}

type pyLiteral struct {
	text string
	line int
	col  int
}

// pyStringLiterals scans Python source for string literals, tracking the
// line and column where each starts. Comments are skipped; string
// prefixes (r, b, f, u and combinations) are tolerated; both single and
// triple quoting are handled.
func pyStringLiterals(src string) []pyLiteral {
	var out []pyLiteral
	line, col := 1, 0
	i := 0
	advance := func(n int) {
		for j := 0; j < n; j++ {
			if src[i+j] == '\n' {
				line++
				col = 0
			} else {
				col++
			}
		}
		i += n
	}
	for i < len(src) {
		c := src[i]
		switch {
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				advance(1)
			}
		case c == '\'' || c == '"':
			startLine, startCol := line, col
			quote := string(c)
			if i+2 < len(src) && src[i+1] == c && src[i+2] == c {
				quote = strings.Repeat(string(c), 3)
			}
			advance(len(quote))
			begin := i
			for i < len(src) && !strings.HasPrefix(src[i:], quote) {
				if src[i] == '\\' && i+1 < len(src) {
					advance(1)
				}
				if len(quote) == 1 && src[i] == '\n' {
					break
				}
				advance(1)
			}
			text := src[begin:i]
			if strings.HasPrefix(src[i:], quote) {
				advance(len(quote))
			}
			out = append(out, pyLiteral{text: text, line: startLine, col: startCol})
		default:
			advance(1)
		}
	}
	return out
}
