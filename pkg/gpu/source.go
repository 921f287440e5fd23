package gpu

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxIncludeDepth bounds recursive include expansion; reaching it means an
// include cycle.
const maxIncludeDepth = 16

// includeDirective matches the only accepted include form: a double-quoted
// literal path. The path is resolved relative to the including file, and any
// other argument shape is rejected outright.
var includeDirective = regexp.MustCompile(`^\s*#include\s+"([^"]+)"\s*$`)

// LoadSource reads a kernel source file and recursively expands its
// #include directives. Included paths resolve relative to the directory of
// the file containing the directive.
func LoadSource(path string) (string, error) {
	lines, err := loadLines(path, 0)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func loadLines(path string, depth int) ([]string, error) {
	if depth > maxIncludeDepth {
		return nil, fmt.Errorf("%w: include depth exceeds %d at %s (cycle?)", ErrInclude, maxIncludeDepth, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInclude, path, err)
	}
	var out []string
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#include") {
			out = append(out, line)
			continue
		}
		m := includeDirective.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: %s: include argument must be a quoted literal path: %q", ErrInclude, path, trimmed)
		}
		sub := filepath.Join(filepath.Dir(path), m[1])
		subLines, err := loadLines(sub, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, subLines...)
	}
	return out, nil
}

// InjectDefines inserts preprocessor definitions textually immediately after
// the source's #version directive (or at the top when there is none). This
// is how configuration-driven precision selection reaches the kernel.
func InjectDefines(source string, defines []string) string {
	if len(defines) == 0 {
		return source
	}
	block := strings.Join(defines, "\n") + "\n"
	lines := strings.SplitAfter(source, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#version") {
			var b strings.Builder
			for _, l := range lines[:i+1] {
				b.WriteString(l)
			}
			b.WriteString(block)
			for _, l := range lines[i+1:] {
				b.WriteString(l)
			}
			return b.String()
		}
	}
	return block + source
}

// NumberSource renders the expanded source with 1-based line numbers, the
// form embedded in compile errors. Includes and macro injection make the
// effective source differ from the file on disk, so diagnostics must show
// what the compiler actually saw.
func NumberSource(source string) string {
	lines := strings.Split(strings.TrimSuffix(source, "\n"), "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%4d  %s\n", i+1, line)
	}
	return b.String()
}
