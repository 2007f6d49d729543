// pre_processor.go implements the line-oriented WGSL directive processor. It expands
// #include lines with the contents of other shader files and strips #ifdef/#else/#end
// blocks whose condition is false, producing plain WGSL with no directive lines left.
//
// Directives are recognised at the start of a line (leading whitespace ignored):
//
//	#ifdef NAME            open a conditional block, visible when NAME is set in the Env
//	#else                  flip the innermost open block
//	#end                   close the innermost open block
//	#include path          splice in path + Extension, read from the Library FS
//	#include builtin::name splice in the file the Library's builtin table maps name to
//
// Emitted lines additionally have ${NAME} replaced with the decimal value of a numeric
// constant from the Env.
package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

const (
	directiveIfdef   = "#ifdef"
	directiveElse    = "#else"
	directiveEnd     = "#end"
	directiveInclude = "#include"

	builtinPrefix = "builtin::"

	// MaxIncludeDepth bounds how deeply #include may nest before the expansion is treated as a cycle.
	MaxIncludeDepth = 32
)

var (
	ErrElseWithoutIfdef  = errors.New("#else without matching #ifdef")
	ErrEndWithoutIfdef   = errors.New("#end without matching #ifdef")
	ErrUnterminatedIfdef = errors.New("#ifdef without matching #end")
	ErrUnknownBuiltin    = errors.New("unknown builtin shader module")
	ErrIncludeNotFound   = errors.New("included shader file not found")
	ErrIncludeCycle      = errors.New("include depth exceeded, likely an include cycle")
	ErrMalformed         = errors.New("malformed directive")
)

// Env is the environment directives are evaluated against.
// A name is set when its flag is true or its constant is non-zero; anything absent is unset.
type Env struct {
	Flags  map[string]bool
	Consts map[string]int
}

// Defined reports whether name is set in the environment.
func (e Env) Defined(name string) bool {
	if v, ok := e.Flags[name]; ok {
		return v
	}
	if v, ok := e.Consts[name]; ok {
		return v != 0
	}
	return false
}

// frame is one open #ifdef block. A frame is visible only when its own condition holds
// and every enclosing frame is visible too.
type frame struct {
	matched       bool
	parentVisible bool
}

func (f frame) visible() bool {
	return f.parentVisible && f.matched
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	lib *Library
}

// PreProcessor expands directive-bearing WGSL into plain WGSL.
type PreProcessor interface {
	// Process expands source against env. Includes are resolved through the pre-processor's Library.
	// The output is a pure function of the inputs and the Library's file contents.
	//
	// Parameters:
	//   - source: the raw shader source containing directives
	//   - env: the flags and numeric constants that #ifdef tests and ${NAME} substitutes
	//
	// Returns:
	//   - string: the expanded source with every directive line removed
	//   - error: a configuration error wrapping one of the package's sentinel errors
	Process(source string, env Env) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor resolving includes through lib.
// A nil lib resolves nothing, so any #include in a visible region fails.
func NewPreProcessor(lib *Library) PreProcessor {
	if lib == nil {
		lib = &Library{}
	}
	return &preProcessor{lib: lib}
}

// Process is shorthand for NewPreProcessor(lib).Process(source, env).
func Process(source string, env Env, lib *Library) (string, error) {
	return NewPreProcessor(lib).Process(source, env)
}

func (p *preProcessor) Process(source string, env Env) (string, error) {
	return p.expand("<source>", source, env, 0)
}

func (p *preProcessor) expand(name, source string, env Env, depth int) (string, error) {
	if depth > MaxIncludeDepth {
		return "", fmt.Errorf("%s: %w", name, ErrIncludeCycle)
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []frame

	visible := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].visible()
	}

	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || !strings.HasPrefix(fields[0], "#") {
			if visible() {
				out = append(out, substitute(line, env))
			}
			continue
		}

		word, ok := directive(fields[0])
		if !ok {
			if visible() {
				out = append(out, substitute(line, env))
			}
			continue
		}
		if word != fields[0] {
			return "", fmt.Errorf("%s:%d: %w: unknown directive %s", name, i+1, ErrMalformed, fields[0])
		}

		switch word {
		case directiveIfdef:
			if len(fields) != 2 {
				return "", fmt.Errorf("%s:%d: %w: #ifdef takes exactly one name", name, i+1, ErrMalformed)
			}
			// frames under a hidden parent are still pushed so #else/#end stay balanced
			stack = append(stack, frame{matched: env.Defined(fields[1]), parentVisible: visible()})
		case directiveElse:
			if len(stack) == 0 {
				return "", fmt.Errorf("%s:%d: %w", name, i+1, ErrElseWithoutIfdef)
			}
			stack[len(stack)-1].matched = !stack[len(stack)-1].matched
		case directiveEnd:
			if len(stack) == 0 {
				return "", fmt.Errorf("%s:%d: %w", name, i+1, ErrEndWithoutIfdef)
			}
			stack = stack[:len(stack)-1]
		case directiveInclude:
			if !visible() {
				continue
			}
			if len(fields) != 2 {
				return "", fmt.Errorf("%s:%d: %w: #include takes exactly one path", name, i+1, ErrMalformed)
			}
			path, err := p.lib.resolve(fields[1])
			if err != nil {
				return "", fmt.Errorf("%s:%d: %w", name, i+1, err)
			}
			body, err := p.lib.read(path)
			if err != nil {
				return "", fmt.Errorf("%s:%d: %w", name, i+1, err)
			}
			expanded, err := p.expand(path, body, env, depth+1)
			if err != nil {
				return "", err
			}
			out = append(out, expanded)
		}
	}

	if len(stack) != 0 {
		return "", fmt.Errorf("%s: %w (%d open)", name, ErrUnterminatedIfdef, len(stack))
	}
	return strings.Join(out, "\n"), nil
}

// directive reports which directive word starts with. Any word carrying a directive prefix
// is a control line; other #words are ordinary text.
func directive(word string) (string, bool) {
	for _, d := range []string{directiveIfdef, directiveElse, directiveEnd, directiveInclude} {
		if strings.HasPrefix(word, d) {
			return d, true
		}
	}
	return "", false
}

// substitute replaces ${NAME} with the value of a numeric constant. Unknown names are left in place.
func substitute(line string, env Env) string {
	if len(env.Consts) == 0 || !strings.Contains(line, "${") {
		return line
	}
	var b strings.Builder
	rest := line
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		key := rest[start+2 : start+end]
		b.WriteString(rest[:start])
		if v, ok := env.Consts[key]; ok {
			b.WriteString(strconv.Itoa(v))
		} else {
			b.WriteString(rest[start : start+end+1])
		}
		rest = rest[start+end+1:]
	}
	return b.String()
}

// resolve maps an include argument to a path relative to the Library FS, without the extension.
func (l *Library) resolve(arg string) (string, error) {
	name, ok := strings.CutPrefix(arg, builtinPrefix)
	if !ok {
		return arg, nil
	}
	path, ok := l.Builtins[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownBuiltin, name)
	}
	return path, nil
}

func (l *Library) read(path string) (string, error) {
	if l.FS == nil {
		return "", fmt.Errorf("%w: %q (no shader filesystem)", ErrIncludeNotFound, path+Extension)
	}
	data, err := fs.ReadFile(l.FS, path+Extension)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrIncludeNotFound, path+Extension)
		}
		return "", fmt.Errorf("read %q: %w", path+Extension, err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}
