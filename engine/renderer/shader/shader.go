package shader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/gogpu/naga"
)

// Extension is appended to every template and include path before it is read.
const Extension = ".wgsl"

// Template names understood by the renderer.
const (
	TemplateMain   = "main"
	TemplateShadow = "shadow"
)

// Environment names the renderer sets on every build.
const (
	FlagHasTexture     = "HAS_TEXTURE"
	FlagUseTexture     = "use_texture"
	FlagSupportStorage = "support_storage"
	ConstMaxLightNum   = "MAX_LIGHT_NUM"
)

var ErrInvalidShader = errors.New("invalid shader")

//go:embed assets
var assets embed.FS

var (
	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
)

// Library is where the pre-processor reads templates and includes from.
// FS is read with logical, slash-separated paths; Builtins maps builtin::name to such a path.
type Library struct {
	FS       fs.FS
	Builtins map[string]string
}

// DefaultBuiltins is the builtin table for the shaders shipped with the engine.
func DefaultBuiltins() map[string]string {
	return map[string]string{
		"scene":         "builtin/scene",
		"light":         "builtin/light",
		"entity":        "builtin/entity",
		"vertex":        "builtin/vertex",
		"lighting":      "builtin/lighting",
		"shadow_sample": "builtin/shadow_sample",
	}
}

// DefaultLibrary returns a Library over the shaders compiled into the binary.
func DefaultLibrary() *Library {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(fmt.Sprintf("shader: embedded assets missing: %v", err))
	}
	return &Library{FS: sub, Builtins: DefaultBuiltins()}
}

// DirLibrary returns a Library reading from dir on disk with the default builtin table,
// so a shader tree can be edited without rebuilding.
func DirLibrary(dir string) *Library {
	return &Library{FS: os.DirFS(dir), Builtins: DefaultBuiltins()}
}

// Expand reads template+Extension from the Library and pre-processes it against env.
//
// Parameters:
//   - template: the logical template path, e.g. TemplateMain
//   - env: the flags and constants for this variant
//
// Returns:
//   - string: the expanded WGSL source
//   - error: a missing template or any pre-processing error
func (l *Library) Expand(template string, env Env) (string, error) {
	src, err := l.read(template)
	if err != nil {
		return "", fmt.Errorf("template %q: %w", template, err)
	}
	out, err := (&preProcessor{lib: l}).expand(template+Extension, src, env, 0)
	if err != nil {
		return "", fmt.Errorf("template %q: %w", template, err)
	}
	return out, nil
}

// EntryPoints returns the names of the first @vertex and @fragment functions in src.
// Either name is empty when the stage is absent.
func EntryPoints(src string) (vertex, fragment string) {
	if m := vertexEntryRegex.FindStringSubmatch(src); m != nil {
		vertex = m[1]
	}
	if m := fragmentEntryRegex.FindStringSubmatch(src); m != nil {
		fragment = m[1]
	}
	return vertex, fragment
}

// Validate compiles src with naga and reports any front-end or validation error before the
// source ever reaches a GPU device.
func Validate(src string) error {
	if _, err := naga.Compile(src); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShader, err)
	}
	return nil
}
