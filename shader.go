package cgs

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

// builtinShaders holds the shaders every system can fall back to.
//
//go:embed shaders
var builtinShaders embed.FS

// Shader is a compiled shader stage, shared by every mesh that uses it.
type Shader struct {
	stage  gpucore.ShaderStage
	name   string
	source string // file path, or "builtin:" + name
	id     gpucore.ShaderID
}

// Stage returns the pipeline stage.
func (sh *Shader) Stage() gpucore.ShaderStage { return sh.stage }

// Name returns the name the shader was loaded by.
func (sh *Shader) Name() string { return sh.name }

// Source returns where the shader was read from.
func (sh *Shader) Source() string { return sh.source }

// Valid reports whether the shader compiled.
func (sh *Shader) Valid() bool { return sh != nil && sh.id != gpucore.InvalidID }

type shaderKey struct {
	stage gpucore.ShaderStage
	name  string
}

// ShaderFileName returns the file a shader is stored in, e.g.
// "default.vert.glsl".
func ShaderFileName(stage gpucore.ShaderStage, name string, lang gpucore.Language) string {
	return name + "." + stage.Suffix() + "." + lang.Extension()
}

// AddShaderPath appends a directory to the shader search paths.
func (s *System) AddShaderPath(dir string) {
	if !slices.Contains(s.shaderPaths, dir) {
		s.shaderPaths = append(s.shaderPaths, dir)
	}
}

// RemoveShaderPath removes a directory from the shader search paths.
func (s *System) RemoveShaderPath(dir string) {
	s.shaderPaths = slices.DeleteFunc(s.shaderPaths, func(p string) bool { return p == dir })
}

// ShaderPaths returns the shader search paths in search order.
func (s *System) ShaderPaths() []string {
	return slices.Clone(s.shaderPaths)
}

// LoadShader returns the named shader for a stage, compiling it on first
// use. The search paths are tried in order, then the built-in shaders.
// Shaders that fail to load are not cached.
func (s *System) LoadShader(stage gpucore.ShaderStage, name string) (*Shader, error) {
	if s.closed {
		return nil, ErrClosed
	}
	key := shaderKey{stage, name}
	if sh, ok := s.shaders[key]; ok {
		return sh, nil
	}

	file := ShaderFileName(stage, name, s.device.Capabilities().Language)
	src, origin, err := s.readShader(file)
	if err != nil {
		s.logger().Error("cgs: shader not found", "file", file, "paths", s.shaderPaths)
		return nil, err
	}
	id, err := s.device.CompileShader(stage, src, file)
	if err != nil {
		s.logger().Error("cgs: shader compilation failed", "file", origin, "err", err)
		return nil, fmt.Errorf("cgs: %s: %w", origin, err)
	}
	sh := &Shader{stage: stage, name: name, source: origin, id: id}
	s.shaders[key] = sh
	s.logger().Debug("cgs: shader loaded", "file", origin, "stage", stage.String())
	return sh, nil
}

func (s *System) readShader(file string) (src, origin string, err error) {
	for _, dir := range s.shaderPaths {
		p := filepath.Join(dir, file)
		b, err := os.ReadFile(p)
		if err == nil {
			return string(b), p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger().Warn("cgs: shader file unreadable", "file", p, "err", err)
		}
	}
	b, err := builtinShaders.ReadFile(path.Join("shaders", file))
	if err == nil {
		return string(b), "builtin:" + file, nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrShaderNotFound, file)
}

// DefaultShader returns the system's fallback shader for the vertex or
// fragment stage.
func (s *System) DefaultShader(stage gpucore.ShaderStage) *Shader {
	switch stage {
	case gpucore.StageVertex:
		return s.defaultVert
	case gpucore.StageFragment:
		return s.defaultFrag
	default:
		return nil
	}
}
