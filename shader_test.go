package cgs

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/WilliamKappler/caelumGraphicsSystem/backend"
	"github.com/WilliamKappler/caelumGraphicsSystem/gpucore"
)

func writeShader(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestShaderFileName(t *testing.T) {
	tests := []struct {
		stage gpucore.ShaderStage
		lang  gpucore.Language
		want  string
	}{
		{gpucore.StageVertex, gpucore.GLSL, "sky.vert.glsl"},
		{gpucore.StageFragment, gpucore.WGSL, "sky.frag.wgsl"},
		{gpucore.StageGeometry, gpucore.GLSL, "sky.geom.glsl"},
	}
	for _, tt := range tests {
		if got := ShaderFileName(tt.stage, "sky", tt.lang); got != tt.want {
			t.Errorf("ShaderFileName(%v, sky, %v) = %q, want %q", tt.stage, tt.lang, got, tt.want)
		}
	}
}

func TestShaderSearchPaths(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeShader(t, first, "water.frag.glsl", "void main() { /* first */ }")
	writeShader(t, second, "water.frag.glsl", "void main() { /* second */ }")
	writeShader(t, second, "water.vert.glsl", "void main() {}")

	s, _ := newTestSystem(t, WithShaderPaths(second))
	s.AddShaderPath(first)
	s.AddShaderPath(first)
	if got := s.ShaderPaths(); !slices.Equal(got, []string{second, first}) {
		t.Fatalf("ShaderPaths() = %v, want [second first]", got)
	}

	sh, err := s.LoadShader(gpucore.StageFragment, "water")
	if err != nil {
		t.Fatalf("LoadShader() error = %v", err)
	}
	if want := filepath.Join(second, "water.frag.glsl"); sh.Source() != want {
		t.Errorf("Source() = %q, want %q", sh.Source(), want)
	}
	again, _ := s.LoadShader(gpucore.StageFragment, "water")
	if again != sh {
		t.Error("LoadShader() did not return the cached shader")
	}

	s.RemoveShaderPath(second)
	vert, err := s.LoadShader(gpucore.StageVertex, "water")
	if !errors.Is(err, ErrShaderNotFound) {
		t.Errorf("LoadShader() after RemoveShaderPath error = %v, want ErrShaderNotFound", err)
	}
	if vert != nil {
		t.Error("LoadShader() returned a shader on error")
	}
}

func TestShaderBuiltinFallback(t *testing.T) {
	s, _ := newTestSystem(t, WithShaderPaths(t.TempDir()))
	sh, err := s.LoadShader(gpucore.StageFragment, "textured")
	if err != nil {
		t.Fatalf("LoadShader(textured) error = %v", err)
	}
	if sh.Source() != "builtin:textured.frag.glsl" {
		t.Errorf("Source() = %q, want builtin:textured.frag.glsl", sh.Source())
	}
	if sh.Name() != "textured" || sh.Stage() != gpucore.StageFragment {
		t.Errorf("shader = %s %v, want textured fragment", sh.Name(), sh.Stage())
	}
}

func TestShaderCompileFailureNotCached(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "glow.frag.glsl", "void main() { broken }")

	dev := backend.NewSoftwareDevice(backend.WithCompileCheck(func(_ gpucore.ShaderStage, src string) error {
		if strings.Contains(src, "broken") {
			return errors.New("syntax error")
		}
		return nil
	}))
	s, _ := newTestSystemOn(t, dev, WithShaderPaths(dir))

	if _, err := s.LoadShader(gpucore.StageFragment, "glow"); !errors.Is(err, gpucore.ErrCompile) {
		t.Fatalf("LoadShader() error = %v, want gpucore.ErrCompile", err)
	}
	writeShader(t, dir, "glow.frag.glsl", "void main() {}")
	if _, err := s.LoadShader(gpucore.StageFragment, "glow"); err != nil {
		t.Errorf("LoadShader() after fix error = %v", err)
	}
}

func TestMeshShaders(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "lines.geom.glsl", "void main() {}")
	s, dev := newTestSystem(t, WithShaderPaths(dir))
	m := triangle(t, s)

	if m.Shader(gpucore.StageVertex) != nil {
		t.Error("new mesh should use the default vertex shader")
	}
	if err := m.LoadShader(gpucore.StageGeometry, "lines"); err != nil {
		t.Fatalf("LoadShader(geometry) error = %v", err)
	}
	frag, _ := s.LoadShader(gpucore.StageFragment, "textured")
	if m.SetShader(gpucore.StageVertex, frag) {
		t.Error("SetShader() accepted a fragment shader for the vertex stage")
	}
	if !m.SetShader(gpucore.StageFragment, frag) {
		t.Fatal("SetShader(fragment) = false")
	}

	m.SetUniformLayout("tint", "transform")
	prog, err := m.Program()
	if err != nil {
		t.Fatalf("Program() error = %v", err)
	}
	m.SetUniformFloat("alpha", 0.5)
	if v, _ := dev.Uniform(prog, "alpha"); v != float32(0.5) {
		t.Errorf("uniform alpha = %v, want 0.5", v)
	}

	// Changing a shader relinks on next use.
	m.SetShader(gpucore.StageGeometry, nil)
	next, err := m.Program()
	if err != nil {
		t.Fatalf("Program() error = %v", err)
	}
	if next == prog || dev.HasProgram(prog) {
		t.Error("relink should replace and destroy the old program")
	}
}

func TestGeometryShaderUnsupported(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "lines.geom.glsl", "void main() {}")
	s, _ := newTestSystemOn(t, backend.NewSoftwareDevice(backend.WithoutGeometryShaders()), WithShaderPaths(dir))

	if _, err := s.LoadShader(gpucore.StageGeometry, "lines"); !errors.Is(err, gpucore.ErrUnsupported) {
		t.Errorf("LoadShader(geometry) error = %v, want gpucore.ErrUnsupported", err)
	}
}
