package cgs

import "errors"

// Errors returned by cgs. Test with errors.Is; most are wrapped with detail.
var (
	// ErrClosed is returned when a closed System is used.
	ErrClosed = errors.New("cgs: system closed")

	// ErrNoShaderCompilation is returned by New when the device cannot
	// compile shaders.
	ErrNoShaderCompilation = errors.New("cgs: device cannot compile shaders")

	// ErrDefaultShaders is returned by New when the default vertex or
	// fragment shader fails to load.
	ErrDefaultShaders = errors.New("cgs: default shaders unavailable")

	// ErrShaderNotFound is returned when no search path holds a shader.
	ErrShaderNotFound = errors.New("cgs: shader not found")

	// ErrStaticTexture is returned when a static texture is resized.
	ErrStaticTexture = errors.New("cgs: texture is static")

	// ErrInvalidSize is returned for texel counts below 1.
	ErrInvalidSize = errors.New("cgs: invalid texture size")

	// ErrTextureDestroyed is returned when a destroyed texture is used.
	ErrTextureDestroyed = errors.New("cgs: texture destroyed")

	// ErrInvalidStream is returned when a mesh is drawn or uploaded without
	// a generated vertex stream.
	ErrInvalidStream = errors.New("cgs: vertex stream not generated")

	// ErrUnsupportedImage is returned when a decoded image has no matching
	// texture format.
	ErrUnsupportedImage = errors.New("cgs: unsupported image")
)
