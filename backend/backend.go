package backend

import (
	"errors"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot create a device in this process.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when a device is used before its GPU
	// context exists.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend name constants.
const (
	// BackendGL is the OpenGL 4.3 core backend (backend/opengl).
	BackendGL = "gl"
	// BackendWGPU is the WebGPU HAL backend (backend/wgpu).
	BackendWGPU = "wgpu"
	// BackendSoftware is the CPU device in this package.
	BackendSoftware = "software"
)
