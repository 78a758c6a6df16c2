// Package inference - Utility functions.
package inference

import (
	"os"
	"runtime"
)

// SharedLibEnv overrides the onnxruntime shared library location.
const SharedLibEnv = "ONNXRUNTIME_LIB"

// GetSharedLibPath returns the path to the shared library for the current platform.
//
// Returns:
//   - string: The path to the shared library.
func GetSharedLibPath() string {
	if path := os.Getenv(SharedLibEnv); path != "" {
		return path
	}
	return defaultSharedLibPath(runtime.GOOS, runtime.GOARCH)
}

func defaultSharedLibPath(goos, goarch string) string {
	switch goos {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.1.21.0.dylib"
	case "linux":
		if goarch == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	return "./third_party/onnxruntime.so"
}
