//go:build debug

package core

import (
	"runtime"
)

const GPUChecks = true

// AssertGPU aborts with file/line context when the backend reports a pending API error.
func AssertGPU(b ErrorChecker, what string) {
	if err := b.CheckError(); err != nil {
		_, file, line, _ := runtime.Caller(1)
		LogFatal("GPU error after %s (%s:%d): %s", what, file, line, err)
	}
}
