//go:build !linux

package main

import (
	"fmt"
	"runtime"

	"layerkeyd/internal/platform"
)

func newInputProvider(includeNames, excludeNames []string) (platform.InputProvider, error) {
	return nil, fmt.Errorf("layerkeyd: no input capture backend for %s yet", runtime.GOOS)
}

func platformTarget() string {
	if runtime.GOOS == "darwin" {
		return "macos"
	}
	return runtime.GOOS
}
