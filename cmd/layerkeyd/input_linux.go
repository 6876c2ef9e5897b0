//go:build linux

package main

import "layerkeyd/internal/platform"

func newInputProvider(includeNames, excludeNames []string) (platform.InputProvider, error) {
	return platform.NewInputProvider(includeNames, excludeNames)
}

func platformTarget() string { return "linux" }
