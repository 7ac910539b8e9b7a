package main

import (
	"fmt"
	"path/filepath"
	"strings"
)

// toURI leaves URLs alone and turns local paths into absolute file:// URLs.
func toURI(arg string) (string, error) {
	if strings.Contains(arg, "://") {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", arg, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}
