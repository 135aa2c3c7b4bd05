//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(os.Getenv("APPDATA"), "loom", "config")
}

func platformDataDefault() string {
	return filepath.Join(os.Getenv("APPDATA"), "loom", "data")
}

func platformStateDefault() string {
	return filepath.Join(os.Getenv("LOCALAPPDATA"), "loom", "state")
}
