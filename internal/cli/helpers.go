package cli

import (
	"fmt"
	"os"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/config"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/preset"
)

// loadConfig returns config.Default when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadCatalog returns the built-in presets, merged with the CUE file or
// package directory at path when one is given.
func loadCatalog(path string) (*preset.Catalog, error) {
	builtin := preset.Default()
	if path == "" {
		return builtin, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("preset path: %w", err)
	}

	var user *preset.Catalog
	if info.IsDir() {
		user, err = preset.LoadDir(path)
	} else {
		user, err = preset.LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return builtin.Merge(user), nil
}
