// =============================================================================
// Refactura Builder - File Manager Utility
// =============================================================================
//
// File discovery and output helpers for the batch build command. The batch
// mode reads every invoice XML from one directory and every scan from
// another, so discovery is deliberately simple: non-recursive, extension
// filtered, and sorted by name so a run over the same directories is
// deterministic.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverFiles lists the regular files in dir whose extension matches one of
// the given extensions (case-insensitive, leading dot included). An empty
// extension list matches every file. Results are sorted by name.
func DiscoverFiles(dir string, extensions ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// OUTPUT MANAGEMENT
// =============================================================================

// EnsureDir creates the directory (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// WriteOutputFile writes data to dir/name and returns the full path.
func WriteOutputFile(dir, name string, data []byte) (string, error) {
	if err := EnsureDir(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
