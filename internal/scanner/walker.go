// Package scanner implements the Auto-Scanner: a single long-lived
// supervisor task that periodically clones/updates tracked
// repositories and submits changed files for LLM analysis (spec.md
// §4.C). File enumeration and change detection here mirror the
// exclusion-pattern walk theRebelliousNerd-codenerd's
// internal/world.ScanWorkspaceIncremental uses, adapted from directory
// facts/fingerprints to a flat, lexicographically ordered list of
// content-hash-diffed paths.
package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// excludedDirs are never descended into, regardless of depth (spec.md
// §4.C step 3).
var excludedDirs = map[string]bool{
	".git": true, "target": true, "node_modules": true, "__pycache__": true,
	"build": true, "dist": true, ".idea": true, ".vscode": true,
}

// includedDotfiles are allowed even though they start with a dot
// (spec.md §4.C step 3 "include selected dotfiles").
var includedDotfiles = map[string]bool{
	".gitignore": true, ".env.example": true,
}

// Walk enumerates candidate file paths under root in deterministic
// lexicographic order (spec.md §4.C step 5), applying the directory
// exclusion list and dotfile allowlist.
func Walk(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if excludedDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") && !includedDotfiles[name] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// HashFile computes the SHA-256 content hash of a file, the unit of
// comparison the scanner uses to identify changed files.
func HashFile(absPath string) (string, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
