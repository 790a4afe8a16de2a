// Package scan discovers source files and runs a compiled ruleset across
// them. Parallelism follows the core's concurrency model: every worker
// owns a private engine instance.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/teamchong/codesift/lang"
)

// Scope defines which files a walk visits.
type Scope struct {
	Root     string
	Include  []string // doublestar globs, relative to Root
	Exclude  []string
	MaxFiles int   // 0 = unlimited
	MaxBytes int64 // per-file size cap, 0 = unlimited
}

// File is one discovered source file.
type File struct {
	Path     string
	Language lang.Language
	Size     int64
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
}

// Discover walks the scope and returns matching JS/TS files in path order.
func Discover(ctx context.Context, scope Scope) ([]File, error) {
	root := scope.Root
	if root == "" {
		root = "."
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		l, ok := lang.ByExtension(filepath.Ext(root))
		if !ok {
			return nil, fmt.Errorf("unsupported file type: %s", root)
		}
		return []File{{Path: root, Language: l, Size: info.Size()}}, nil
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		l, ok := lang.ByExtension(filepath.Ext(path))
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matchesGlobs(rel, scope.Include, true) || matchesGlobs(rel, scope.Exclude, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if scope.MaxBytes > 0 && fi.Size() > scope.MaxBytes {
			return nil
		}

		files = append(files, File{Path: path, Language: l, Size: fi.Size()})
		if scope.MaxFiles > 0 && len(files) >= scope.MaxFiles {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// matchesGlobs reports whether rel matches any pattern. An empty pattern
// list yields emptyResult.
func matchesGlobs(rel string, patterns []string, emptyResult bool) bool {
	if len(patterns) == 0 {
		return emptyResult
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
		// Also match against the bare file name so "*.spec.js" works
		// without a leading **/.
		if ok, err := doublestar.Match(p, filepath.Base(rel)); err == nil && ok {
			return true
		}
	}
	return false
}
