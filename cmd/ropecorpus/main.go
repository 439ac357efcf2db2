// Command ropecorpus loads a directory of text files into rope instances
// and reports basic stats, as a standalone way to exercise New/Insert/Check
// against real-world text rather than synthetic fuzz input. It accepts a
// doublestar glob so a caller can scope the corpus ("testdata/**/*.txt")
// instead of walking a whole tree.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tekugo/gorope/rope"
)

type fileStats struct {
	path  string
	chars int
	bytes int
	lines int
}

func loadCorpus(root, pattern string) ([]fileStats, error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("expanding glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	var stats []fileStats
	for _, rel := range matches {
		info, err := fs.Stat(fsys, rel)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := fs.ReadFile(fsys, rel)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}

		r := rope.NewFromString(string(data))
		r.Check()

		lines := 1
		r.Chars(func(ru rune) bool {
			if ru == '\n' {
				lines++
			}
			return true
		})

		stats = append(stats, fileStats{
			path:  filepath.Join(root, rel),
			chars: r.LenChars(),
			bytes: r.LenBytes(),
			lines: lines,
		})
	}
	return stats, nil
}

func run() error {
	root := "."
	pattern := "**/*.txt"
	switch len(os.Args) {
	case 1:
	case 2:
		pattern = os.Args[1]
	default:
		root = os.Args[1]
		pattern = os.Args[2]
	}

	stats, err := loadCorpus(root, pattern)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Printf("no files matched %q under %s\n", pattern, root)
		return nil
	}

	totalChars, totalBytes := 0, 0
	for _, s := range stats {
		fmt.Printf("%-60s %8d chars %8d bytes %6d lines\n", s.path, s.chars, s.bytes, s.lines)
		totalChars += s.chars
		totalBytes += s.bytes
	}
	fmt.Printf("\n%d files, %d chars, %d bytes total\n", len(stats), totalChars, totalBytes)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ropecorpus:", err)
		os.Exit(1)
	}
}
