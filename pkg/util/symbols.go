package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadSymbols reads one ticker per line from path. Blank lines and lines
// starting with '#' are ignored; surrounding whitespace is trimmed.
func ReadSymbols(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbols file: %w", err)
	}
	defer f.Close()
	return ParseSymbols(f)
}

// ParseSymbols is ReadSymbols over an arbitrary reader. Order is preserved and
// duplicates are dropped.
func ParseSymbols(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read symbols: %w", err)
	}
	return out, nil
}
