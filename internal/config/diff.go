package config

import (
	"bytes"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// DiffSerialized returns a line diff between two serialized YAML documents,
// or an empty string when they only differ in line endings.
func DiffSerialized(previous, current []byte) string {
	prev := documentLines(previous)
	curr := documentLines(current)
	if cmp.Equal(prev, curr) {
		return ""
	}
	return cmp.Diff(prev, curr)
}

func documentLines(data []byte) []string {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
