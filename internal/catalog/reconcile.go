package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is a named rule file and whether the user enabled it.
type Entry struct {
	Name     string `yaml:"name" json:"name"`
	Location string `yaml:"location" json:"location"`
	Enabled  bool   `yaml:"enabled" json:"enabled"`
}

// FileDescriptor is a rule file found by a directory scan.
type FileDescriptor struct {
	Name string
	Path string
}

// Scan lists the rule files in dir with the given extension, ordered by path.
// The rule name is the file name without the extension. Symlinks are followed
// and kept when they resolve to a regular file.
func Scan(dir, ext string) ([]FileDescriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan rule dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve rule dir: %w", err)
	}
	files := make([]FileDescriptor, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		if !isRuleFile(abs, e) {
			continue
		}
		files = append(files, FileDescriptor{
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Path: filepath.Join(abs, name),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func isRuleFile(dir string, e fs.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}

// Reconcile syncs the persisted entries with a directory listing. Entries whose
// file is gone are dropped, new files are appended disabled, and surviving
// entries keep their enabled flag while their location follows the scan.
// Names are matched exactly; a name listed twice resolves to its last path.
func Reconcile(listing []FileDescriptor, persisted []Entry) []Entry {
	paths := make(map[string]string, len(listing))
	for _, f := range listing {
		paths[f.Name] = f.Path
	}

	out := make([]Entry, 0, len(listing))
	seen := make(map[string]struct{}, len(listing))
	for _, e := range persisted {
		path, ok := paths[e.Name]
		if !ok {
			continue
		}
		if _, dup := seen[e.Name]; dup {
			continue
		}
		seen[e.Name] = struct{}{}
		e.Location = path
		out = append(out, e)
	}
	for _, f := range listing {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, Entry{Name: f.Name, Location: paths[f.Name], Enabled: false})
	}
	return out
}
