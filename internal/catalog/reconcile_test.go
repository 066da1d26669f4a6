package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func listing(names ...string) []FileDescriptor {
	out := make([]FileDescriptor, 0, len(names))
	for _, n := range names {
		out = append(out, FileDescriptor{Name: n, Path: "/rules/" + n + ".ifl"})
	}
	return out
}

func TestReconcileNewFilesStartDisabled(t *testing.T) {
	got := Reconcile(listing("currency", "uniques"), nil)
	want := []Entry{
		{Name: "currency", Location: "/rules/currency.ifl"},
		{Name: "uniques", Location: "/rules/uniques.ifl"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected entries (-want +got):\n%s", diff)
	}
}

func TestReconcileDropsDeletedFiles(t *testing.T) {
	persisted := []Entry{
		{Name: "currency", Location: "/rules/currency.ifl", Enabled: true},
		{Name: "gone", Location: "/rules/gone.ifl", Enabled: true},
	}
	got := Reconcile(listing("currency"), persisted)
	if len(got) != 1 || got[0].Name != "currency" {
		t.Fatalf("expected only currency to remain, got %+v", got)
	}
}

func TestReconcilePreservesEnabledAcrossChurn(t *testing.T) {
	persisted := []Entry{
		{Name: "a", Location: "/rules/a.ifl", Enabled: true},
		{Name: "b", Location: "/rules/b.ifl", Enabled: false},
		{Name: "c", Location: "/rules/c.ifl", Enabled: true},
	}
	// c removed, d and e added, listing order shuffled.
	got := Reconcile(listing("e", "b", "d", "a"), persisted)
	flags := map[string]bool{}
	for _, e := range got {
		flags[e.Name] = e.Enabled
	}
	want := map[string]bool{"a": true, "b": false, "d": false, "e": false}
	if diff := cmp.Diff(want, flags); diff != "" {
		t.Fatalf("unexpected enabled flags (-want +got):\n%s", diff)
	}
	if got[0].Name != "a" || got[1].Name != "b" {
		t.Fatalf("persisted order should be kept, got %+v", got)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	persisted := []Entry{{Name: "a", Location: "/old/a.ifl", Enabled: true}, {Name: "x"}}
	files := listing("a", "b")
	once := Reconcile(files, persisted)
	twice := Reconcile(files, once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second reconcile changed entries (-first +second):\n%s", diff)
	}
}

func TestReconcileRelinksMovedFilesByName(t *testing.T) {
	persisted := []Entry{{Name: "a", Location: "/old/a.ifl", Enabled: true}}
	got := Reconcile(listing("a"), persisted)
	if got[0].Location != "/rules/a.ifl" || !got[0].Enabled {
		t.Fatalf("expected relinked enabled entry, got %+v", got[0])
	}
}

func TestReconcileDuplicateNamesLastScannedWins(t *testing.T) {
	files := []FileDescriptor{
		{Name: "dup", Path: "/rules/a/dup.ifl"},
		{Name: "dup", Path: "/rules/b/dup.ifl"},
	}
	got := Reconcile(files, []Entry{{Name: "dup", Enabled: true}, {Name: "dup"}})
	want := []Entry{{Name: "dup", Location: "/rules/b/dup.ifl", Enabled: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected entries (-want +got):\n%s", diff)
	}
}

func TestScanFiltersByExtensionAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta.ifl", "alpha.IFL", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("name: x\n"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.ifl"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, err := Scan(dir, ".ifl")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 rule files, got %+v", files)
	}
	if files[0].Name != "alpha" || files[1].Name != "zeta" {
		t.Fatalf("unexpected order or names: %+v", files)
	}
	if !filepath.IsAbs(files[0].Path) {
		t.Fatalf("expected absolute path, got %s", files[0].Path)
	}
}

func TestScanFollowsSymlinkedRuleFiles(t *testing.T) {
	src := t.TempDir()
	target := filepath.Join(src, "uniques.ifl")
	if err := os.WriteFile(target, []byte("name: x\n"), 0o600); err != nil {
		t.Fatalf("write rule: %v", err)
	}
	if err := os.Mkdir(filepath.Join(src, "folder"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	dir := t.TempDir()
	if err := os.Symlink(target, filepath.Join(dir, "uniques.ifl")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(src, "folder"), filepath.Join(dir, "folder.ifl")); err != nil {
		t.Fatalf("symlink dir: %v", err)
	}
	if err := os.Symlink(filepath.Join(src, "missing.ifl"), filepath.Join(dir, "dangling.ifl")); err != nil {
		t.Fatalf("symlink dangling: %v", err)
	}

	files, err := Scan(dir, ".ifl")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Name != "uniques" {
		t.Fatalf("expected only the symlinked rule file, got %+v", files)
	}

	got := Reconcile(files, []Entry{{Name: "uniques", Location: target, Enabled: true}})
	want := []Entry{{Name: "uniques", Location: filepath.Join(dir, "uniques.ifl"), Enabled: true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("enabled choice not preserved (-want +got):\n%s", diff)
	}
}
