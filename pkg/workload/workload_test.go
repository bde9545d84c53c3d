// SPDX-License-Identifier: MPL-2.0

package workload

import (
	"maps"
	"testing"

	"github.com/qubernetes/q8s/internal/testutil"
	"github.com/qubernetes/q8s/pkg/types"
)

func TestDataKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"main.py", "main.py"},
		{"pkg/__init__.py", "pkg____init__.py"},
		{"a/b/c.py", "a__b__c.py"},
	}
	for _, tt := range tests {
		if got := DataKey(tt.in); got != tt.want {
			t.Errorf("DataKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWorkload_MappingsAndData(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{
		"main.py":     "from lib import util\n",
		"lib/util.py": "X = 1\n",
	})
	w := mustBuild(t, root, "main.py")

	wantMappings := map[string]string{"main.py": "main.py", "lib__util.py": "lib/util.py"}
	if got := w.Mappings(); !maps.Equal(got, wantMappings) {
		t.Errorf("Mappings() = %v, want %v", got, wantMappings)
	}
	wantData := map[string]string{"main.py": "from lib import util\n", "lib__util.py": "X = 1\n"}
	if got := w.Data(); !maps.Equal(got, wantData) {
		t.Errorf("Data() = %v, want %v", got, wantData)
	}
	if w.Len() != 2 {
		t.Errorf("Len() = %d, want 2", w.Len())
	}
	if want := int64(len("from lib import util\n") + len("X = 1\n")); w.Size() != want {
		t.Errorf("Size() = %d, want %d", w.Size(), want)
	}
}

func TestWorkload_Immutable(t *testing.T) {
	t.Parallel()

	root := project(t, map[string]string{"main.py": "import util\n", "util.py": "X = 1\n"})
	w := mustBuild(t, root, "main.py")

	files := w.Files()
	files[0] = nil
	if w.Files()[0] == nil {
		t.Error("Files() exposes internal slice")
	}

	entry := w.Entry()
	content := entry.Content()
	content[0] = '#'
	if entry.Content()[0] == '#' {
		t.Error("Content() exposes internal buffer")
	}
	if entry.Hash() != types.HashBytes([]byte("import util\n")) {
		t.Errorf("Hash() = %s", entry.Hash())
	}
	if entry.Size() != int64(len("import util\n")) {
		t.Errorf("Size() = %d", entry.Size())
	}
}

func TestFromCode(t *testing.T) {
	dir := testutil.CanonicalTempDir(t)
	restore := testutil.MustChdir(t, dir)
	defer restore()

	w, err := FromCode("job.py", "print('inline')\n")
	if err != nil {
		t.Fatalf("FromCode() error = %v", err)
	}
	if w.EntryScript() != "job.py" {
		t.Errorf("EntryScript() = %q, want job.py", w.EntryScript())
	}
	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1", w.Len())
	}
	if string(w.Entry().Content()) != "print('inline')\n" {
		t.Errorf("Content() = %q", w.Entry().Content())
	}
	if w.Root().String() != dir {
		t.Errorf("Root() = %q, want %q", w.Root(), dir)
	}

	other, err := FromCode("job.py", "print('inline')\n")
	if err != nil {
		t.Fatal(err)
	}
	if other.AggregateHash() != w.AggregateHash() {
		t.Error("FromCode() is not deterministic")
	}

	for _, name := range []string{"", "/abs/job.py", "../job.py", "."} {
		if _, err := FromCode(name, "pass\n"); err == nil {
			t.Errorf("FromCode(%q) returned nil error", name)
		}
	}
}
