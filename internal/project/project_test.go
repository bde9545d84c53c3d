// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/qubernetes/q8s/internal/testutil"
	"github.com/qubernetes/q8s/pkg/types"
)

const q8sProject = `name: quantum-demo
python_env:
  dependencies:
    - numpy
targets:
  cpu:
    python_env:
      dependencies: []
  qpu:
    python_env:
      dependencies:
        - qiskit
docker:
  username: alice
kubeconfig: ~/.kube/config
`

func TestFind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		files    map[string]string
		entry    string
		wantRoot string
		wantName string
		wantKind SourceKind
	}{
		{
			name:     "q8s project at root",
			files:    map[string]string{"Q8Sproject": q8sProject, "src/app/main.py": ""},
			entry:    "src/app/main.py",
			wantRoot: ".",
			wantName: "quantum-demo",
			wantKind: SourceQ8S,
		},
		{
			name:     "pyproject",
			files:    map[string]string{"pyproject.toml": "[project]\nname = \"pydemo\"\n", "pkg/main.py": ""},
			entry:    "pkg/main.py",
			wantRoot: ".",
			wantName: "pydemo",
			wantKind: SourcePyProject,
		},
		{
			name:     "poetry name",
			files:    map[string]string{"pyproject.toml": "[tool.poetry]\nname = \"poetic\"\n", "main.py": ""},
			entry:    "main.py",
			wantRoot: ".",
			wantName: "poetic",
			wantKind: SourcePyProject,
		},
		{
			name: "nearest wins",
			files: map[string]string{
				"pyproject.toml":    "[project]\nname = \"outer\"\n",
				"inner/Q8Sproject":  "name: inner\n",
				"inner/job/main.py": "",
			},
			entry:    "inner/job/main.py",
			wantRoot: "inner",
			wantName: "inner",
			wantKind: SourceQ8S,
		},
		{
			name: "q8s wins over pyproject in same dir",
			files: map[string]string{
				"pyproject.toml": "[project]\nname = \"py\"\n",
				"Q8Sproject":     "name: q8s-name\n",
				"main.py":        "",
			},
			entry:    "main.py",
			wantRoot: ".",
			wantName: "q8s-name",
			wantKind: SourceQ8S,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := testutil.CanonicalTempDir(t)
			testutil.WriteTree(t, root, tt.files)

			p, err := Find(types.FilesystemPath(filepath.Join(root, filepath.FromSlash(tt.entry))))
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if want := filepath.Join(root, filepath.FromSlash(tt.wantRoot)); p.Root.String() != want {
				t.Errorf("Root = %q, want %q", p.Root, want)
			}
			if p.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name, tt.wantName)
			}
			if p.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", p.Kind, tt.wantKind)
			}
		})
	}
}

func TestFind_FallsBackToEntryDir(t *testing.T) {
	t.Parallel()

	// The temp dir may sit below a directory with a project file on some
	// machines; only the fallback shape is asserted when none is found.
	root := testutil.CanonicalTempDir(t)
	testutil.WriteTree(t, root, map[string]string{"job/main.py": ""})

	p, err := Find(types.FilesystemPath(filepath.Join(root, "job", "main.py")))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if p.Kind != SourceDirectory {
		t.Skipf("found an enclosing project file at %s", p.File)
	}
	if p.Root.String() != filepath.Join(root, "job") || p.Name != "job" || p.File != "" {
		t.Errorf("Find() = %+v", p)
	}
}

func TestFind_ParsesQ8SProject(t *testing.T) {
	t.Parallel()

	root := testutil.CanonicalTempDir(t)
	testutil.WriteTree(t, root, map[string]string{"Q8Sproject": q8sProject, "main.py": ""})

	p, err := Find(types.FilesystemPath(filepath.Join(root, "main.py")))
	if err != nil {
		t.Fatal(err)
	}
	if p.Q8S == nil {
		t.Fatal("Q8S is nil")
	}
	if got := p.Q8S.Targets.Names(); !slices.Equal(got, []string{"cpu", "qpu"}) {
		t.Errorf("Targets.Names() = %v, want [cpu qpu]", got)
	}
	if !slices.Equal(p.Q8S.PythonEnv.Dependencies, []string{"numpy"}) {
		t.Errorf("Dependencies = %v", p.Q8S.PythonEnv.Dependencies)
	}
	if p.Q8S.Docker.Username != "alice" || p.Q8S.Kubeconfig != "~/.kube/config" {
		t.Errorf("Q8S = %+v", p.Q8S)
	}
	if p.File.String() != filepath.Join(root, Q8SFileName) {
		t.Errorf("File = %q", p.File)
	}
}

func TestFind_InvalidFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
	}{
		{"bad yaml", map[string]string{"Q8Sproject": "name: [unclosed\n", "main.py": ""}},
		{"missing name", map[string]string{"Q8Sproject": "docker:\n  username: bob\n", "main.py": ""}},
		{"bad toml", map[string]string{"pyproject.toml": "[project\nname=", "main.py": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := testutil.CanonicalTempDir(t)
			testutil.WriteTree(t, root, tt.files)
			_, err := Find(types.FilesystemPath(filepath.Join(root, "main.py")))
			if !errors.Is(err, ErrInvalidProjectFile) {
				t.Errorf("Find() error = %v, want ErrInvalidProjectFile", err)
			}
		})
	}
}

func TestFind_MissingEntry(t *testing.T) {
	t.Parallel()

	if _, err := Find(types.FilesystemPath(filepath.Join(t.TempDir(), "absent.py"))); err == nil {
		t.Error("Find() of a missing entry returned nil error")
	}
}
