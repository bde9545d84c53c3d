// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"strings"
	"testing"

	"github.com/qubernetes/q8s/pkg/types"
)

func TestUnitID(t *testing.T) {
	t.Parallel()

	hash := types.ContentHash("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	tests := []struct {
		name   string
		prefix string
		index  int
		want   string
	}{
		{"plain", "workload", 0, "workload-0123456789ab-0"},
		{"multi-digit index", "demo", 12, "demo-0123456789ab-12"},
		{"truncated without trailing dash", strings.Repeat("a", 47) + "-b", 1, strings.Repeat("a", 47) + "-0123456789ab-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := unitID(tt.prefix, hash, tt.index)
			if got != tt.want {
				t.Errorf("unitID() = %q, want %q", got, tt.want)
			}
			if len(got) > maxLabelLen {
				t.Errorf("unitID() length %d > %d", len(got), maxLabelLen)
			}
		})
	}
}

func TestUnit_DataAndItems(t *testing.T) {
	t.Parallel()

	u := Unit{
		Paths: []string{"main.py", "pkg/util.py"},
		Files: map[string][]byte{"main.py": []byte("import pkg.util\n"), "pkg/util.py": []byte("X = 1\n")},
		Keys:  map[string]string{"main.py": "main.py", "pkg/util.py": "pkg__util.py"},
	}
	data := u.Data()
	if len(data) != 2 || data["pkg__util.py"] != "X = 1\n" {
		t.Errorf("Data() = %v", data)
	}
	items := u.Items()
	if len(items) != 2 || items[1] != (KeyPath{Key: "pkg__util.py", Path: "pkg/util.py"}) {
		t.Errorf("Items() = %v", items)
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{"quantum-demo", "quantum-demo"},
		{"My_Project v2", "my-project-v2"},
		{"--edge--", "edge"},
		{"___", DefaultName},
		{"", DefaultName},
		{strings.Repeat("x", 62) + "-y", strings.Repeat("x", 62)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Label(tt.name); got != tt.want {
				t.Errorf("Label(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
