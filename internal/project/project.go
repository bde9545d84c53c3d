// SPDX-License-Identifier: MPL-2.0

// Package project locates the root of a q8s project and reads its name.
//
// A project root is the nearest directory, starting at the entry script's
// directory and walking up, that holds a Q8Sproject file (YAML) or a
// pyproject.toml. A Q8Sproject wins over a pyproject.toml in the same
// directory. Without either, the entry script's directory is the root.
package project

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/qubernetes/q8s/pkg/fspath"
	"github.com/qubernetes/q8s/pkg/types"
)

const (
	// Q8SFileName is the q8s project file.
	Q8SFileName = "Q8Sproject"
	// PyProjectFileName is the Python packaging metadata file.
	PyProjectFileName = "pyproject.toml"
)

// SourceKind tells where a project's name came from.
type SourceKind string

const (
	SourceQ8S       SourceKind = "q8s"
	SourcePyProject SourceKind = "pyproject"
	SourceDirectory SourceKind = "directory"
)

// ErrInvalidProjectFile is the sentinel error wrapped by InvalidProjectFileError.
var ErrInvalidProjectFile = errors.New("invalid project file")

type (
	// Project is a located project root.
	Project struct {
		// Root is the canonical project root.
		Root types.FilesystemPath
		// Name is the declared project name, or the root directory name.
		Name string
		// Kind is the source of Name.
		Kind SourceKind
		// File is the project file that was read; empty for SourceDirectory.
		File types.FilesystemPath
		// Q8S holds the parsed Q8Sproject when Kind is SourceQ8S.
		Q8S *Q8SProject
	}

	// Q8SProject models the Q8Sproject file.
	Q8SProject struct {
		Name       string       `yaml:"name"`
		PythonEnv  PythonEnv    `yaml:"python_env"`
		Targets    Targets      `yaml:"targets"`
		Docker     DockerConfig `yaml:"docker"`
		Kubeconfig string       `yaml:"kubeconfig"`
	}

	// PythonEnv lists package-index requirements installed in the image.
	PythonEnv struct {
		Dependencies []string `yaml:"dependencies"`
	}

	// Target is an execution target with its own extra requirements.
	Target struct {
		PythonEnv PythonEnv `yaml:"python_env"`
	}

	// Targets are the optional execution targets of a project.
	Targets struct {
		CPU *Target `yaml:"cpu,omitempty"`
		GPU *Target `yaml:"gpu,omitempty"`
		QPU *Target `yaml:"qpu,omitempty"`
	}

	// DockerConfig names the registry account images are pushed to.
	DockerConfig struct {
		Username string `yaml:"username"`
	}

	// pyProject is the subset of pyproject.toml that names a project.
	pyProject struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}

	// InvalidProjectFileError reports a project file that cannot be parsed
	// or declares no name.
	InvalidProjectFileError struct {
		Path types.FilesystemPath
		Err  error
	}
)

// Error implements the error interface.
func (e *InvalidProjectFileError) Error() string {
	return fmt.Sprintf("invalid project file %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrInvalidProjectFile and the cause.
func (e *InvalidProjectFileError) Unwrap() []error { return []error{ErrInvalidProjectFile, e.Err} }

// Names returns the names of the configured targets in cpu, gpu, qpu order.
func (t Targets) Names() []string {
	var names []string
	if t.CPU != nil {
		names = append(names, "cpu")
	}
	if t.GPU != nil {
		names = append(names, "gpu")
	}
	if t.QPU != nil {
		names = append(names, "qpu")
	}
	return names
}

// Find locates the project that contains entry.
func Find(entry types.FilesystemPath) (*Project, error) {
	canonical, err := fspath.Canonical(entry)
	if err != nil {
		return nil, fmt.Errorf("locating project for %s: %w", entry, err)
	}
	start := fspath.Dir(canonical)

	for dir := start; ; {
		if p, err := Load(dir); err != nil || p != nil {
			return p, err
		}
		parent := fspath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return &Project{
		Root: start,
		Name: fspath.Base(start),
		Kind: SourceDirectory,
	}, nil
}

// Load reads the project file of dir. It returns nil and no error when dir
// holds no project file.
func Load(dir types.FilesystemPath) (*Project, error) {
	q8sPath := fspath.JoinStr(dir, Q8SFileName)
	if data, err := os.ReadFile(q8sPath.String()); err == nil {
		return loadQ8S(dir, q8sPath, data)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, &InvalidProjectFileError{Path: q8sPath, Err: err}
	}

	pyPath := fspath.JoinStr(dir, PyProjectFileName)
	if data, err := os.ReadFile(pyPath.String()); err == nil {
		return loadPyProject(dir, pyPath, data)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, &InvalidProjectFileError{Path: pyPath, Err: err}
	}

	return nil, nil
}

func loadQ8S(dir, path types.FilesystemPath, data []byte) (*Project, error) {
	var cfg Q8SProject
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &InvalidProjectFileError{Path: path, Err: err}
	}
	if cfg.Name == "" {
		return nil, &InvalidProjectFileError{Path: path, Err: errors.New("missing name")}
	}
	return &Project{Root: dir, Name: cfg.Name, Kind: SourceQ8S, File: path, Q8S: &cfg}, nil
}

func loadPyProject(dir, path types.FilesystemPath, data []byte) (*Project, error) {
	var py pyProject
	if err := toml.Unmarshal(data, &py); err != nil {
		return nil, &InvalidProjectFileError{Path: path, Err: err}
	}
	name := py.Project.Name
	if name == "" {
		name = py.Tool.Poetry.Name
	}
	if name == "" {
		// A pyproject.toml that only configures tools still marks the root.
		name = fspath.Base(dir)
	}
	return &Project{Root: dir, Name: name, Kind: SourcePyProject, File: path}, nil
}
