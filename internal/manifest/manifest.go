// SPDX-License-Identifier: MPL-2.0

// Package manifest renders delivery units as Kubernetes objects.
//
// Every unit becomes an immutable v1 ConfigMap whose data keys are the
// unit's ConfigMap-safe keys. A job mounts all of them through the single
// projected volume returned by Volume, which maps keys back to relative
// paths. The optional job environment becomes an immutable Opaque Secret.
package manifest

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qubernetes/q8s/internal/jobenv"
	"github.com/qubernetes/q8s/pkg/bundle"
	"github.com/qubernetes/q8s/pkg/workload"
)

const (
	// LabelWorkload carries the workload name on every rendered object.
	LabelWorkload = "qubernetes.dev/workload"
	// LabelUnitIndex carries a ConfigMap's position in the unit sequence.
	LabelUnitIndex = "qubernetes.dev/unit-index"

	AnnotationUnitHash     = "qubernetes.dev/unit-hash"
	AnnotationWorkloadHash = "qubernetes.dev/workload-hash"
	AnnotationEntryScript  = "qubernetes.dev/entry-script"

	// DefaultMountPath is where the workload files appear in the container.
	DefaultMountPath = "/workload"
)

type (
	// ObjectMeta is the subset of Kubernetes object metadata q8s sets.
	ObjectMeta struct {
		Name        string            `yaml:"name" json:"name"`
		Namespace   string            `yaml:"namespace,omitempty" json:"namespace,omitempty"`
		Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
		Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	}

	// ConfigMap is a v1 ConfigMap.
	ConfigMap struct {
		APIVersion string            `yaml:"apiVersion" json:"apiVersion"`
		Kind       string            `yaml:"kind" json:"kind"`
		Metadata   ObjectMeta        `yaml:"metadata" json:"metadata"`
		Immutable  bool              `yaml:"immutable" json:"immutable"`
		Data       map[string]string `yaml:"data" json:"data"`
	}

	// Secret is a v1 Secret with base64 encoded data.
	Secret struct {
		APIVersion string            `yaml:"apiVersion" json:"apiVersion"`
		Kind       string            `yaml:"kind" json:"kind"`
		Metadata   ObjectMeta        `yaml:"metadata" json:"metadata"`
		Immutable  bool              `yaml:"immutable" json:"immutable"`
		Type       string            `yaml:"type" json:"type"`
		Data       map[string]string `yaml:"data" json:"data"`
	}

	// KeyToPath projects a ConfigMap key to a file path.
	KeyToPath struct {
		Key  string `yaml:"key" json:"key"`
		Path string `yaml:"path" json:"path"`
	}

	// ConfigMapProjection selects keys of one ConfigMap.
	ConfigMapProjection struct {
		Name  string      `yaml:"name" json:"name"`
		Items []KeyToPath `yaml:"items" json:"items"`
	}

	// VolumeProjection is one source of a projected volume.
	VolumeProjection struct {
		ConfigMap ConfigMapProjection `yaml:"configMap" json:"configMap"`
	}

	// ProjectedVolumeSource merges several sources into one directory.
	ProjectedVolumeSource struct {
		Sources []VolumeProjection `yaml:"sources" json:"sources"`
	}

	// Volume is a pod volume that merges every unit's ConfigMap.
	Volume struct {
		Name      string                `yaml:"name" json:"name"`
		Projected ProjectedVolumeSource `yaml:"projected" json:"projected"`
	}

	// VolumeMount mounts a Volume into a container.
	VolumeMount struct {
		Name      string `yaml:"name" json:"name"`
		MountPath string `yaml:"mountPath" json:"mountPath"`
		ReadOnly  bool   `yaml:"readOnly" json:"readOnly"`
	}

	// Renderer builds objects for one workload.
	Renderer struct {
		name      string
		namespace string
		mountPath string
	}

	// Option configures a Renderer.
	Option func(*Renderer)
)

// WithName sets the workload name used for labels and the Secret name.
func WithName(name string) Option {
	return func(r *Renderer) { r.name = name }
}

// WithNamespace sets the namespace of every rendered object.
func WithNamespace(namespace string) Option {
	return func(r *Renderer) { r.namespace = namespace }
}

// WithMountPath sets the directory the volumes are mounted under.
func WithMountPath(path string) Option {
	return func(r *Renderer) {
		if path != "" {
			r.mountPath = path
		}
	}
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{name: bundle.DefaultName, mountPath: DefaultMountPath}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the workload label the renderer applies.
func (r *Renderer) Name() string { return bundle.Label(r.name) }

// ConfigMaps returns one ConfigMap per unit, in unit order.
func (r *Renderer) ConfigMaps(w *workload.Workload, units []bundle.Unit) []ConfigMap {
	cms := make([]ConfigMap, len(units))
	for i, u := range units {
		labels := r.labels()
		labels[LabelUnitIndex] = fmt.Sprint(u.Index)
		cms[i] = ConfigMap{
			APIVersion: "v1",
			Kind:       "ConfigMap",
			Metadata: ObjectMeta{
				Name:      u.ID,
				Namespace: r.namespace,
				Labels:    labels,
				Annotations: map[string]string{
					AnnotationUnitHash:     u.ContentHash.String(),
					AnnotationWorkloadHash: w.AggregateHash().String(),
					AnnotationEntryScript:  w.EntryScript(),
				},
			},
			Immutable: true,
			Data:      u.Data(),
		}
	}
	return cms
}

// Secret returns the Secret holding env, or nil when env is nil.
func (r *Renderer) Secret(env *jobenv.Env) *Secret {
	if env == nil {
		return nil
	}
	data := make(map[string]string, env.Len())
	for k, v := range env.Vars() {
		data[k] = base64.StdEncoding.EncodeToString([]byte(v))
	}
	return &Secret{
		APIVersion: "v1",
		Kind:       "Secret",
		Metadata: ObjectMeta{
			Name:      SecretName(r.name),
			Namespace: r.namespace,
			Labels:    r.labels(),
		},
		Immutable: true,
		Type:      "Opaque",
		Data:      data,
	}
}

// Volume returns the volume that places every unit's files at their
// relative paths, and the read-only mount of that volume at the mount path.
func (r *Renderer) Volume(units []bundle.Unit) (Volume, VolumeMount) {
	sources := make([]VolumeProjection, len(units))
	for i, u := range units {
		items := make([]KeyToPath, 0, len(u.Paths))
		for _, kp := range u.Items() {
			items = append(items, KeyToPath{Key: kp.Key, Path: kp.Path})
		}
		sources[i] = VolumeProjection{ConfigMap: ConfigMapProjection{Name: u.ID, Items: items}}
	}
	name := suffixed(r.name, "-files")
	return Volume{Name: name, Projected: ProjectedVolumeSource{Sources: sources}},
		VolumeMount{Name: name, MountPath: r.mountPath, ReadOnly: true}
}

func (r *Renderer) labels() map[string]string {
	return map[string]string{LabelWorkload: bundle.Label(r.name)}
}

// SecretName returns the name of the env Secret for the workload name.
func SecretName(name string) string { return suffixed(name, "-env") }

// suffixed appends suffix to the label of name within the 63 character limit.
func suffixed(name, suffix string) string {
	label := bundle.Label(name)
	if room := 63 - len(suffix); len(label) > room {
		label = strings.TrimRight(label[:room], "-")
	}
	return label + suffix
}

// Encode writes objs to w as a multi-document YAML stream. Nil objects are
// skipped.
func Encode(w io.Writer, objs ...any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		if s, ok := obj.(*Secret); ok && s == nil {
			continue
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("encoding manifest: %w", err)
		}
	}
	return enc.Close()
}

// Render writes the ConfigMaps of units followed by the Secret for env,
// if any, as one YAML stream.
func (r *Renderer) Render(out io.Writer, w *workload.Workload, units []bundle.Unit, env *jobenv.Env) error {
	cms := r.ConfigMaps(w, units)
	objs := make([]any, 0, len(cms)+1)
	for i := range cms {
		objs = append(objs, &cms[i])
	}
	if s := r.Secret(env); s != nil {
		objs = append(objs, s)
	}
	return Encode(out, objs...)
}
