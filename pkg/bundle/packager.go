// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qubernetes/q8s/pkg/types"
	"github.com/qubernetes/q8s/pkg/workload"
)

const (
	// DefaultName prefixes unit IDs when no name is configured.
	DefaultName = "workload"

	// maxLabelLen is the DNS-1123 label limit that ConfigMap names obey.
	maxLabelLen = 63
	// idHashLen is the number of workload hash characters in a unit ID.
	idHashLen = 12
)

// invalidLabelChars matches runs of characters not allowed in a DNS-1123 label.
var invalidLabelChars = regexp.MustCompile(`[^a-z0-9-]+`)

type (
	// Packager partitions workloads into units.
	Packager struct {
		name   string
		dedupe bool
	}

	// Option configures a Packager.
	Option func(*Packager)

	// pending is a unit under construction.
	pending struct {
		paths  []string
		files  map[string][]byte
		keys   map[string]string
		hashes map[string]types.ContentHash
		owners map[string]string
		byHash map[types.ContentHash]string
		size   int64
	}
)

// WithName sets the unit ID prefix. It is lowercased and reduced to
// characters valid in a DNS-1123 label.
func WithName(name string) Option {
	return func(p *Packager) { p.name = name }
}

// WithContentDedup lets files with identical content in the same unit share
// one data key. A shared file costs no unit bytes.
func WithContentDedup() Option {
	return func(p *Packager) { p.dedupe = true }
}

// New creates a Packager.
func New(opts ...Option) *Packager {
	p := &Packager{name: DefaultName}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Package partitions w with a default Packager.
func Package(w *workload.Workload, maxUnitBytes int64, maxUnits int) ([]Unit, error) {
	return New().Package(w, maxUnitBytes, maxUnits)
}

// Package places the files of w, in order, into units of at most
// maxUnitBytes content bytes, starting a new unit when the next file does
// not fit. It fails if a single file exceeds maxUnitBytes or more than
// maxUnits units are needed.
func (p *Packager) Package(w *workload.Workload, maxUnitBytes int64, maxUnits int) ([]Unit, error) {
	units, err := p.pack(w, maxUnitBytes, maxUnits)
	if err != nil {
		return nil, &PackagingError{Workload: w.AggregateHash(), Err: err}
	}
	return units, nil
}

func (p *Packager) pack(w *workload.Workload, maxUnitBytes int64, maxUnits int) ([]Unit, error) {
	if maxUnitBytes <= 0 {
		return nil, fmt.Errorf("%w: max unit bytes must be positive, got %d", ErrInvalidLimit, maxUnitBytes)
	}
	if maxUnits <= 0 {
		return nil, fmt.Errorf("%w: max units must be positive, got %d", ErrInvalidLimit, maxUnits)
	}

	if err := checkKeys(w); err != nil {
		return nil, err
	}

	var done []*pending
	cur := newPending()
	for _, f := range w.Files() {
		if f.Size() > maxUnitBytes {
			return nil, &OversizedFileError{Path: f.RelPath(), Size: f.Size(), Limit: maxUnitBytes}
		}
		if len(cur.paths) > 0 && cur.size+cur.cost(f, p.dedupe) > maxUnitBytes {
			done = append(done, cur)
			cur = newPending()
		}
		if err := cur.add(f, p.dedupe); err != nil {
			return nil, err
		}
	}
	if len(cur.paths) > 0 {
		done = append(done, cur)
	}
	if len(done) > maxUnits {
		return nil, &TooManyUnitsError{Required: len(done), Max: maxUnits}
	}

	prefix := p.label()
	workloadHash := w.AggregateHash()
	units := make([]Unit, len(done))
	for i, u := range done {
		hash := unitHash(u.paths, u.keys, u.hashes)
		units[i] = Unit{
			ID:          unitID(prefix, workloadHash, i),
			Index:       i,
			Paths:       u.paths,
			Files:       u.files,
			Keys:        u.keys,
			ContentHash: hash,
			Size:        u.size,
		}
	}
	return units, nil
}

// checkKeys rejects two paths of w that map to the same data key with
// different content. The check covers the whole workload so the outcome
// does not depend on where the limits split the units.
func checkKeys(w *workload.Workload) error {
	owners := make(map[string]*workload.SourceFile)
	for _, f := range w.Files() {
		key := workload.DataKey(f.RelPath())
		owner, taken := owners[key]
		if !taken {
			owners[key] = f
			continue
		}
		if owner.Hash() != f.Hash() {
			return &KeyCollisionError{Key: key, Paths: [2]string{owner.RelPath(), f.RelPath()}}
		}
	}
	return nil
}

func newPending() *pending {
	return &pending{
		files:  make(map[string][]byte),
		keys:   make(map[string]string),
		hashes: make(map[string]types.ContentHash),
		owners: make(map[string]string),
		byHash: make(map[types.ContentHash]string),
	}
}

// place returns the data key f would be stored under and whether that key
// already holds the same content.
func (u *pending) place(f *workload.SourceFile, dedupe bool) (string, bool, error) {
	rel := f.RelPath()
	if dedupe {
		if key, ok := u.byHash[f.Hash()]; ok {
			return key, true, nil
		}
	}
	key := workload.DataKey(rel)
	if owner, taken := u.owners[key]; taken {
		if u.hashes[owner] != f.Hash() {
			return "", false, &KeyCollisionError{Key: key, Paths: [2]string{owner, rel}}
		}
		return key, true, nil
	}
	return key, false, nil
}

// cost is the number of bytes f adds to u.
func (u *pending) cost(f *workload.SourceFile, dedupe bool) int64 {
	if _, shared, err := u.place(f, dedupe); err == nil && shared {
		return 0
	}
	return f.Size()
}

func (u *pending) add(f *workload.SourceFile, dedupe bool) error {
	key, shared, err := u.place(f, dedupe)
	if err != nil {
		return err
	}
	rel := f.RelPath()
	u.paths = append(u.paths, rel)
	u.files[rel] = f.Content()
	u.keys[rel] = key
	u.hashes[rel] = f.Hash()
	if !shared {
		u.owners[key] = rel
		u.byHash[f.Hash()] = key
		u.size += f.Size()
	}
	return nil
}

// label returns the configured name as a unit ID prefix.
func (p *Packager) label() string { return Label(p.name) }

// Label lowercases name and reduces it to a DNS-1123 label of at most 63
// characters. It falls back to DefaultName when nothing valid remains.
func Label(name string) string {
	name = invalidLabelChars.ReplaceAllString(strings.ToLower(name), "-")
	name = strings.Trim(name, "-")
	if len(name) > maxLabelLen {
		name = strings.TrimRight(name[:maxLabelLen], "-")
	}
	if name == "" {
		name = DefaultName
	}
	return name
}

// unitID names unit index of the workload with aggregate hash hash, so
// units of different workloads never share a name.
func unitID(prefix string, hash types.ContentHash, index int) string {
	suffix := "-" + hash.Short(idHashLen) + "-" + strconv.Itoa(index)
	if room := maxLabelLen - len(suffix); len(prefix) > room {
		prefix = strings.TrimRight(prefix[:room], "-")
	}
	return prefix + suffix
}
