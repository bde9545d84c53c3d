// SPDX-License-Identifier: MPL-2.0

// Package bundle splits a workload into delivery units, each small enough
// to be stored as one Kubernetes ConfigMap.
//
// Files are placed greedily in the workload's canonical order and are never
// split across units. Every unit carries the relative path, data key and
// content of its files plus a content hash over them, so identical inputs
// always yield byte-identical units.
package bundle
