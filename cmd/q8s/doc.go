// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the q8s command line interface.
//
// The commands are thin adapters: they load configuration, locate the
// project, and delegate to pkg/workload, pkg/bundle and internal/manifest.
// Failures are converted into issue.ActionableError values whose catalog
// guidance is rendered to stderr.
package cmd
