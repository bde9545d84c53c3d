// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the packaging hot paths, used to
// generate PGO profiles:
//   - import extraction, with and without the content-hash cache
//   - closure traversal over a generated project tree
//   - bin-packing and manifest rendering
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
