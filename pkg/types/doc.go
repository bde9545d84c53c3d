// SPDX-License-Identifier: MPL-2.0

// Package types defines small validated value types shared across packages:
// filesystem paths and content digests.
package types
