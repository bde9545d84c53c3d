// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation suggestions. Errors may link an entry of the issue catalog,
// whose Markdown guidance is rendered for the terminal with glamour.
package issue
