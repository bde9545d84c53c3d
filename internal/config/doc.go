// SPDX-License-Identifier: MPL-2.0

// Package config handles q8s configuration using Viper with CUE as the file format.
//
// Configuration is loaded from config.cue in the user configuration directory
// ($XDG_CONFIG_HOME/q8s on Linux, ~/Library/Application Support/q8s on macOS,
// %AppData%\q8s on Windows), falling back to ./config.cue, or from an
// explicit file. Files are validated against the embedded schema
// (config_schema.cue) before being merged over the defaults. Environment
// variables prefixed with Q8S_ override file values, with "." in the key
// replaced by "_" (Q8S_PACKAGING_MAX_UNITS).
package config
