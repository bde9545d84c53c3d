// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces ConfigDir's platform lookup when set. Tests use
// it because os.UserConfigDir reads HOME, XDG_CONFIG_HOME or AppData
// depending on the platform.
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride makes ConfigDir return dir.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
