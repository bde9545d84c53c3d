// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// MaxConfigMapBytes is the data limit of a single Kubernetes ConfigMap.
	MaxConfigMapBytes int64 = 1 << 20
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidPackagingConfig is the sentinel error wrapped by InvalidPackagingConfigError.
	ErrInvalidPackagingConfig = errors.New("invalid packaging config")
	// ErrInvalidResolverConfig is the sentinel error wrapped by InvalidResolverConfigError.
	ErrInvalidResolverConfig = errors.New("invalid resolver config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	namePrefixPattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	extensionPattern  = regexp.MustCompile(`^\.[A-Za-z0-9_]+$`)
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidPackagingConfigError collects field errors of a PackagingConfig.
	InvalidPackagingConfigError struct {
		FieldErrors []error
	}

	// InvalidResolverConfigError collects field errors of a ResolverConfig.
	InvalidResolverConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Packaging controls how workloads are split into delivery units.
		Packaging PackagingConfig `json:"packaging" mapstructure:"packaging"`
		// Resolver controls how imports map to files.
		Resolver ResolverConfig `json:"resolver" mapstructure:"resolver"`
		// EnvFile is the dotenv file, relative to the project root, whose
		// variables become the job environment Secret.
		EnvFile string `json:"env_file" mapstructure:"env_file"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// PackagingConfig bounds delivery units.
	PackagingConfig struct {
		// MaxUnitBytes caps the content bytes of one unit.
		MaxUnitBytes int64 `json:"max_unit_bytes" mapstructure:"max_unit_bytes"`
		// MaxUnits caps the number of units per workload.
		MaxUnits int `json:"max_units" mapstructure:"max_units"`
		// DedupeContent shares one data key between identical files in a unit.
		DedupeContent bool `json:"dedupe_content" mapstructure:"dedupe_content"`
		// NamePrefix overrides the project name in unit IDs.
		NamePrefix string `json:"name_prefix,omitempty" mapstructure:"name_prefix"`
	}

	// ResolverConfig configures import resolution.
	ResolverConfig struct {
		Extension    string `json:"extension" mapstructure:"extension"`
		PackageEntry string `json:"package_entry" mapstructure:"package_entry"`
		MaxFileBytes int64  `json:"max_file_bytes" mapstructure:"max_file_bytes"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme of rendered guidance
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Packaging: PackagingConfig{
			MaxUnitBytes: 1000000,
			MaxUnits:     16,
		},
		Resolver: ResolverConfig{
			Extension:    ".py",
			PackageEntry: "__init__.py",
			MaxFileBytes: 8 << 20,
		},
		EnvFile: ".env.q8s",
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// Validate returns an error if the ColorScheme is not one of the defined schemes.
func (cs ColorScheme) Validate() error {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: cs}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Validate checks the unit limits and the name prefix.
func (c PackagingConfig) Validate() error {
	var errs []error
	if c.MaxUnitBytes <= 0 || c.MaxUnitBytes > MaxConfigMapBytes {
		errs = append(errs, fmt.Errorf("max_unit_bytes %d must be in 1..%d", c.MaxUnitBytes, MaxConfigMapBytes))
	}
	if c.MaxUnits <= 0 {
		errs = append(errs, fmt.Errorf("max_units %d must be positive", c.MaxUnits))
	}
	if c.NamePrefix != "" && !namePrefixPattern.MatchString(c.NamePrefix) {
		errs = append(errs, fmt.Errorf("name_prefix %q is not a DNS-1123 label", c.NamePrefix))
	}
	if len(errs) > 0 {
		return &InvalidPackagingConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidPackagingConfigError.
func (e *InvalidPackagingConfigError) Error() string {
	return fmt.Sprintf("invalid packaging config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidPackagingConfig for errors.Is() compatibility.
func (e *InvalidPackagingConfigError) Unwrap() error { return ErrInvalidPackagingConfig }

// Validate checks the source extension, package entry and read cap.
func (c ResolverConfig) Validate() error {
	var errs []error
	if !extensionPattern.MatchString(c.Extension) {
		errs = append(errs, fmt.Errorf("extension %q must be a dot followed by letters, digits or underscores", c.Extension))
	}
	if strings.TrimSpace(c.PackageEntry) == "" || strings.ContainsAny(c.PackageEntry, `/\`) {
		errs = append(errs, fmt.Errorf("package_entry %q must be a plain file name", c.PackageEntry))
	}
	if c.MaxFileBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_file_bytes %d must be positive", c.MaxFileBytes))
	}
	if len(errs) > 0 {
		return &InvalidResolverConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidResolverConfigError.
func (e *InvalidResolverConfigError) Error() string {
	return fmt.Sprintf("invalid resolver config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidResolverConfig for errors.Is() compatibility.
func (e *InvalidResolverConfigError) Unwrap() error { return ErrInvalidResolverConfig }

// Validate returns an error if any section of the Config is invalid.
func (c Config) Validate() error {
	var errs []error
	if err := c.Packaging.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Resolver.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.EnvFile) == "" {
		errs = append(errs, errors.New("env_file must not be empty"))
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig and the field errors, so errors.Is matches
// the sentinel of any failing section.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
