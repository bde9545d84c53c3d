// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/qubernetes/q8s/internal/config"
	"github.com/qubernetes/q8s/internal/issue"
	"github.com/qubernetes/q8s/internal/jobenv"
	"github.com/qubernetes/q8s/internal/project"
	"github.com/qubernetes/q8s/pkg/bundle"
	"github.com/qubernetes/q8s/pkg/pyimport"
	"github.com/qubernetes/q8s/pkg/resolve"
	"github.com/qubernetes/q8s/pkg/workload"
)

// failureClass maps a sentinel error to its user-facing treatment.
type failureClass struct {
	sentinel    error
	operation   string
	issue       issue.Id
	code        int
	suggestions []string
}

// failureClasses are matched in order; the first sentinel found in the
// error chain wins. More specific causes come before the wrappers that
// carry them.
var failureClasses = []failureClass{
	{workload.ErrEntryNotFound, "build workload", issue.EntryNotFoundId, ExitBuildFailed,
		[]string{"Check the entry script path"}},
	{workload.ErrEntryOutsideRoot, "build workload", issue.EntryNotFoundId, ExitBuildFailed,
		[]string{"Pass a --root that contains the entry script"}},
	{resolve.ErrPathEscape, "build workload", issue.ImportEscapesRootId, ExitBuildFailed,
		[]string{"Move the imported code inside the project root"}},
	{workload.ErrUnresolvedImport, "build workload", issue.UnresolvedImportId, ExitBuildFailed,
		[]string{"Create the missing module or fix the import"}},
	{pyimport.ErrParse, "build workload", issue.SourceParseErrorId, ExitBuildFailed, nil},
	{workload.ErrFileTooLarge, "build workload", issue.SourceTooLargeId, ExitBuildFailed,
		[]string{"Raise resolver.max_file_bytes in the config"}},
	{bundle.ErrOversizedFile, "package workload", issue.OversizedFileId, ExitPackagingFailed,
		[]string{"Raise --max-unit-bytes", "Split the file into smaller modules"}},
	{bundle.ErrTooManyUnits, "package workload", issue.TooManyUnitsId, ExitPackagingFailed,
		[]string{"Raise --max-units", "Raise --max-unit-bytes"}},
	{bundle.ErrKeyCollision, "package workload", issue.DataKeyCollisionId, ExitPackagingFailed,
		[]string{"Rename one of the colliding files"}},
	{bundle.ErrInvalidLimit, "package workload", 0, ExitConfigInvalid, nil},
	{jobenv.ErrInvalidEnvFile, "load job environment", issue.EnvFileInvalidId, ExitConfigInvalid, nil},
	{project.ErrInvalidProjectFile, "locate project", issue.ProjectFileInvalidId, ExitConfigInvalid, nil},
	{config.ErrInvalidConfig, "load configuration", issue.ConfigLoadFailedId, ExitConfigInvalid, nil},
	{config.ErrInvalidLoadOptions, "load configuration", issue.ConfigLoadFailedId, ExitConfigInvalid, nil},
}

// classify converts err into an ExitError around an issue.ActionableError.
// Errors that already are actionable keep their context and gain the
// catalog issue of their class.
func classify(err error, resource string) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	class, matched := classOf(err)

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if ae.Issue == 0 {
			ae.Issue = class.issue
		}
		code := class.code
		if !matched && ae.Issue == issue.ConfigLoadFailedId {
			code = ExitConfigInvalid
		}
		return &ExitError{Code: code, Err: ae}
	}

	return &ExitError{
		Code: class.code,
		Err: issue.NewErrorContext().
			WithOperation(class.operation).
			WithResource(resource).
			WithSuggestions(class.suggestions...).
			WithIssue(class.issue).
			Wrap(err).
			Build(),
	}
}

// classOf returns the first failure class whose sentinel is in err's chain.
func classOf(err error) (failureClass, bool) {
	for _, c := range failureClasses {
		if errors.Is(err, c.sentinel) {
			return c, true
		}
	}
	return failureClass{operation: "run q8s", code: 1}, false
}

// renderFailure prints the catalog guidance of err to w. The error message
// itself is printed by fang.
func renderFailure(w io.Writer, err *ExitError, scheme config.ColorScheme, verbose bool) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	if verbose || ae.HasSuggestions() {
		fmt.Fprintln(w, WarningStyle.Render(ae.Format(verbose)))
	}
	guidance, renderErr := ae.Guidance(glamourStyle(scheme))
	if renderErr != nil || guidance == "" {
		return
	}
	fmt.Fprint(w, guidance)
}

// glamourStyle maps a color scheme to a glamour standard style.
func glamourStyle(scheme config.ColorScheme) string {
	switch scheme {
	case config.ColorSchemeDark, config.ColorSchemeLight:
		return scheme.String()
	default:
		if lipgloss.HasDarkBackground() {
			return "dark"
		}
		return "light"
	}
}

// runE adapts a command body to cobra. Failures are classified, their
// guidance is rendered to the command's stderr, and the ExitError is
// returned for Execute to turn into the process exit code.
func runE(a *App, flags *rootFlags, resource func(args []string) string, body func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := body(cmd, args)
		if err == nil {
			return nil
		}
		res := ""
		if resource != nil {
			res = resource(args)
		}
		exitErr := classify(err, res)
		renderFailure(a.stderr, exitErr, a.colorScheme, flags.verbose)
		return exitErr
	}
}

// firstArg is the resource of commands whose only argument is the entry.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
