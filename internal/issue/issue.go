// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a known failure class.
type Id int

const (
	EntryNotFoundId Id = iota + 1
	UnresolvedImportId
	ImportEscapesRootId
	SourceParseErrorId
	SourceTooLargeId
	OversizedFileId
	TooManyUnitsId
	DataKeyCollisionId
	ConfigLoadFailedId
	EnvFileInvalidId
	ProjectFileInvalidId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown. stylePath is a glamour
// style name ("auto", "dark", "light", "notty") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	entryNotFoundIssue = &Issue{
		id: EntryNotFoundId,
		mdMsg: `
# Entry script not found

The entry file could not be opened, or it is not inside the project root.

## Things you can try:
- Check the path you passed to ` + "`q8s package`" + `
- Pass the project root explicitly:
~~~
$ q8s package --root . src/main.py
~~~`,
	}

	unresolvedImportIssue = &Issue{
		id: UnresolvedImportId,
		mdMsg: `
# A local import could not be resolved

The import names a package or module that exists in your project, but no
file matches it. q8s looks for, in order:

1. the exact path
2. the path with the ` + "`.py`" + ` extension
3. a package directory containing ` + "`__init__.py`" + `

## Things you can try:
- Check the spelling of the module name
- Add the missing ` + "`__init__.py`" + ` or module file
- If the import is guarded by ` + "`try`" + `, make sure the fallback module exists locally`,
		extLinks: []HttpLink{"https://docs.python.org/3/reference/import.html"},
	}

	importEscapesRootIssue = &Issue{
		id: ImportEscapesRootId,
		mdMsg: `
# Import leaves the project root

A relative import, or a symlink it passes through, points outside the
project root. Files outside the root are never shipped with a workload.

## Things you can try:
- Move the shared code inside the project
- Pass a higher directory with ` + "`--root`" + ``,
	}

	sourceParseErrorIssue = &Issue{
		id: SourceParseErrorId,
		mdMsg: `
# Source file could not be scanned

A file has an unterminated string, an unbalanced bracket or a malformed
import statement, so its imports cannot be determined.

## Things you can try:
- Run the file locally first:
~~~
$ python -m py_compile path/to/file.py
~~~`,
	}

	sourceTooLargeIssue = &Issue{
		id: SourceTooLargeId,
		mdMsg: `
# Source file is too large

A file in the closure exceeds the read limit (` + "`resolver.max_file_bytes`" + `).

## Things you can try:
- Keep data files out of the import graph and load them at runtime
- Raise ` + "`resolver.max_file_bytes`" + ` in your config`,
	}

	oversizedFileIssue = &Issue{
		id: OversizedFileId,
		mdMsg: `
# File does not fit in a delivery unit

Files are never split between ConfigMaps, and this one is larger than
` + "`packaging.max_unit_bytes`" + `.

## Things you can try:
- Split the module into smaller modules
- Raise ` + "`--max-unit-bytes`" + ` (at most 1048576, the ConfigMap limit)`,
	}

	tooManyUnitsIssue = &Issue{
		id: TooManyUnitsId,
		mdMsg: `
# Workload needs too many delivery units

## Things you can try:
- Raise ` + "`--max-units`" + `
- Enable content deduplication with ` + "`--dedupe`" + `
- Remove unused imports to shrink the closure:
~~~
$ q8s closure main.py
~~~`,
	}

	dataKeyCollisionIssue = &Issue{
		id: DataKeyCollisionId,
		mdMsg: `
# Two files map to the same data key

ConfigMap keys cannot contain "/", so ` + "`a/b.py`" + ` is stored as
` + "`a__b.py`" + `. A file literally named ` + "`a__b.py`" + ` collides with it.

## Things you can try:
- Rename one of the files`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

## Things you can try:
- Print the effective configuration:
~~~
$ q8s config show
~~~
- Write a fresh default file:
~~~
$ q8s config init
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	envFileInvalidIssue = &Issue{
		id: EnvFileInvalidId,
		mdMsg: `
# Environment file is invalid

The job environment file (` + "`.env.q8s`" + ` by default) uses dotenv syntax:
~~~
API_URL=https://example.com
TOKEN="quoted value"
~~~`,
	}

	projectFileInvalidIssue = &Issue{
		id: ProjectFileInvalidId,
		mdMsg: `
# Project file is invalid

A ` + "`Q8Sproject`" + ` (YAML) or ` + "`pyproject.toml`" + ` was found but could
not be parsed.

## Example Q8Sproject:
~~~yaml
name: my-job
~~~`,
	}

	issues = map[Id]*Issue{
		entryNotFoundIssue.Id():      entryNotFoundIssue,
		unresolvedImportIssue.Id():   unresolvedImportIssue,
		importEscapesRootIssue.Id():  importEscapesRootIssue,
		sourceParseErrorIssue.Id():   sourceParseErrorIssue,
		sourceTooLargeIssue.Id():     sourceTooLargeIssue,
		oversizedFileIssue.Id():      oversizedFileIssue,
		tooManyUnitsIssue.Id():       tooManyUnitsIssue,
		dataKeyCollisionIssue.Id():   dataKeyCollisionIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		envFileInvalidIssue.Id():     envFileInvalidIssue,
		projectFileInvalidIssue.Id(): projectFileInvalidIssue,
	}
)

// Values returns every known issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
