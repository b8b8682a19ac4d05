// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigMissingId Id = iota + 1
	ConfigFormatId
	MissingRequiredModuleId
	PrerequisiteOrderId
	ModuleBuildFailureId
	MarkerIOFailureId
	ScriptExecutionFailureId
	LauncherNotAvailableId
	ModuleIncompleteId
	NoExecutableWorkId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	name     string      // stable name accepted by 'modflow explain'
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configMissingIssue = &Issue{
		id:   ConfigMissingId,
		name: "config-missing",
		mdMsg: `
# Configuration is missing!

modflow could not find the pipeline configuration, or a required setting is absent.
Nothing was written to the output root.

## Lookup order:
1. The file passed with '--config'
2. 'pipeline.cue' in the current directory

## Required settings:
- 'pipeline.input_dir' and 'pipeline.output_root'
- 'script.permissions', 'script.batch_size' and 'script.num_threads'
- at least one entry in 'modules'

## Example pipeline.cue:
~~~cue
pipeline: {
	input_dir:   "raw"
	output_root: "out"
}

script: {
	permissions: "770"
	batch_size:  10
	num_threads: 4
}

modules: [
	{type: "command", id: "Trim", command: "trimmer {input} -o {output_dir}"},
	{type: "count-parser"},
]
~~~

Any 'pipeline.*' or 'script.*' key can also be set from the environment,
e.g. 'MODFLOW_SCRIPT_BATCH_SIZE=20'.`,
	}

	configFormatIssue = &Issue{
		id:   ConfigFormatId,
		name: "config-format",
		mdMsg: `
# Configuration value is malformed!

A setting is present but does not have the expected shape. The error names the
field, e.g. 'modules[1].script.batch_size'.

## Rules:
- 'permissions' is an octal string such as '"770"' or '"0755"'
- 'batch_size' and 'num_threads' are whole numbers greater than zero
- 'timeout' is optional; when set it is a positive number of minutes
- 'launcher' is '"native"' or '"virtual"'

## Things you can try:
~~~
$ modflow validate
$ modflow config show
~~~`,
	}

	missingRequiredModuleIssue = &Issue{
		id:   MissingRequiredModuleId,
		name: "missing-required-module",
		mdMsg: `
# A required module is not configured!

A module depends on another module that is absent from the 'modules' list, for
example a 'report' module without a 'count-parser' module. The pipeline refuses
to start before any module runs.

## Things you can try:
- Add the missing module type before the module that needs it
- Remove the module that requires it`,
	}

	prerequisiteOrderIssue = &Issue{
		id:   PrerequisiteOrderId,
		name: "prerequisite-order",
		mdMsg: `
# Modules are configured in the wrong order!

Modules run strictly in the order they are listed. A module's prerequisites
must be listed before it.

## Things you can try:
- Move the prerequisite module above the module that depends on it
- Run 'modflow validate' to check the new order`,
	}

	moduleBuildFailureIssue = &Issue{
		id:   ModuleBuildFailureId,
		name: "module-build-failure",
		mdMsg: `
# A module failed to build its scripts!

The module could not turn its inputs into worker scripts. No scripts were left
behind for it, and it remains in the 'started-incomplete' state. Modules that
completed before it are untouched.

## Things you can try:
- Check the module's 'command', 'params' and 'script_file' settings
- Check that the previous module produced output files
- Fix the problem and run 'modflow run' again; complete modules are skipped`,
	}

	markerIOFailureIssue = &Issue{
		id:   MarkerIOFailureId,
		name: "marker-io-failure",
		mdMsg: `
# Could not record module state!

modflow tracks each module with 'STARTED' and 'COMPLETE' marker files in the
module directory. A marker could not be written or verified, so resuming safely
is no longer possible and the whole pipeline stopped.

## Things you can try:
- Check free space and permissions of 'pipeline.output_root'
- Check the output root is not on a read-only or flaky network mount
- Run 'modflow run' again once the filesystem is healthy`,
	}

	scriptExecutionFailureIssue = &Issue{
		id:   ScriptExecutionFailureId,
		name: "script-execution-failure",
		mdMsg: `
# Worker scripts reported failures!

At least one worker script exited with a non-zero status. Each failure is kept
in a '<worker>.failed' file in the module's 'script/' directory, holding the
exit status and the worker's error output. The module was not marked complete.

## Things you can try:
~~~
$ modflow errors <module>
~~~

- Fix the cause and run 'modflow run' again; the module is re-run from scratch`,
	}

	launcherNotAvailableIssue = &Issue{
		id:   LauncherNotAvailableId,
		name: "launcher-not-available",
		mdMsg: `
# Launcher not available!

The configured launcher cannot run driver scripts on this host.

## Things you can try:
- The 'native' launcher needs 'bash' in your PATH
- Switch to the built-in interpreter:
~~~cue
pipeline: launcher: "virtual"
~~~`,
	}

	moduleIncompleteIssue = &Issue{
		id:   ModuleIncompleteId,
		name: "module-incomplete",
		mdMsg: `
# A module did not complete!

A module has a 'STARTED' marker but no 'COMPLETE' marker. Either a previous run
was interrupted or it failed. On the next 'modflow run' the module's 'script/'
and 'output/' directories are cleared and it runs again from scratch.

## Things you can try:
~~~
$ modflow status
$ modflow errors <module>
~~~`,
	}

	noExecutableWorkIssue = &Issue{
		id:   NoExecutableWorkId,
		name: "no-executable-work",
		mdMsg: `
# The module produced no executable work!

No driver script was generated for the module, usually because it had no input
files. This is not an error: the module is marked complete without running.

## Things you can try:
- Check 'pipeline.input_dir', 'pipeline.input_patterns' and 'pipeline.input_ignore_files'
- Check the previous module's 'output/' directory`,
	}

	issues = map[Id]*Issue{
		configMissingIssue.Id():          configMissingIssue,
		configFormatIssue.Id():           configFormatIssue,
		missingRequiredModuleIssue.Id():  missingRequiredModuleIssue,
		prerequisiteOrderIssue.Id():      prerequisiteOrderIssue,
		moduleBuildFailureIssue.Id():     moduleBuildFailureIssue,
		markerIOFailureIssue.Id():        markerIOFailureIssue,
		scriptExecutionFailureIssue.Id(): scriptExecutionFailureIssue,
		launcherNotAvailableIssue.Id():   launcherNotAvailableIssue,
		moduleIncompleteIssue.Id():       moduleIncompleteIssue,
		noExecutableWorkIssue.Id():       noExecutableWorkIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}

// ByName returns the issue with the given name, or nil.
func ByName(name string) *Issue {
	for _, i := range issues {
		if i.name == name {
			return i
		}
	}
	return nil
}
