// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Virtual interprets driver and worker scripts in-process. A worker started
// as "bash <script>" or "sh <script>" runs in a nested interpreter; any other
// command is executed from the host PATH.
type Virtual struct{}

// NewVirtual creates a virtual launcher.
func NewVirtual() *Virtual {
	return &Virtual{}
}

// Name returns the launcher name.
func (v *Virtual) Name() string { return string(TypeVirtual) }

// Available always returns true; the interpreter is built in.
func (v *Virtual) Available() bool { return true }

// Launch interprets the driver and waits for it and every background worker.
func (v *Virtual) Launch(req *Request) *Result {
	ctx, cancel, err := prepare(req)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}
	defer cancel()

	prog, err := parseFile(req.Driver)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}

	runner, err := interp.New(
		interp.Dir(req.Dir),
		interp.Env(expand.ListEnviron(append(os.Environ(), req.Env...)...)),
		interp.StdIO(nil, req.Stdout, req.Stderr),
		interp.ExecHandlers(v.execHandler),
	)
	if err != nil {
		return &Result{ExitCode: 1, Error: fmt.Errorf("create interpreter: %w", err)}
	}

	err = runner.Run(ctx, prog)
	code := 0
	if status, ok := interp.IsExitStatus(err); ok {
		code = int(status)
	} else if err != nil {
		code = 1
	}
	if res := timeoutResult(ctx, req, code); res != nil {
		return res
	}
	if err != nil {
		if _, ok := interp.IsExitStatus(err); ok {
			return &Result{ExitCode: code}
		}
		return &Result{ExitCode: code, Error: fmt.Errorf("interpret driver: %w", err)}
	}
	return &Result{}
}

// execHandler runs shell scripts in a nested interpreter sharing the
// caller's directory, environment and standard streams.
func (v *Virtual) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		script, ok := shellScriptArg(args)
		if !ok {
			return next(ctx, args)
		}
		hc := interp.HandlerCtx(ctx)
		if !filepath.IsAbs(script) {
			script = filepath.Join(hc.Dir, script)
		}
		prog, err := parseFile(script)
		if err != nil {
			fmt.Fprintln(hc.Stderr, err)
			return interp.NewExitStatus(2)
		}
		nested, err := interp.New(
			interp.Dir(hc.Dir),
			interp.Env(hc.Env),
			interp.StdIO(hc.Stdin, hc.Stdout, hc.Stderr),
			interp.ExecHandlers(v.execHandler),
			interp.Params(append([]string{"--"}, args[2:]...)...),
		)
		if err != nil {
			return err
		}
		err = nested.Run(ctx, prog)
		if _, ok := interp.IsExitStatus(err); ok || err == nil {
			return err
		}
		fmt.Fprintln(hc.Stderr, err)
		return interp.NewExitStatus(1)
	}
}

// shellScriptArg returns the script path of a "bash <script>" or
// "sh <script>" invocation.
func shellScriptArg(args []string) (string, bool) {
	if len(args) < 2 {
		return "", false
	}
	switch filepath.Base(args[0]) {
	case "bash", "sh":
	default:
		return "", false
	}
	if strings.HasPrefix(args[1], "-") {
		return "", false
	}
	return args[1], true
}

func parseFile(path string) (*syntax.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	prog, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return prog, nil
}
