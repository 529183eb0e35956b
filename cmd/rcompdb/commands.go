package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/maruel/subcommands"
	"rcompdb/internal/common"
	"rcompdb/internal/daemon"
)

const argsUsage = `print compiler arguments for translation units.

 $ rcompdb args [-lines] <file>...

Arguments of each file are printed as one shell-quoted line,
or one argument per line with -lines (only for a single file).
A file that is neither in src/ of the active package nor an Rcpp source gets an empty line.
`

func cmdArgs() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "args [-lines] <file>...",
		ShortDesc: "print compiler arguments for files",
		LongDesc:  argsUsage,
		CommandRun: func() subcommands.CommandRun {
			c := &argsRun{}
			c.clientFlags.register(&c.Flags)
			c.Flags.BoolVar(&c.lines, "lines", false, "print one argument per line")
			return c
		},
	}
}

type argsRun struct {
	subcommands.CommandRunBase
	clientFlags
	lines bool
}

func (c *argsRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if len(args) == 0 || (c.lines && len(args) > 1) {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), "expected one file with -lines, or any number of files")
		return 2
	}
	client, err := c.makeClient()
	if err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %v\n", a.GetName(), err)
		return 1
	}
	defer client.Close()

	ctx := context.Background()
	for _, fileName := range args {
		fileName, err := filepath.Abs(fileName)
		if err != nil {
			fmt.Fprintf(a.GetErr(), "%s: %v\n", a.GetName(), err)
			return 1
		}
		compileArgs, err := client.CompileArgs(ctx, fileName)
		if err != nil {
			fmt.Fprintf(a.GetErr(), "%s: %v\n", a.GetName(), err)
			return 1
		}
		if c.lines {
			printLines(a, compileArgs)
		} else {
			fmt.Fprintln(a.GetOut(), shellquote.Join(compileArgs...))
		}
	}
	return 0
}

func cmdUnits() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "units",
		ShortDesc: "list translation units of the active package",
		LongDesc:  "list .c .cc .cpp .m .mm files in src/ of the active package, one per line.",
		CommandRun: func() subcommands.CommandRun {
			c := &unitsRun{}
			c.clientFlags.register(&c.Flags)
			return c
		},
	}
}

type unitsRun struct {
	subcommands.CommandRunBase
	clientFlags
}

func (c *unitsRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	return runListing(a, &c.clientFlags, args, daemon.Client.TranslationUnits)
}

func cmdPrecompiled() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "precompiled",
		ShortDesc: "list precompiled headers",
		LongDesc:  "list precompiled headers in the scratch dir: dependency, std flag, clang version and path, tab-separated.",
		CommandRun: func() subcommands.CommandRun {
			c := &precompiledRun{}
			c.clientFlags.register(&c.Flags)
			return c
		},
	}
}

type precompiledRun struct {
	subcommands.CommandRunBase
	clientFlags
}

func (c *precompiledRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	return runListing(a, &c.clientFlags, args, daemon.Client.PrecompiledArtifacts)
}

func runListing(a subcommands.Application, flags *clientFlags, args []string, list func(daemon.Client, context.Context) ([]string, error)) int {
	if len(args) != 0 {
		fmt.Fprintf(a.GetErr(), "%s: unexpected arguments %s\n", a.GetName(), strings.Join(args, " "))
		return 2
	}
	client, err := flags.makeClient()
	if err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %v\n", a.GetName(), err)
		return 1
	}
	defer client.Close()

	lines, err := list(client, context.Background())
	if err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %v\n", a.GetName(), err)
		return 1
	}
	printLines(a, lines)
	return 0
}

func printLines(a subcommands.Application, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(a.GetOut(), line)
	}
}

func cmdVersion() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "version",
		ShortDesc: "print version",
		LongDesc:  "print version of rcompdb.",
		CommandRun: func() subcommands.CommandRun {
			return &versionRun{}
		},
	}
}

type versionRun struct {
	subcommands.CommandRunBase
}

func (c *versionRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	fmt.Fprintln(a.GetOut(), common.GetVersion())
	return 0
}
