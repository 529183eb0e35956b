// rcompdb prints compiler arguments of R package and Rcpp sources for clang-based tools.
// It asks rcompdb-daemon, so that caches and precompiled headers outlive one invocation,
// and resolves in-process if no daemon is reachable.
package main

import (
	"os"

	"github.com/maruel/subcommands"
)

func getApplication() *subcommands.DefaultApplication {
	return &subcommands.DefaultApplication{
		Name:  "rcompdb",
		Title: "compilation database for R packages and Rcpp sources",
		Commands: []*subcommands.Command{
			cmdArgs(),
			cmdUnits(),
			cmdPrecompiled(),
			cmdVersion(),
			subcommands.CmdHelp,
		},
	}
}

func main() {
	os.Exit(subcommands.Run(getApplication(), nil))
}
