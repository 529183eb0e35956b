package daemon

import (
	"rcompdb/internal/common"
	"rcompdb/internal/compdb"
	"rcompdb/internal/rsession"
	"rcompdb/internal/toolchain"
)

// SetLoggers directs logs of all packages to one logger.
func SetLoggers(logger *common.LoggerWrapper) {
	logDaemon = logger
	compdb.SetLoggerCompdb(logger)
	rsession.SetLoggerRSession(logger)
	toolchain.SetLoggerToolchain(logger)
}

// MakeResolverFromConfiguration wires an R session, clang and the R build tool into a resolver.
// It's used both by the daemon and by the client when no daemon is reachable.
func MakeResolverFromConfiguration(config *Configuration) (*compdb.Resolver, error) {
	project, err := config.ProjectContext()
	if err != nil {
		return nil, err
	}
	extraArgs, err := config.ClangExtraArgsList()
	if err != nil {
		return nil, err
	}

	session := rsession.MakeSession(config.RBinDir, config.LibPaths, config.RtoolsDir, project)
	clang := toolchain.MakeClang(config.ClangPath, extraArgs, config.RtoolsDir)

	logDaemon.Info(1, "project", project.BuildTargetPath, "build type", project.BuildType, "packrat", project.PackratMode)
	return compdb.MakeResolver(compdb.Options{
		Project:     project,
		ScratchDir:  config.ScratchDir,
		Environment: session,
		Toolchain:   clang,
		Saver:       clang,
		BuildTool:   &compdb.RBuildTool{Session: session},
	}), nil
}
