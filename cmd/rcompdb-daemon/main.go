package main

import (
	"fmt"
	"os"

	sdaemon "github.com/coreos/go-systemd/v22/daemon"
	"rcompdb/internal/common"
	"rcompdb/internal/daemon"
)

func failedStartDaemon(err any) {
	_, _ = fmt.Fprintln(os.Stdout, "daemon not started:", err)
	os.Exit(1)
}

func main() {
	showVersionAndExit := common.CmdEnvBool("Show version and exit.", false,
		"version", "")
	showVersionAndExitShort := common.CmdEnvBool("Show version and exit.", false,
		"v", "")
	configFileName := common.CmdEnvString("Path to a toml configuration file. A missing file means defaults.", daemon.DefaultConfigurationPath,
		"config", "RCOMPDB_CONFIG")
	projectDir := common.CmdEnvString("R project to serve, overrides ProjectDir of the configuration.", "",
		"project", "RCOMPDB_PROJECT")

	common.ParseCmdFlagsCombiningWithEnv()

	if *showVersionAndExit || *showVersionAndExitShort {
		fmt.Println(common.GetVersion())
		os.Exit(0)
	}

	configuration, err := daemon.ParseConfiguration(*configFileName)
	if err != nil {
		failedStartDaemon("Failed to parse configuration: " + err.Error())
	}
	if *projectDir != "" {
		configuration.ProjectDir = *projectDir
	}

	logger, err := common.MakeLogger(configuration.LogFileName, configuration.LogLevel, false)
	if err != nil {
		failedStartDaemon(err)
	}
	defer logger.Close()
	daemon.SetLoggers(logger)

	resolver, err := daemon.MakeResolverFromConfiguration(configuration)
	if err != nil {
		failedStartDaemon(err)
	}

	d := daemon.MakeDaemon(resolver, configuration.IdleTimeoutDuration())
	if err := d.StartListeningUnixSocket(configuration.SocketPath); err != nil {
		failedStartDaemon(err)
	}
	if configuration.ListenAddr != "" {
		if err := d.StartListeningGRPC(configuration.ListenAddr); err != nil {
			failedStartDaemon(err)
		}
	}

	_, _ = sdaemon.SdNotify(false, sdaemon.SdNotifyReady)
	d.ServeUntilQuit()
	_, _ = sdaemon.SdNotify(false, sdaemon.SdNotifyStopping)
}
