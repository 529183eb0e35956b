// This module provides integration of the flag package with environment variables.
// The purpose to launch either `rcompdb-daemon -config /path/daemon.toml` or `RCOMPDB_CONFIG=/path/daemon.toml rcompdb-daemon`.
// A value given on the command line wins over the environment.
// See usages of CmdEnvString and others.

package common

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type cmdLineArg interface {
	flag.Value
	base() *cmdLineArgBase
}

// cmdLineArgBase is what all kinds of args share: names and a description for usage.
// Either name may be empty: an arg without cmdName can be set only via env.
type cmdLineArgBase struct {
	cmdName string
	envName string
	usage   string
	isSet   bool
}

func (b *cmdLineArgBase) base() *cmdLineArgBase {
	return b
}

// lookupEnv returns a value of envName unless it's empty or not set.
func (b *cmdLineArgBase) lookupEnv() (string, bool) {
	if b.envName == "" {
		return "", false
	}
	v, ok := os.LookupEnv(b.envName)
	return v, ok && v != ""
}

type cmdLineArgString struct {
	cmdLineArgBase
	value string
}

func (s *cmdLineArgString) String() string {
	return s.value
}

func (s *cmdLineArgString) Set(v string) error {
	s.isSet = true
	s.value = v
	return nil
}

type cmdLineArgBool struct {
	cmdLineArgBase
	value bool
}

func (s *cmdLineArgBool) String() string {
	return strconv.FormatBool(s.value)
}

func (s *cmdLineArgBool) Set(v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	s.isSet = true
	s.value = b
	return nil
}

func (s *cmdLineArgBool) IsBoolFlag() bool {
	return true
}

var allCmdLineArgs []cmdLineArg

func registerCmdLineArg(arg cmdLineArg, flagSet *flag.FlagSet) {
	allCmdLineArgs = append(allCmdLineArgs, arg)
	if b := arg.base(); b.cmdName != "" {
		flagSet.Var(arg, b.cmdName, b.usage)
	}
}

func printUsage(out io.Writer, args []cmdLineArg) {
	_, _ = fmt.Fprintf(out, "Usage of %s:\n\n", os.Args[0])
	for _, arg := range args {
		b := arg.base()
		if b.cmdName == "v" { // don't print "-v" (shortcut for -version)
			continue
		}

		if b.cmdName != "" {
			valueHint := ""
			if b.cmdName == "version" {
				valueHint = " / -v"
			}
			_, _ = fmt.Fprintf(out, "  -%s%s\n", b.cmdName, valueHint)
		}
		if b.envName != "" {
			_, _ = fmt.Fprintf(out, "  %s\n", b.envName)
		}
		_, _ = fmt.Fprintf(out, "    \t%s\n\n", strings.ReplaceAll(b.usage, "\n", "\n    \t"))
	}
}

// CmdEnvString declares a string arg settable via -cmdFlagName or env envName.
func CmdEnvString(usage string, def string, cmdFlagName string, envName string) *string {
	return &makeCmdEnvString(flag.CommandLine, usage, def, cmdFlagName, envName).value
}

func makeCmdEnvString(flagSet *flag.FlagSet, usage string, def string, cmdFlagName string, envName string) *cmdLineArgString {
	s := &cmdLineArgString{cmdLineArgBase{cmdName: cmdFlagName, envName: envName, usage: usage}, def}
	if envValue, ok := s.lookupEnv(); ok {
		s.value = envValue
	}
	registerCmdLineArg(s, flagSet)
	return s
}

// CmdEnvBool declares a bool arg; an unparseable env value is ignored.
func CmdEnvBool(usage string, def bool, cmdFlagName string, envName string) *bool {
	return &makeCmdEnvBool(flag.CommandLine, usage, def, cmdFlagName, envName).value
}

func makeCmdEnvBool(flagSet *flag.FlagSet, usage string, def bool, cmdFlagName string, envName string) *cmdLineArgBool {
	s := &cmdLineArgBool{cmdLineArgBase{cmdName: cmdFlagName, envName: envName, usage: usage}, def}
	if envValue, ok := s.lookupEnv(); ok {
		if b, err := strconv.ParseBool(envValue); err == nil {
			s.value = b
		}
	}
	registerCmdLineArg(s, flagSet)
	return s
}

func ParseCmdFlagsCombiningWithEnv() {
	flag.Usage = func() {
		printUsage(os.Stdout, allCmdLineArgs)
	}
	flag.Parse()
}
