package common

import (
	"flag"
	"io"
	"strings"
	"testing"
)

func TestCmdEnvString(t *testing.T) {
	t.Setenv("RCOMPDB_TEST_CONFIG", "/from/env.toml")
	t.Setenv("RCOMPDB_TEST_EMPTY", "")

	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	fromEnv := makeCmdEnvString(flagSet, "config", "/etc/default.toml", "config", "RCOMPDB_TEST_CONFIG")
	emptyEnv := makeCmdEnvString(flagSet, "project", "default", "project", "RCOMPDB_TEST_EMPTY")
	envOnly := makeCmdEnvString(flagSet, "socket", "default", "", "RCOMPDB_TEST_UNSET")

	if fromEnv.value != "/from/env.toml" {
		t.Errorf("value from env=%q; want %q", fromEnv.value, "/from/env.toml")
	}
	if emptyEnv.value != "default" || envOnly.value != "default" {
		t.Errorf("values with empty or unset env=%q, %q; want defaults", emptyEnv.value, envOnly.value)
	}

	if err := flagSet.Parse([]string{"-config", "/from/cmd.toml"}); err != nil {
		t.Fatal(err)
	}
	if fromEnv.value != "/from/cmd.toml" || !fromEnv.isSet {
		t.Errorf("value from cmd line=%q (set %t); want %q", fromEnv.value, fromEnv.isSet, "/from/cmd.toml")
	}
	if flagSet.Lookup("socket") != nil {
		t.Errorf("an arg without a cmd name was registered as a flag")
	}
}

func TestCmdEnvBool(t *testing.T) {
	t.Setenv("RCOMPDB_TEST_VERBOSE", "true")
	t.Setenv("RCOMPDB_TEST_BROKEN", "sometimes")

	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	verbose := makeCmdEnvBool(flagSet, "verbose", false, "verbose", "RCOMPDB_TEST_VERBOSE")
	broken := makeCmdEnvBool(flagSet, "broken", false, "broken", "RCOMPDB_TEST_BROKEN")
	version := makeCmdEnvBool(flagSet, "version", false, "version", "")

	if !verbose.value || broken.value {
		t.Errorf("values from env=%t, %t; want true, false", verbose.value, broken.value)
	}
	if err := flagSet.Parse([]string{"-version", "-verbose=false"}); err != nil {
		t.Fatal(err)
	}
	if !version.value || verbose.value {
		t.Errorf("values from cmd line=%t, %t; want true, false", version.value, verbose.value)
	}
	if err := flagSet.Parse([]string{"-broken=maybe"}); err == nil {
		t.Errorf("Parse(-broken=maybe)=nil; want error")
	}
}

func TestPrintUsage(t *testing.T) {
	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	args := []cmdLineArg{
		makeCmdEnvBool(flagSet, "Show version and exit.", false, "version", ""),
		makeCmdEnvBool(flagSet, "Show version and exit.", false, "v", ""),
		makeCmdEnvString(flagSet, "Path to a config.\nA missing file means defaults.", "", "config", "RCOMPDB_TEST_USAGE"),
	}

	var out strings.Builder
	printUsage(&out, args)
	got := out.String()
	for _, want := range []string{"  -version / -v\n", "  -config\n  RCOMPDB_TEST_USAGE\n", "Path to a config.\n    \tA missing file means defaults."} {
		if !strings.Contains(got, want) {
			t.Errorf("printUsage() output doesn't contain %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "  -v\n") {
		t.Errorf("printUsage() shows -v:\n%s", got)
	}
}
