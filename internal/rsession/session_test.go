//go:build !windows

package rsession

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeFakeRscript puts an Rscript into a temp bin dir that prints stdout and exits with exitCode,
// appending its arguments to a log file for inspection.
func writeFakeRscript(t *testing.T, stdout string, exitCode int) (binDir string, argsLog string) {
	t.Helper()
	binDir = t.TempDir()
	argsLog = filepath.Join(binDir, "args.log")
	script := "#!/bin/sh\n" +
		"echo \"$@\" >> " + argsLog + "\n" +
		"printf '%s' '" + stdout + "'\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	if err := os.WriteFile(filepath.Join(binDir, "Rscript"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return binDir, argsLog
}

func TestIncludesForLinkingTo(t *testing.T) {
	ctx := context.Background()
	binDir, _ := writeFakeRscript(t, "/lib/R/Rcpp/include\n\n/lib/R/BH/include\n", 0)
	s := MakeSession(binDir, nil, "", ProjectContext{Directory: t.TempDir()})

	got, err := s.IncludesForLinkingTo(ctx, "Rcpp (>= 1.0), BH, NotInstalled")
	if err != nil {
		t.Fatalf("IncludesForLinkingTo=_, %v; want nil err", err)
	}
	want := []string{"-I/lib/R/Rcpp/include", "-I/lib/R/BH/include"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("IncludesForLinkingTo diff (-want +got):\n%s", diff)
	}

	if _, err := s.IncludesForLinkingTo(ctx, "Rcpp'); system('rm"); err == nil {
		t.Errorf("IncludesForLinkingTo accepted an invalid package name")
	}
	if got, err := s.IncludesForLinkingTo(ctx, ""); err != nil || got != nil {
		t.Errorf("IncludesForLinkingTo(\"\")=%q, %v; want nil, nil", got, err)
	}
}

func TestPrecompiledPlatformDir(t *testing.T) {
	ctx := context.Background()
	binDir, _ := writeFakeRscript(t, "x86_64-pc-linux-gnu-4.3.2-1.0.12", 0)
	s := MakeSession(binDir, nil, "", ProjectContext{Directory: t.TempDir()})

	got, err := s.PrecompiledPlatformDir(ctx, "Rcpp", "clang 17.0.6")
	if err != nil {
		t.Fatalf("PrecompiledPlatformDir=_, %v; want nil err", err)
	}
	want := "x86_64-pc-linux-gnu-4.3.2-1.0.12-clang_17.0.6"
	if got != want {
		t.Errorf("PrecompiledPlatformDir=%q; want %q", got, want)
	}
}

func TestRunScriptFailure(t *testing.T) {
	binDir, _ := writeFakeRscript(t, "", 1)
	s := MakeSession(binDir, nil, "", ProjectContext{Directory: t.TempDir()})
	if _, err := s.RunScript(context.Background(), "q()"); err == nil {
		t.Errorf("RunScript with a failing Rscript returned nil err")
	}
}

func TestIsPackageVersionInstalledCached(t *testing.T) {
	ctx := context.Background()
	binDir, argsLog := writeFakeRscript(t, "TRUE", 0)
	s := MakeSession(binDir, []string{"/lib/a", "/lib/b"}, "", ProjectContext{Directory: t.TempDir()})

	for i := 0; i < 3; i++ {
		if !s.IsPackageVersionInstalled(ctx, "Rcpp", "0.11.3") {
			t.Fatalf("IsPackageVersionInstalled=false; want true")
		}
	}
	data, err := os.ReadFile(argsLog)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 1 {
		t.Errorf("Rscript launched %d times; want 1", n)
	}
}
