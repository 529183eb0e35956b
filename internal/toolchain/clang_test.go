package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const clangWpStderr = `clang -cc1 version 17.0.6 based upon LLVM 17.0.6 default target x86_64-pc-linux-gnu
ignoring nonexistent directory "/include"
#include "..." search starts here:
 /opt/local/quote
#include <...> search starts here:
 /usr/lib/gcc/x86_64-linux-gnu/12/../../../../include/c++/12
 /usr/lib/llvm-17/lib/clang/17/include
 /usr/local/include
 /opt/R/include
 /System/Library/Frameworks (framework directory)
End of search list.
 /usr/after/end
`

func TestParseDefaultIncludeDirsFromWpStderr(t *testing.T) {
	dirs := parseDefaultIncludeDirsFromWpStderr(clangWpStderr)
	got := dirs.AsCompilerArgs()
	want := []string{
		"-I", "/opt/R/include",
		"-iquote", "/opt/local/quote",
		"-isystem", "/usr/include/c++/12",
		"-isystem", "/usr/lib/llvm-17/lib/clang/17/include",
		"-isystem", "/usr/local/include",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseDefaultIncludeDirsFromWpStderr diff (-want +got):\n%s", diff)
	}
	if dirs.Count() != 5 || dirs.IsEmpty() {
		t.Errorf("Count()=%d IsEmpty()=%t; want 5, false", dirs.Count(), dirs.IsEmpty())
	}

	empty := parseDefaultIncludeDirsFromWpStderr("")
	if !empty.IsEmpty() {
		t.Errorf("parse of empty output is not empty: %v", empty.AsCompilerArgs())
	}
}

func TestParseClangVersion(t *testing.T) {
	for _, tc := range []struct {
		out     string
		want    string
		wantErr bool
	}{
		{"clang version 17.0.6 (https://github.com/llvm/llvm-project 6009708b4367171ccdbf4b5905cb6a803753fe18)\nTarget: x86_64-pc-linux-gnu\n", "17.0.6", false},
		{"Ubuntu clang version 14.0.0-1ubuntu1.1\nTarget: x86_64-pc-linux-gnu\n", "14.0.0-1ubuntu1.1", false},
		{"Apple clang version 15.0.0 (clang-1500.3.9.4)\n", "15.0.0", false},
		{"gcc (Debian 12.2.0-14) 12.2.0\n", "", true},
	} {
		got, err := parseClangVersion(tc.out)
		if got != tc.want || (err != nil) != tc.wantErr {
			t.Errorf("parseClangVersion(%q)=%q, %v; want %q, err=%t", tc.out, got, err, tc.want, tc.wantErr)
		}
	}
}

func TestPlatformArgs(t *testing.T) {
	c := MakeClang("clang", nil, `C:\rtools44`)
	got := c.PlatformArgs()
	if runtime.GOOS != "windows" && got != nil {
		t.Errorf("PlatformArgs()=%q; want nil off Windows", got)
	}
	if runtime.GOOS == "windows" && len(got) == 0 {
		t.Errorf("PlatformArgs() is empty with RtoolsDir set")
	}
	if got := MakeClang("clang", nil, "").PlatformArgs(); got != nil {
		t.Errorf("PlatformArgs() without RtoolsDir=%q; want nil", got)
	}
}

// writeFakeClang creates a shell script acting like clang for -Wp,-v, --version and -o.
func writeFakeClang(t *testing.T) (clangPath string, callsLog string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	clangPath = filepath.Join(dir, "clang")
	callsLog = filepath.Join(dir, "calls.log")
	script := `#!/bin/sh
echo "$@" >> ` + callsLog + `
case "$1" in
--version) echo "clang version 17.0.6"; exit 0 ;;
-Wp,-v) printf '#include <...> search starts here:\n /usr/include\nEnd of search list.\n' 1>&2; exit 0 ;;
esac
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
case "$*" in
*broken*) echo "fatal error: 'broken.h' file not found" 1>&2; exit 1 ;;
esac
echo pch > "$out"
`
	if err := os.WriteFile(clangPath, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return clangPath, callsLog
}

func TestCompileArgsCached(t *testing.T) {
	ctx := context.Background()
	clangPath, callsLog := writeFakeClang(t)
	c := MakeClang(clangPath, []string{"-Wno-unknown-warning-option"}, "")

	want := []string{"-Wno-unknown-warning-option", "-isystem", "/usr/include"}
	for i := 0; i < 2; i++ {
		got := c.CompileArgs(ctx, true)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("CompileArgs(true) #%d diff (-want +got):\n%s", i, diff)
		}
	}
	data, err := os.ReadFile(callsLog)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 1 {
		t.Errorf("clang probed %d times; want 1", n)
	}

	version, err := c.Version(ctx)
	if err != nil || version != "17.0.6" {
		t.Errorf("Version()=%q, %v; want 17.0.6, nil", version, err)
	}
}

func TestCompileArgsProbeFailure(t *testing.T) {
	c := MakeClang(filepath.Join(t.TempDir(), "no-clang"), []string{"-DX"}, "")
	got := c.CompileArgs(context.Background(), false)
	if diff := cmp.Diff([]string{"-DX"}, got); diff != "" {
		t.Errorf("CompileArgs with a missing clang diff (-want +got):\n%s", diff)
	}
}

func TestSaveTranslationUnit(t *testing.T) {
	ctx := context.Background()
	clangPath, _ := writeFakeClang(t)
	c := MakeClang(clangPath, nil, "")
	dir := t.TempDir()
	src := filepath.Join(dir, "Rcpp.cpp")
	out := filepath.Join(dir, "Rcpp.pch")

	if err := c.SaveTranslationUnit(ctx, src, []string{"-std=c++17"}, out); err != nil {
		t.Fatalf("SaveTranslationUnit=%v; want nil", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("artifact %s is missing: %v", out, err)
	}

	broken := filepath.Join(dir, "broken.pch")
	if err := c.SaveTranslationUnit(ctx, filepath.Join(dir, "broken.cpp"), nil, broken); err == nil {
		t.Errorf("SaveTranslationUnit of a broken source returned nil err")
	}
	if _, err := os.Stat(broken); err == nil {
		t.Errorf("artifact %s exists after a failed save", broken)
	}
}
