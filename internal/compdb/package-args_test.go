package compdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"rcompdb/internal/common"
	"rcompdb/internal/rsession"
)

const testPackageDescription = `Package: mypkg
Version: 0.1.0
LinkingTo: Rcpp (>= 1.0.0), RcppEigen
SystemRequirements: C++11
`

func TestPackageArgsResolve(t *testing.T) {
	ctx := context.Background()
	project := makeTestPackage(t, testPackageDescription)
	tool := &fakeBuildTool{flags: "-I.. -I. -I../inst/include -I./sub"}
	env := &fakeEnvironment{}
	p := MakePackageArgs(project, env, &fakeToolchain{}, tool)

	args, pch := p.Resolve(ctx)

	srcDir := project.PackageSrcDir()
	want := []string{
		"-isystem", "/usr/include",
		"-I/R/library/Rcpp/include", "-I/R/library/RcppEigen/include",
		"-std=gnu++17", "-I/usr/share/R/include", "-DNDEBUG",
		"-I" + project.BuildTargetPath,
		"-I" + srcDir,
		"-I" + filepath.Join(project.BuildTargetPath, "inst", "include"),
		"-I" + filepath.Join(srcDir, "sub"),
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("Resolve() args diff (-want +got):\n%s", diff)
	}
	if pch != "RcppEigen" {
		t.Errorf("Resolve() pch=%q; want %q", pch, "RcppEigen")
	}

	if n := tool.count(InvokePackageBuild); n != 1 {
		t.Fatalf("build tool invoked %d times; want 1", n)
	}
	invocation := tool.invocations[0]
	if filepath.Dir(invocation.SourceFile) != srcDir || filepath.Ext(invocation.SourceFile) != ".cpp" {
		t.Errorf("placeholder %q is not a .cpp in %q", invocation.SourceFile, srcDir)
	}
	if v, ok := common.LookupEnv(invocation.Env, "USE_CXX1X"); !ok || v != "1" {
		t.Errorf("USE_CXX1X=%q, %t; want 1 for a C++11 package", v, ok)
	}
}

func TestPackageArgsIdempotent(t *testing.T) {
	ctx := context.Background()
	project := makeTestPackage(t, testPackageDescription)
	tool := &fakeBuildTool{}
	p := MakePackageArgs(project, &fakeEnvironment{}, &fakeToolchain{}, tool)

	first, _ := p.Resolve(ctx)
	second, _ := p.Resolve(ctx)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second Resolve() differs (-first +second):\n%s", diff)
	}
	if n := tool.count(InvokePackageBuild); n != 1 {
		t.Errorf("build tool invoked %d times; want 1", n)
	}

	first[0] = "-mutated"
	third, _ := p.Resolve(ctx)
	if third[0] == "-mutated" {
		t.Errorf("Resolve() returned the cached slice itself")
	}
}

func TestPackageArgsInvalidation(t *testing.T) {
	ctx := context.Background()
	project := makeTestPackage(t, testPackageDescription)
	tool := &fakeBuildTool{}
	p := MakePackageArgs(project, &fakeEnvironment{}, &fakeToolchain{}, tool)

	p.Resolve(ctx)

	makevars := filepath.Join(project.PackageSrcDir(), "Makevars")
	writeTestFile(t, makevars, "PKG_CPPFLAGS = -DUSE_X\n")
	tool.flags = "-DUSE_X"
	args, _ := p.Resolve(ctx)
	if n := tool.count(InvokePackageBuild); n != 2 {
		t.Fatalf("build tool invoked %d times after creating Makevars; want 2", n)
	}
	if !strings.Contains(strings.Join(args, " "), "-DUSE_X") {
		t.Errorf("Resolve() after Makevars change=%q; want -DUSE_X", args)
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(project.BuildTargetPath, "DESCRIPTION"), later, later); err != nil {
		t.Fatal(err)
	}
	p.Resolve(ctx)
	if n := tool.count(InvokePackageBuild); n != 3 {
		t.Errorf("build tool invoked %d times after touching DESCRIPTION; want 3", n)
	}
}

func TestPackageArgsStaleOnFailure(t *testing.T) {
	ctx := context.Background()
	project := makeTestPackage(t, "Package: mypkg\n")
	tool := &fakeBuildTool{}
	p := MakePackageArgs(project, &fakeEnvironment{}, &fakeToolchain{}, tool)

	good, pch := p.Resolve(ctx)
	if len(good) == 0 || pch != "" {
		t.Fatalf("Resolve()=%q, %q; want args and no pch", good, pch)
	}

	for _, breakTool := range []func(){
		func() { tool.exitCode = 1 },
		func() { tool.exitCode = 0; tool.launchErr = errors.New("no R") },
	} {
		breakTool()
		later := time.Now().Add(time.Duration(tool.count(InvokePackageBuild)) * time.Hour)
		if err := os.Chtimes(filepath.Join(project.BuildTargetPath, "DESCRIPTION"), later, later); err != nil {
			t.Fatal(err)
		}
		got, _ := p.Resolve(ctx)
		if diff := cmp.Diff(good, got); diff != "" {
			t.Errorf("Resolve() after a failure diff (-stale +got):\n%s", diff)
		}
	}
}

func TestPackageArgsNoDescription(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "src", "a.cpp"), "")
	project := rsession.ProjectContext{Directory: dir, BuildTargetPath: dir, BuildType: rsession.BuildTypePackage}
	tool := &fakeBuildTool{}
	p := MakePackageArgs(project, &fakeEnvironment{}, &fakeToolchain{}, tool)

	args, pch := p.Resolve(context.Background())
	if len(args) != 0 || pch != "" {
		t.Errorf("Resolve() without DESCRIPTION=%q, %q; want empty", args, pch)
	}
	if n := tool.count(InvokePackageBuild); n != 0 {
		t.Errorf("build tool invoked %d times without DESCRIPTION; want 0", n)
	}
}

func TestRewriteRelativeInclude(t *testing.T) {
	srcDir := filepath.Join("/pkg", "src")
	for _, tc := range []struct {
		in, want string
	}{
		{"-I..", "-I" + filepath.Join("/pkg")},
		{"-I.", "-I" + srcDir},
		{"-I../inst/include", "-I" + filepath.Join("/pkg", "inst", "include")},
		{"-I./local", "-I" + filepath.Join(srcDir, "local")},
		{"-I/usr/include", "-I/usr/include"},
		{"-I.hidden", "-I.hidden"},
		{"-D..", "-D.."},
	} {
		if got := rewriteRelativeInclude(tc.in, srcDir); got != tc.want {
			t.Errorf("rewriteRelativeInclude(%q)=%q; want %q", tc.in, got, tc.want)
		}
	}
}

