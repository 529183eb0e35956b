package common

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestPCHInvocationSaveAndParse(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "Rcpp-std=c++17.json")
	args := []string{"-std=c++17", "-I/usr/lib/R/include"}
	want := &PCHInvocation{
		Dependency:       "Rcpp",
		StdFlag:          "-std=c++17",
		ToolchainVersion: "17.0.6",
		InputFile:        "/scratch/Rcpp-std=c++17.cpp",
		OutputFile:       "/scratch/Rcpp-std=c++17.pch",
		Args:             args,
		Hash:             CalcArgsHash(args),
		CreatedAt:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	if err := want.SaveToFile(fileName); err != nil {
		t.Fatalf("SaveToFile(%q)=%v; want nil", fileName, err)
	}
	got, err := ParsePchInvocationFile(fileName)
	if err != nil {
		t.Fatalf("ParsePchInvocationFile(%q)=_, %v; want nil err", fileName, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("manifest diff (-want +got):\n%s", diff)
	}
}

func TestCalcArgsHash(t *testing.T) {
	a := CalcArgsHash([]string{"-I/a b"})
	b := CalcArgsHash([]string{"-I/a", "b"})
	if a == b {
		t.Errorf("CalcArgsHash doesn't distinguish token boundaries: %q", a)
	}
}
