package rsession

import (
	"fmt"
	"path/filepath"
	"strings"

	"rcompdb/internal/common"
)

type BuildType string

const (
	BuildTypeNone     BuildType = "None"
	BuildTypePackage  BuildType = "Package"
	BuildTypeMakefile BuildType = "Makefile"
	BuildTypeCustom   BuildType = "Custom"
)

func ParseBuildType(s string) (BuildType, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return BuildTypeNone, nil
	case "package":
		return BuildTypePackage, nil
	case "makefile":
		return BuildTypeMakefile, nil
	case "custom":
		return BuildTypeCustom, nil
	}
	return BuildTypeNone, fmt.Errorf("unknown build type %q", s)
}

// ProjectContext is the active project the resolver is bound to.
// For package projects, BuildTargetPath is the package root (the directory containing DESCRIPTION);
// it may differ from Directory when a package lives in a subdirectory of a project.
type ProjectContext struct {
	Directory       string
	BuildTargetPath string
	BuildType       BuildType
	PackratMode     bool
}

func (project *ProjectContext) IsPackage() bool {
	return project.BuildType == BuildTypePackage
}

func (project *ProjectContext) PackageSrcDir() string {
	return filepath.Join(project.BuildTargetPath, "src")
}

// DetectProjectContext inspects dir: a DESCRIPTION file makes it a package project,
// a packrat lockfile turns packrat mode on.
func DetectProjectContext(dir string) ProjectContext {
	dir = filepath.Clean(dir)
	project := ProjectContext{
		Directory:       dir,
		BuildTargetPath: dir,
		BuildType:       BuildTypeNone,
	}
	if common.FileExists(filepath.Join(dir, "DESCRIPTION")) {
		project.BuildType = BuildTypePackage
	}
	if common.FileExists(filepath.Join(dir, "packrat", "packrat.lock")) {
		project.PackratMode = true
	}
	return project
}
