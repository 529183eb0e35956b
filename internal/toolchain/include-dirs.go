package toolchain

import (
	"path/filepath"
	"strings"
)

// IncludeDirs represents default include dirs of a compiler (absolute paths).
// They are prepended to every resolved argument list.
type IncludeDirs struct {
	dirsI       []string // -I dir
	dirsIquote  []string // -iquote dir
	dirsIsystem []string // -isystem dir
}

func MakeIncludeDirs() IncludeDirs {
	return IncludeDirs{
		dirsI:       make([]string, 0, 2),
		dirsIquote:  make([]string, 0, 2),
		dirsIsystem: make([]string, 0, 4),
	}
}

func (dirs *IncludeDirs) IsEmpty() bool {
	return dirs.Count() == 0
}

func (dirs *IncludeDirs) Count() int {
	return len(dirs.dirsI) + len(dirs.dirsIquote) + len(dirs.dirsIsystem)
}

func (dirs *IncludeDirs) AsCompilerArgs() []string {
	iArgs := make([]string, 0, 2*dirs.Count())

	for _, dir := range dirs.dirsI {
		iArgs = append(iArgs, "-I", dir)
	}

	for _, dir := range dirs.dirsIquote {
		iArgs = append(iArgs, "-iquote", dir)
	}

	for _, dir := range dirs.dirsIsystem {
		iArgs = append(iArgs, "-isystem", dir)
	}

	return iArgs
}

// parseDefaultIncludeDirsFromWpStderr parses output of a compiler launched with -Wp,-v option.
func parseDefaultIncludeDirsFromWpStderr(wpStderr string) IncludeDirs {
	const (
		dirsIStart      = "#include <...>"
		dirsIquoteStart = "#include \"...\""
		dirsEnd         = "End of search list"

		stateUnknown      = 0
		stateInDirsIquote = 1
		stateInDirsI      = 2
	)

	state := stateUnknown
	defIncludeDirs := MakeIncludeDirs()
	for _, line := range strings.Split(wpStderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, dirsIquoteStart) {
			state = stateInDirsIquote
		} else if strings.HasPrefix(line, dirsIStart) {
			state = stateInDirsI
		} else if strings.HasPrefix(line, dirsEnd) {
			return defIncludeDirs
		} else if filepath.IsAbs(line) {
			if strings.HasSuffix(line, "(framework directory)") {
				continue
			}
			switch state {
			case stateInDirsIquote:
				defIncludeDirs.dirsIquote = append(defIncludeDirs.dirsIquote, line)
			case stateInDirsI:
				// system dirs are cleaned, since gcc/clang print them like /usr/lib/gcc/x86_64-linux-gnu/12/../../../../include/c++/12
				if strings.HasPrefix(line, "/usr/") || strings.HasPrefix(line, "/Library/") {
					defIncludeDirs.dirsIsystem = append(defIncludeDirs.dirsIsystem, filepath.Clean(line))
				} else {
					defIncludeDirs.dirsI = append(defIncludeDirs.dirsI, line)
				}
			}
		}
	}
	return defIncludeDirs
}
