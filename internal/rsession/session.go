package rsession

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"rcompdb/internal/common"
)

var rePackageName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.]*$`)

// Session is the R installation the resolver talks to: where R lives, which libraries it sees,
// and which project is active.
// Every query is a short-lived Rscript process; the session itself keeps only small caches.
type Session struct {
	RBinDir   string // empty means R and Rscript are looked up in PATH
	LibPaths  []string
	RtoolsDir string
	Project   ProjectContext

	mu            sync.Mutex
	versionChecks map[string]bool
}

func MakeSession(rBinDir string, libPaths []string, rtoolsDir string, project ProjectContext) *Session {
	return &Session{
		RBinDir:       rBinDir,
		LibPaths:      libPaths,
		RtoolsDir:     rtoolsDir,
		Project:       project,
		versionChecks: make(map[string]bool),
	}
}

func (s *Session) RPath() string {
	if s.RBinDir == "" {
		return "R"
	}
	return filepath.Join(s.RBinDir, "R")
}

func (s *Session) RscriptPath() string {
	if s.RBinDir == "" {
		return "Rscript"
	}
	return filepath.Join(s.RBinDir, "Rscript")
}

func (s *Session) LibPathsString() string {
	return strings.Join(s.LibPaths, string(os.PathListSeparator))
}

// CompilationEnvironment is the environment R build commands run in:
// the current process env, plus variables from the project's .Renviron that are not already set,
// plus Rtools on PATH on Windows.
func (s *Session) CompilationEnvironment() []string {
	env := os.Environ()

	renviron := filepath.Join(s.Project.Directory, ".Renviron")
	if s.Project.Directory != "" && common.FileExists(renviron) {
		vars, err := godotenv.Read(renviron)
		if err != nil {
			logRSession.Warn("can't read", renviron, err)
		} else {
			keys := make([]string, 0, len(vars))
			for key := range vars {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if _, exists := common.LookupEnv(env, key); !exists {
					env = append(env, key+"="+vars[key])
				}
			}
		}
	}

	if runtime.GOOS == "windows" && s.RtoolsDir != "" {
		path, _ := common.LookupEnv(env, "PATH")
		rtoolsBin := filepath.Join(s.RtoolsDir, "usr", "bin")
		if !strings.Contains(path, rtoolsBin) {
			env = common.SetEnv(env, "PATH", rtoolsBin+string(os.PathListSeparator)+path)
		}
	}

	return env
}

// RunScript evaluates expr in a fresh vanilla R process and returns its stdout.
func (s *Session) RunScript(ctx context.Context, expr string) (string, error) {
	env := s.CompilationEnvironment()
	if libPaths := s.LibPathsString(); libPaths != "" {
		env = common.SetEnv(env, "R_LIBS", libPaths)
	}
	launch := &common.ProcessLaunch{
		Cwd:  s.Project.Directory,
		Name: s.RscriptPath(),
		Args: []string{"--slave", "--vanilla", "-e", expr},
		Env:  env,
	}
	logRSession.Info(2, "run", launch.String())

	exitCode, stdout, stderr, err := launch.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("can't launch %s: %v", launch.Name, err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("%s exited with code %d: %s", launch.Name, exitCode, strings.TrimSpace(string(stderr)))
	}
	return string(stdout), nil
}

// IsPackageVersionInstalled reports whether pkg >= minVersion is installed; answers are cached.
// Any failure to ask R counts as "not installed".
func (s *Session) IsPackageVersionInstalled(ctx context.Context, pkg string, minVersion string) bool {
	key := pkg + "@" + minVersion
	s.mu.Lock()
	if installed, ok := s.versionChecks[key]; ok {
		s.mu.Unlock()
		return installed
	}
	s.mu.Unlock()

	installed := false
	if rePackageName.MatchString(pkg) {
		expr := fmt.Sprintf("cat(tryCatch(packageVersion('%s') >= '%s', error = function(e) FALSE))", pkg, minVersion)
		out, err := s.RunScript(ctx, expr)
		if err != nil {
			logRSession.Error("can't check version of", pkg, err)
		}
		installed = strings.TrimSpace(out) == "TRUE"
	}

	s.mu.Lock()
	s.versionChecks[key] = installed
	s.mu.Unlock()
	return installed
}

// IncludesForLinkingTo returns -I flags for include dirs of every installed package listed in a LinkingTo field.
func (s *Session) IncludesForLinkingTo(ctx context.Context, linkingTo string) ([]string, error) {
	names := ParseLinkingTo(linkingTo)
	if len(names) == 0 {
		return nil, nil
	}
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		if !rePackageName.MatchString(name) {
			return nil, fmt.Errorf("invalid package name %q in LinkingTo", name)
		}
		quoted = append(quoted, "'"+name+"'")
	}

	expr := fmt.Sprintf("for (p in c(%s)) cat(system.file('include', package = p), '\\n', sep = '')", strings.Join(quoted, ", "))
	out, err := s.RunScript(ctx, expr)
	if err != nil {
		return nil, err
	}

	var includes []string
	for _, line := range strings.Split(out, "\n") {
		if dir := strings.TrimSpace(line); dir != "" {
			includes = append(includes, "-I"+dir)
		}
	}
	return includes, nil
}

var reUnsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// PrecompiledPlatformDir names the directory that PCH artifacts of pkg are valid for:
// it changes whenever R, the package, or the toolchain is upgraded.
func (s *Session) PrecompiledPlatformDir(ctx context.Context, pkg string, toolchainVersion string) (string, error) {
	if !rePackageName.MatchString(pkg) {
		return "", fmt.Errorf("invalid package name %q", pkg)
	}
	expr := fmt.Sprintf("cat(paste(R.version$platform, as.character(getRversion()), as.character(packageVersion('%s')), sep = '-'))", pkg)
	out, err := s.RunScript(ctx, expr)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty platform dir for %s", pkg)
	}
	return reUnsafePathChars.ReplaceAllString(out+"-"+toolchainVersion, "_"), nil
}
