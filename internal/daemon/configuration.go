package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kballard/go-shellquote"
	"rcompdb/internal/rsession"
)

const DefaultConfigurationPath = "/etc/rcompdb/daemon.toml"

// Configuration is read from a toml file on daemon start.
// A missing file is not an error: every field has a default.
type Configuration struct {
	SocketPath     string
	ListenAddr     string // host:port for the grpc service; empty disables it
	SocksProxyAddr string // used by clients connecting to ListenAddr of another daemon

	ProjectDir string
	BuildType  string // empty means detect from ProjectDir

	RBinDir   string
	LibPaths  []string
	RtoolsDir string

	ClangPath      string
	ClangExtraArgs string // shell-quoted

	ScratchDir string

	LogFileName string
	LogLevel    int

	IdleTimeout int // seconds without requests before the daemon quits; 0 means never
}

func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), "rcompdb-daemon.sock")
}

func defaultScratchDir() string {
	if cacheDir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cacheDir, "rcompdb")
	}
	return filepath.Join(os.TempDir(), "rcompdb")
}

func ParseConfiguration(filePath string) (*Configuration, error) {
	config := Configuration{
		SocketPath:  DefaultSocketPath(),
		ProjectDir:  ".",
		ClangPath:   "clang",
		ScratchDir:  defaultScratchDir(),
		LogFileName: "stderr",
		LogLevel:    0,
	}
	if filePath != "" {
		if _, err := toml.DecodeFile(filePath, &config); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if config.IdleTimeout < 0 {
		return nil, fmt.Errorf("IdleTimeout must not be negative, got %d", config.IdleTimeout)
	}
	if _, err := rsession.ParseBuildType(config.BuildType); err != nil {
		return nil, err
	}
	if _, err := config.ClangExtraArgsList(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (config *Configuration) ClangExtraArgsList() ([]string, error) {
	args, err := shellquote.Split(config.ClangExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("can't split ClangExtraArgs %q: %v", config.ClangExtraArgs, err)
	}
	return args, nil
}

func (config *Configuration) IdleTimeoutDuration() time.Duration {
	return time.Duration(config.IdleTimeout) * time.Second
}

// ProjectContext detects the project in ProjectDir; an explicit BuildType overrides detection.
func (config *Configuration) ProjectContext() (rsession.ProjectContext, error) {
	dir, err := filepath.Abs(config.ProjectDir)
	if err != nil {
		return rsession.ProjectContext{}, err
	}
	project := rsession.DetectProjectContext(dir)
	if config.BuildType != "" {
		if project.BuildType, err = rsession.ParseBuildType(config.BuildType); err != nil {
			return rsession.ProjectContext{}, err
		}
	}
	return project, nil
}
