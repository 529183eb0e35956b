package common

import (
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

func MkdirForFile(fileName string) error {
	if err := os.MkdirAll(filepath.Dir(fileName), os.ModePerm); err != nil {
		return err
	}
	return nil
}

// WriteFileAtomic writes data next to name and renames it into place,
// so that a concurrent reader never observes a half-written file.
func WriteFileAtomic(name string, data []byte) error {
	if err := MkdirForFile(name); err != nil {
		return err
	}
	fileNameTmp := name + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(fileNameTmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(fileNameTmp, name); err != nil {
		_ = os.Remove(fileNameTmp)
		return err
	}
	return nil
}

func ReplaceFileExt(fileName string, newExt string) string {
	logExt := path.Ext(fileName)
	return fileName[0:len(fileName)-len(logExt)] + newExt
}

// FileStem returns a base name without extension: "/a/b/foo.cpp" -> "foo".
func FileStem(fileName string) string {
	base := filepath.Base(fileName)
	return base[0 : len(base)-len(filepath.Ext(base))]
}

// PathIsWithin reports whether fileName is located strictly inside dir.
func PathIsWithin(fileName string, dir string) bool {
	rel, err := filepath.Rel(dir, fileName)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// FileMTimeString is a change marker of a file; empty if a file doesn't exist.
func FileMTimeString(fileName string) string {
	stat, err := os.Stat(fileName)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(stat.ModTime().UnixNano(), 10)
}

func FileExists(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}

// SetEnv returns a copy of env (in the os.Environ format) with key set to value.
func SetEnv(env []string, key string, value string) []string {
	out := make([]string, 0, len(env)+1)
	prefix := key + "="
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}

// LookupEnv searches env (in the os.Environ format) for key.
func LookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):], true
		}
	}
	return "", false
}
