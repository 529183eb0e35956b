package common

import (
	"path/filepath"
	"strings"
)

// IsTranslationUnit is what R CMD SHLIB compiles from a package's src/ dir.
func IsTranslationUnit(fileName string) bool {
	switch filepath.Ext(fileName) {
	case ".c", ".cc", ".cpp", ".m", ".mm":
		return true
	}
	return false
}

// IsCppTranslationUnit decides whether a precompiled header may be attached (case-insensitive).
func IsCppTranslationUnit(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	return ext == ".cc" || ext == ".cpp"
}
