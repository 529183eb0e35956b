package compdb

import (
	"os"
	"regexp"
	"strings"
)

// AnnotationScheme recognizes standalone sources that a dependency's build workflow can compile,
// and fingerprints their dependency annotations.
type AnnotationScheme struct {
	DependencyName string

	reIncompatible *regexp.Regexp // a sibling variant of the dependency which the workflow can't handle
	reAnnotation   *regexp.Regexp
	reUmbrella     *regexp.Regexp // a direct include of the dependency's umbrella header
}

// RcppScheme handles `// [[Rcpp::depends(...)]]` style attributes of Rcpp::sourceCpp files.
// Rcpp11 sources are excluded: sourceCpp of Rcpp can't drive them (packages using Rcpp11 are fine).
var RcppScheme = &AnnotationScheme{
	DependencyName: "Rcpp",
	reIncompatible: regexp.MustCompile(`#include\s+<Rcpp11`),
	reAnnotation:   regexp.MustCompile(`(?m)^\s*//\s*\[\[Rcpp::(\w+)(\(.*?\))?\]\]\s*$`),
	reUmbrella:     regexp.MustCompile(`#include\s+<Rcpp`),
}

// SourceFingerprint returns a string that changes whenever dependency annotations of a file change.
// Empty means "not a file of this workflow".
func (scheme *AnnotationScheme) SourceFingerprint(contents string) string {
	if scheme.reIncompatible.MatchString(contents) {
		return ""
	}

	var fingerprint strings.Builder
	for _, match := range scheme.reAnnotation.FindAllString(contents, -1) {
		fingerprint.WriteString(strings.Join(strings.Fields(match), " "))
	}
	if fingerprint.Len() > 0 {
		return fingerprint.String()
	}

	if scheme.reUmbrella.MatchString(contents) {
		return scheme.DependencyName
	}
	return ""
}

// FileFingerprint is SourceFingerprint of a file; a read error is logged and gives an empty fingerprint.
func (scheme *AnnotationScheme) FileFingerprint(fileName string) string {
	contents, err := os.ReadFile(fileName)
	if err != nil {
		logCompdb.Error("can't read", fileName, err)
		return ""
	}
	return scheme.SourceFingerprint(string(contents))
}
