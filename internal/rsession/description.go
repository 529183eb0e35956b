package rsession

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PackageInfo holds the DESCRIPTION fields that influence native compilation.
type PackageInfo struct {
	Name               string
	Version            string
	LinkingTo          string
	SystemRequirements string
}

func ReadPackageInfo(packageDir string) (*PackageInfo, error) {
	fileName := filepath.Join(packageDir, "DESCRIPTION")
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fields, err := parseDcf(f)
	if err != nil {
		return nil, fmt.Errorf("can't parse %s: %v", fileName, err)
	}
	if fields["Package"] == "" {
		return nil, fmt.Errorf("%s has no Package field", fileName)
	}
	return &PackageInfo{
		Name:               fields["Package"],
		Version:            fields["Version"],
		LinkingTo:          fields["LinkingTo"],
		SystemRequirements: fields["SystemRequirements"],
	}, nil
}

// parseDcf reads the first record of a Debian-control-style file.
// Continuation lines start with blanks and are joined with a single space.
func parseDcf(r io.Reader) (map[string]string, error) {
	fields := make(map[string]string)
	lastKey := ""
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if len(fields) > 0 {
				break
			}
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey == "" {
				return nil, fmt.Errorf("line %d: continuation without a field", lineNo)
			}
			fields[lastKey] += " " + strings.TrimSpace(line)
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("line %d: expected 'Field: value'", lineNo)
		}
		lastKey = line[:colon]
		fields[lastKey] = strings.TrimSpace(line[colon+1:])
	}
	return fields, scanner.Err()
}

var reVersionConstraint = regexp.MustCompile(`\s*\(.*?\)`)

// ParseLinkingTo splits "Rcpp (>= 0.11.0), RcppArmadillo" into package names.
func ParseLinkingTo(linkingTo string) []string {
	var names []string
	for _, part := range strings.Split(linkingTo, ",") {
		name := strings.TrimSpace(reVersionConstraint.ReplaceAllString(part, ""))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// PackagePCH picks the dependency whose headers are worth precompiling for a package.
// More specific umbrella headers win, since they include Rcpp.h themselves.
func PackagePCH(linkingTo string) string {
	names := ParseLinkingTo(linkingTo)
	for _, candidate := range []string{"RcppArmadillo", "RcppEigen", "Rcpp"} {
		for _, name := range names {
			if name == candidate {
				return candidate
			}
		}
	}
	return ""
}
