package compdb

import (
	"path/filepath"
	"regexp"
	"strings"

	"rcompdb/internal/common"
)

// reCompileLineToken splits a command line on blanks, keeping "double quoted" segments inside a token.
var reCompileLineToken = regexp.MustCompile(`(?:"[^"]*"|[^\s"])+`)

// prefixes of arguments that matter for semantic analysis:
// include paths, macro definitions, -include/-isystem/-iquote family, and the language standard
var relevantArgPrefixes = []string{"-I", "-D", "-i", "-std"}

// options that may be written with a value as a separate token: `-I /dir`, `-isystem /dir`
var separatedArgOptions = map[string]bool{
	"-I":                 true,
	"-D":                 true,
	"-include":           true,
	"-isystem":           true,
	"-iquote":            true,
	"-idirafter":         true,
	"-imacros":           true,
	"-isysroot":          true,
	"-iprefix":           true,
	"-iwithprefix":       true,
	"-iwithprefixbefore": true,
}

// ParseCompilationResults finds the line compiling srcFile in a dry-run build log
// and extracts its relevant arguments.
// A line is recognized by "-c <file name> -o <file stem>"; every such line contributes, in order.
func ParseCompilationResults(srcFile string, results string) []string {
	marker := "-c " + filepath.Base(srcFile) + " -o " + common.FileStem(srcFile)

	var compileArgs []string
	lines := strings.FieldsFunc(results, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
	for _, line := range lines {
		if strings.Contains(line, marker) {
			compileArgs = append(compileArgs, ExtractCompileArgs(line)...)
		}
	}
	return compileArgs
}

// ExtractCompileArgs keeps only relevant arguments of a compiler command line; the first token (the compiler) is skipped.
// Quotes are dropped and inner whitespace is collapsed: `-I"/Library/R 4/include"` -> `-I/Library/R 4/include`.
func ExtractCompileArgs(line string) []string {
	tokens := reCompileLineToken.FindAllString(line, -1)

	var args []string
	for i := 1; i < len(tokens); i++ {
		arg := normalizeCompileArg(tokens[i])
		if !isRelevantCompileArg(arg) {
			continue
		}

		if separatedArgOptions[arg] {
			if i+1 >= len(tokens) || strings.HasPrefix(tokens[i+1], "-") {
				continue // a dangling option without a value
			}
			i++
			value := normalizeCompileArg(tokens[i])
			if arg == "-I" || arg == "-D" {
				args = append(args, arg+value)
			} else {
				args = append(args, arg, value)
			}
			continue
		}

		args = append(args, arg)
	}
	return args
}

func isRelevantCompileArg(arg string) bool {
	for _, prefix := range relevantArgPrefixes {
		if strings.HasPrefix(arg, prefix) {
			return true
		}
	}
	return false
}

func normalizeCompileArg(token string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(token, `"`, "")), " ")
}

// ExtractStdArg returns the first -std= argument, or empty.
func ExtractStdArg(args []string) string {
	for _, arg := range args {
		if strings.HasPrefix(arg, "-std=") {
			return arg
		}
	}
	return ""
}
