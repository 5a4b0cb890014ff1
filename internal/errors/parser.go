package errors

import (
	"regexp"
	"strconv"
	"strings"
)

// Location is a position parsed out of compiler diagnostics.
type Location struct {
	File    string
	Line    int
	Column  int
	Message string
}

var (
	// dart-sass trailer, e.g. "  src/styles/foo.scss 3:13  root stylesheet"
	sassTracePattern = regexp.MustCompile(`^\s*(\S+\.(?:scss|sass|css)) (\d+):(\d+)\s`)
	// dart-sass headline, e.g. "Error: expected \";\"."
	sassMessagePattern = regexp.MustCompile(`^Error: (.+)$`)
	// generic "file:line:col: message" used by esbuild and most CLIs
	colonPattern = regexp.MustCompile(`^(\S+?):(\d+):(\d+):\s*(?:error:\s*)?(.+)$`)
)

// ParseCompilerOutput extracts the first source location from Sass or
// esbuild style diagnostics. The second return value is false when no
// location could be found.
func ParseCompilerOutput(output string) (Location, bool) {
	var loc Location
	found := false

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")

		if loc.Message == "" {
			if m := sassMessagePattern.FindStringSubmatch(strings.TrimSpace(trimmed)); m != nil {
				loc.Message = m[1]
				continue
			}
		}

		if !found {
			if m := sassTracePattern.FindStringSubmatch(trimmed + " "); m != nil {
				loc.File = m[1]
				loc.Line, _ = strconv.Atoi(m[2])
				loc.Column, _ = strconv.Atoi(m[3])
				found = true
				continue
			}
			if m := colonPattern.FindStringSubmatch(strings.TrimSpace(trimmed)); m != nil {
				loc.File = m[1]
				loc.Line, _ = strconv.Atoi(m[2])
				loc.Column, _ = strconv.Atoi(m[3])
				if loc.Message == "" {
					loc.Message = m[4]
				}
				found = true
			}
		}
	}

	if loc.Message == "" {
		for _, line := range lines {
			if s := strings.TrimSpace(line); s != "" {
				loc.Message = s
				break
			}
		}
	}

	return loc, found
}
