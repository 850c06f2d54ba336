package flowgen

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the released version of flowgen.
var Version = strings.TrimSpace(version)
