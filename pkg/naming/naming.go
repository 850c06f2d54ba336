// Package naming derives state and input-key names from remote function names.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/flowgen/pkg/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FunctionIDSuffix is appended to a function name to form the input key
// that carries its registered function id.
const FunctionIDSuffix = "_funcx_id"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that name is a usable function identifier.
func Validate(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidName, name)
	}
	return nil
}

var (
	letters   = regexp.MustCompile(`[A-Za-z]+`)
	stateName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

// StateName converts a snake_case function name to the CamelCase state name.
// Underscores are dropped and every run of letters is title-cased, so
// "gen_tool_func" becomes "GenToolFunc", "ABC_def" becomes "AbcDef" and
// "func2go" becomes "Func2Go".
func StateName(fn string) string {
	// Caser is stateful and not safe for concurrent use.
	title := cases.Title(language.Und)
	var b strings.Builder
	for _, part := range strings.Split(fn, "_") {
		b.WriteString(letters.ReplaceAllStringFunc(part, title.String))
	}
	return b.String()
}

// ValidateStateName checks that a derived state name is a non-empty
// identifier starting with a letter.
func ValidateStateName(name string) error {
	if !stateName.MatchString(name) {
		return fmt.Errorf("%w: state name %q", domain.ErrInvalidName, name)
	}
	return nil
}

// FunctionKey returns the flow input key holding fn's registered id.
func FunctionKey(fn string) string {
	return fn + FunctionIDSuffix
}

// FunctionInputPath returns the path reference to fn's registered id.
func FunctionInputPath(fn string) string {
	return domain.InputPathPrefix + FunctionKey(fn)
}

// ResultPath returns the path reference a state's output is written to.
func ResultPath(state string) string {
	return domain.PathPrefix + state
}

var flowName = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// ValidateFlowName checks that name can key a stored flow. Names are used
// as file names and redis keys, so separators are rejected.
func ValidateFlowName(name string) error {
	if len(name) > 128 || !flowName.MatchString(name) {
		return fmt.Errorf("%w: flow name %q", domain.ErrInvalidName, name)
	}
	return nil
}
