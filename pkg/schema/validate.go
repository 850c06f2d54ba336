package schema

import (
	"sort"

	"github.com/aretw0/flowgen/pkg/domain"
)

// Schema is a map of field names to their expected types.
type Schema map[string]Type

// StateFields types the well-known state fields. Fields not listed here are
// carried through untyped.
var StateFields = Schema{
	domain.FieldComment:                  String(),
	domain.FieldType:                     String(),
	domain.FieldActionURL:                String(),
	domain.FieldActionScope:              String(),
	domain.FieldExceptionOnActionFailure: Bool(),
	domain.FieldWaitTime:                 Int(),
	domain.FieldResultPath:               PathRef(),
	domain.FieldInputPath:                PathRef(),
	domain.FieldParameters:               Map(),
}

// Merge returns a new schema with the entries of other overriding s.
func (s Schema) Merge(other Schema) Schema {
	out := make(Schema, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Validate checks that every schema field is present in data and well typed.
// Failures are reported in field-name order.
func Validate(schema Schema, data map[string]any) error {
	var errs []error
	for _, fieldName := range sortedKeys(schema) {
		value, exists := data[fieldName]
		if !exists {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: "required"})
			continue
		}
		if err := schema[fieldName].Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: err.Error(), Value: value})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// ValidatePresent checks only the fields of data the schema knows about.
// Missing fields and fields absent from the schema are ignored.
func ValidatePresent(schema Schema, data map[string]any) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, fieldName := range keys {
		typ, known := schema[fieldName]
		if !known {
			continue
		}
		if err := typ.Validate(data[fieldName]); err != nil {
			errs = append(errs, &ValidationError{Key: fieldName, Reason: err.Error(), Value: data[fieldName]})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// ValidateState checks the typed fields of a state.
func ValidateState(schema Schema, state *domain.State) error {
	data := make(map[string]any, state.Len())
	for _, k := range state.Keys() {
		data[k], _ = state.Get(k)
	}
	return ValidatePresent(schema, data)
}

func sortedKeys(s Schema) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
