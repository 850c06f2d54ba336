// Package schema provides the small type system used to check state fields.
//
// Schemas map field names to types. StateFields covers the well-known fields
// of a flow state; manifests may extend it with their own field types:
//
//	fields, err := schema.ParseTypeMap(map[string]string{
//	    "Retries": "int",
//	    "Tags":    "[string]",
//	})
//	all := schema.StateFields.Merge(fields)
//
//	if err := schema.ValidateState(all, state); err != nil {
//	    // Handle validation errors
//	}
package schema
