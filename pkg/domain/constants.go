package domain

// Well-known state field keys.
const (
	FieldComment                  = "Comment"
	FieldType                     = "Type"
	FieldActionURL                = "ActionUrl"
	FieldActionScope              = "ActionScope"
	FieldExceptionOnActionFailure = "ExceptionOnActionFailure"
	FieldParameters               = "Parameters"
	FieldInputPath                = "InputPath"
	FieldResultPath               = "ResultPath"
	FieldWaitTime                 = "WaitTime"
	FieldNext                     = "Next"
	FieldEnd                      = "End"
)

// Defaults for states generated from remote functions.
const (
	// StateTypeAction is the type tag of a remote-execution step.
	StateTypeAction = "Action"

	// ComputeActionURL identifies the remote compute action provider.
	ComputeActionURL = "https://api.funcx.org/automate"

	// ComputeActionScope is the auth scope required by ComputeActionURL.
	ComputeActionScope = "https://auth.globus.org/scopes/facd7ccc-c5f4-42aa-916b-a0e270e2c2a9/automate2"

	// DefaultWaitTime is the generated step timeout, in seconds.
	DefaultWaitTime = 300

	// EndpointInputPath selects the compute endpoint from the flow input.
	EndpointInputPath = "$.input.funcx_endpoint_compute"

	// PayloadInputPath passes the whole flow input to the function.
	PayloadInputPath = "$.input"

	// InputPathPrefix is prepended to shorthand modifier values.
	InputPathPrefix = "$.input."

	// PathPrefix marks a string as a path reference.
	PathPrefix = "$."

	// PathSuffix marks a parameter key whose value is a path reference.
	PathSuffix = ".$"
)
