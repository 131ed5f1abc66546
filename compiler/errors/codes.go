package errors

// Diagnostic code constants organized by phase
// E001-E099: introspection errors
// E100-E199: directive errors
// E200-E299: codegen errors
// W001-W099: classification warnings
// W100-W199: codegen warnings

const (
	// Introspection errors (E001-E099)
	ErrUnsupportedDeclaration = "E001"
	ErrNoConstructor          = "E002"
	ErrUnreadableSource       = "E003"

	// Directive errors (E100-E199)
	ErrUnknownDirective   = "E100"
	ErrUnknownOption      = "E101"
	ErrInvalidOptionValue = "E102"
	ErrMissingOption      = "E103"
	ErrDuplicateDirective = "E104"

	// Codegen errors (E200-E299)
	ErrEmitFailed   = "E200"
	ErrFormatFailed = "E201"

	// Classification warnings (W001-W099)
	WarnSelfDependency = "W001"

	// Codegen warnings (W100-W199)
	WarnSuperfluousFactory = "W100"
)
