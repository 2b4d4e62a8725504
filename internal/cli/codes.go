package cli

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No input files found
	ErrCodeLoadFailed    = "E004" // Samples or schema could not be read
	ErrCodeNotFound      = "E005" // Path, run or generation not found
	ErrCodeInvalidConfig = "E006" // Config file rejected
	ErrCodeStoreFailed   = "E007" // History database error
	ErrCodePipeline      = "E008" // Pipeline run failed
	ErrCodeTestFailed    = "E009" // One or more scenarios failed
)
