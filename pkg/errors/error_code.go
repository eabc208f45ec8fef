package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter  ErrorCode = 100
	ErrCodeConfigValidation  ErrorCode = 101
	ErrCodeInsufficientData  ErrorCode = 102
	ErrCodeInvalidPeriod     ErrorCode = 103
	ErrCodeMissingParameter  ErrorCode = 104
	ErrCodeInvalidConfidence ErrorCode = 105

	// Strategy errors (400-499)
	ErrCodeUnknownStrategy       ErrorCode = 400
	ErrCodeStrategyConfigError   ErrorCode = 401
	ErrCodeStrategyRuntimeError  ErrorCode = 402
	ErrCodeInsufficientUniverse  ErrorCode = 403

	// Simulation errors (600-699)
	ErrCodeSimulationFailed   ErrorCode = 600
	ErrCodeSimulationAborted  ErrorCode = 601
	ErrCodeEmptySimulation    ErrorCode = 602
	ErrCodeRebalanceFailed    ErrorCode = 603

	// Data errors (700-799)
	ErrCodeDataIntegrity   ErrorCode = 700
	ErrCodeDataNotFound    ErrorCode = 701
	ErrCodeDataParseFailed ErrorCode = 702
	ErrCodeDataReadFailed  ErrorCode = 703

	// Result/serialization errors (800-899)
	ErrCodeResultWriteFailed ErrorCode = 800
)
