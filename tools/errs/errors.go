package errs

// Error taxonomy for the delivery core. Codes are stable; clients key off them.
var (
	ErrValidation   = NewCodeError(1001, "validation failed")   // rejected before persistence, no side effects
	ErrPersistence  = NewCodeError(1002, "persistence failed")  // store write failed, delivery aborted
	ErrEmission     = NewCodeError(1003, "emission failed")     // socket vanished between lookup and send; non-fatal
	ErrUnauthorized = NewCodeError(1004, "unauthorized")        // missing/invalid token
	ErrNotFound     = NewCodeError(1005, "not found")
	ErrConflict     = NewCodeError(1006, "already exists")
)
