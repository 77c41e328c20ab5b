package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Ledger gateway errors
	CodeConnectionError:   "Failed to reach the ledger endpoint",
	CodeSubscriptionError: "Failed to subscribe to ledger logs",
	CodeRPCError:          "Ledger RPC call returned an error",
	CodeAccountNotFound:   "Account not found",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Pool errors
	CodeLookupError:       "Pool state lookup failed",
	CodeInvalidPoolLayout: "Pool account data has an unexpected layout",

	// Listener errors
	CodeListenerNotStopped: "Listener can only be started from the stopped state",

	// Arbitrage errors
	CodeEmptyBundle:            "Cannot create a bundle from zero opportunities",
	CodeInsufficientLiquidity:  "Insufficient pool liquidity",
	CodeInvalidTradeSize:       "Invalid trade size",
	CodePriceCalculationFailed: "Price calculation failed",

	// Execution errors
	CodeConfirmationTimeout: "Transaction was not confirmed before the deadline",
	CodeSubmissionError:     "Transaction submission failed",
	CodeTransactionTooLarge: "Transaction exceeds the packet size limit",
	CodeSigningFailed:       "Transaction signing failed",
	CodeExecutorBusy:        "Executor queue is full",

	// Key errors
	CodeInvalidPublicKey: "Invalid public key",
	CodeInvalidKeypair:   "Invalid keypair",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
