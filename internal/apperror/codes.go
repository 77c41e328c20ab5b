package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Arbitrage pipeline error codes
const (
	// Ledger gateway errors
	CodeConnectionError   Code = "LEDGER_CONNECTION_ERROR"
	CodeSubscriptionError Code = "LOG_SUBSCRIPTION_FAILED"
	CodeRPCError          Code = "LEDGER_RPC_ERROR"
	CodeAccountNotFound   Code = "ACCOUNT_NOT_FOUND"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Pool errors
	CodeLookupError       Code = "POOL_LOOKUP_FAILED"
	CodeInvalidPoolLayout Code = "INVALID_POOL_LAYOUT"

	// Listener errors
	CodeListenerNotStopped Code = "LISTENER_NOT_STOPPED"

	// Arbitrage errors
	CodeEmptyBundle            Code = "EMPTY_BUNDLE"
	CodeInsufficientLiquidity  Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidTradeSize       Code = "INVALID_TRADE_SIZE"
	CodePriceCalculationFailed Code = "PRICE_CALCULATION_FAILED"

	// Execution errors
	CodeConfirmationTimeout Code = "CONFIRMATION_TIMEOUT"
	CodeSubmissionError     Code = "TRANSACTION_SUBMISSION_FAILED"
	CodeTransactionTooLarge Code = "TRANSACTION_TOO_LARGE"
	CodeSigningFailed       Code = "SIGNING_FAILED"
	CodeExecutorBusy        Code = "EXECUTOR_BUSY"

	// Key errors
	CodeInvalidPublicKey Code = "INVALID_PUBLIC_KEY"
	CodeInvalidKeypair   Code = "INVALID_KEYPAIR"

	// Cache errors
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheExpired Code = "CACHE_EXPIRED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
