package utils

// ResponseCode business error code
type ResponseCode int

// Response codes. 0 is success; 1xxx parameter/auth, 2xxx order workflow,
// 3xxx client linking, 4xxx configuration/upstream, 5xxx system.
const (
	CodeSuccess ResponseCode = 0

	CodeInvalidParam ResponseCode = 1001
	CodeUnauthorized ResponseCode = 1002
	CodeForbidden    ResponseCode = 1003
	CodeNotFound     ResponseCode = 1004

	CodeTooManyRequests ResponseCode = 1005

	CodeIllegalTransition    ResponseCode = 2001
	CodeMissingTemplate      ResponseCode = 2002
	CodeMissingActivationKey ResponseCode = 2003
	CodeEmptyOrder           ResponseCode = 2004

	CodeMissingRequiredField ResponseCode = 3001
	CodeClientNotFound       ResponseCode = 3002

	CodeConfigurationRequired ResponseCode = 4001
	CodeUpstreamUnavailable   ResponseCode = 4002
	CodeAuthExpired           ResponseCode = 4003

	CodeInternalError ResponseCode = 5001
	CodeDatabaseError ResponseCode = 5002
	CodeRedisError    ResponseCode = 5003
)
