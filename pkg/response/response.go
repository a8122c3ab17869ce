package response

// Response envelope shared by all HTTP APIs.
type APIResponseCode int

const (
	APIResponseCodeOK         APIResponseCode = 0
	APIResponseCodeBadRequest APIResponseCode = 40000
	APIResponseCodeNotFound   APIResponseCode = 40400
	// APIResponseCodeInvalidTransition is an illegal manual status change or correction.
	APIResponseCodeInvalidTransition APIResponseCode = 40900
	// APIResponseCodeIneligible carries the status that blocked the check-in in data.reason.
	APIResponseCodeIneligible APIResponseCode = 40901
	// APIResponseCodeContention is retryable with the same idempotency key.
	APIResponseCodeContention APIResponseCode = 50300
	APIResponseCodeError      APIResponseCode = 50000
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:                "ok",
	APIResponseCodeBadRequest:        "bad request",
	APIResponseCodeNotFound:          "not found",
	APIResponseCodeInvalidTransition: "invalid transition",
	APIResponseCodeIneligible:        "not eligible for check-in",
	APIResponseCodeContention:        "busy, retry later",
	APIResponseCodeError:             "unexpected error",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// ErrorMsg returns an error response whose message replaces the code default.
func ErrorMsg(code APIResponseCode, msg string) *APIResponse[any] {
	if msg == "" {
		msg = codeToMsg[code]
	}
	return &APIResponse[any]{Code: code, Message: msg}
}
