package domain

// APIResponse is the success/data/error envelope returned by feature routes.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps data in a successful envelope.
func OK[T any](data T) APIResponse[T] {
	return APIResponse[T]{Success: true, Data: data}
}

// Fail builds an error envelope.
func Fail(msg string) APIResponse[any] {
	return APIResponse[any]{Success: false, Error: msg}
}
