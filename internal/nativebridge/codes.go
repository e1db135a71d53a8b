// Package nativebridge owns the opaque handles bridging the SDK to the
// underlying native inference engine. It is the single authority for handle
// creation, resource binding, and teardown ordering.
package nativebridge

// Code is a native engine result code. Every native call returns one and no
// non-success code is ever silently dropped.
type Code int32

const (
	CodeSuccess Code = 0

	CodeInvalidArgument    Code = 1
	CodeInvalidHandle      Code = 2
	CodeNotInitialized     Code = 3
	CodeBackendInitFailed  Code = 4
	CodeModelLoadFailed    Code = 5
	CodeModelNotLoaded     Code = 6
	CodeNotSupported       Code = 7
	CodeOutOfMemory        Code = 8
	CodeInferenceFailed    Code = 9
	CodeTimeout            Code = 10
	CodeCancelled          Code = 11
	CodeAlreadyRegistered  Code = 12
	CodeResourceNotFound   Code = 13
	CodeProcessingFailed   Code = 14
	CodeInsufficientMemory Code = 15
	CodeNotImplemented     Code = 16
)

var codeNames = map[Code]string{
	CodeSuccess:            "success",
	CodeInvalidArgument:    "invalid_argument",
	CodeInvalidHandle:      "invalid_handle",
	CodeNotInitialized:     "not_initialized",
	CodeBackendInitFailed:  "backend_init_failed",
	CodeModelLoadFailed:    "model_load_failed",
	CodeModelNotLoaded:     "model_not_loaded",
	CodeNotSupported:       "not_supported",
	CodeOutOfMemory:        "out_of_memory",
	CodeInferenceFailed:    "inference_failed",
	CodeTimeout:            "timeout",
	CodeCancelled:          "cancelled",
	CodeAlreadyRegistered:  "already_registered",
	CodeResourceNotFound:   "resource_not_found",
	CodeProcessingFailed:   "processing_failed",
	CodeInsufficientMemory: "insufficient_memory",
	CodeNotImplemented:     "not_implemented",
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// OK reports whether the code is the success code.
func (c Code) OK() bool { return c == CodeSuccess }
