package nativebridge

import (
	"errors"
	"fmt"

	"github.com/edgekit-ai/edgekit/internal/component"
)

// BridgeError is a typed wrapper around a non-success native result code.
// It carries the failing modality and operation for telemetry.
type BridgeError struct {
	Modality component.Kind
	Op       string
	Code     Code
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("nativebridge: %s %s: %s (code %d)", e.Op, e.Modality, e.Code, e.Code)
}

// ErrorCode implements the stable-code contract used by telemetry.
func (e *BridgeError) ErrorCode() string { return e.Code.String() }

// errorFromCode converts a native result code into an error, nil on success.
func errorFromCode(modality component.Kind, op string, code Code) error {
	if code.OK() {
		return nil
	}
	return &BridgeError{Modality: modality, Op: op, Code: code}
}

// CodeOf extracts the native result code from err. Returns false when err
// does not wrap a BridgeError.
func CodeOf(err error) (Code, bool) {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Code, true
	}
	return CodeSuccess, false
}

// ErrHandleDestroyed indicates a stale handle was used after Destroy.
var ErrHandleDestroyed = errors.New("nativebridge: handle destroyed")
