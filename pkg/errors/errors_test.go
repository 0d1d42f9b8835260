package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"new", New(ErrCodeNotReady, "slot %s has no source", "remap/out-0"), "NOT_READY: slot remap/out-0 has no source"},
		{"wrapped", Wrap(ErrCodeDecode, errors.New("unexpected EOF"), "decode poster.json"), "DECODE_ERROR: decode poster.json: unexpected EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeNetwork, cause, "fetch preview")

	if errors.Unwrap(err) != cause {
		t.Error("Unwrap() did not return the cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
}

func TestCodeLookup(t *testing.T) {
	decode := New(ErrCodeDecode, "bad header")
	wrapped := fmt.Errorf("load source: %w", decode)

	tests := []struct {
		name     string
		err      error
		code     Code
		wantIs   bool
		wantCode Code
		wantMsg  string
	}{
		{"direct", decode, ErrCodeDecode, true, ErrCodeDecode, "bad header"},
		{"through fmt wrap", wrapped, ErrCodeDecode, true, ErrCodeDecode, "bad header"},
		{"other code", decode, ErrCodeEncode, false, ErrCodeDecode, "bad header"},
		{"plain error", errors.New("plain"), ErrCodeDecode, false, "", "plain"},
		{"nil", nil, ErrCodeDecode, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.wantIs {
				t.Errorf("Is() = %v, want %v", got, tt.wantIs)
			}
			if got := GetCode(tt.err); got != tt.wantCode {
				t.Errorf("GetCode() = %q, want %q", got, tt.wantCode)
			}
			if tt.err != nil {
				if got := UserMessage(tt.err); got != tt.wantMsg {
					t.Errorf("UserMessage() = %q, want %q", got, tt.wantMsg)
				}
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"decode", New(ErrCodeDecode, "bad header"), 400},
		{"not found", New(ErrCodeDocumentNotFound, "doc"), 404},
		{"not ready", New(ErrCodeNotReady, "no source"), 409},
		{"credentials", New(ErrCodeCredentials, "no key"), 401},
		{"generation", Wrap(ErrCodeGeneration, errors.New("boom"), "synthesis"), 502},
		{"encode", New(ErrCodeEncode, "write"), 500},
		{"plain", errors.New("plain"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
