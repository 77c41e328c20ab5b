package apperror

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestNew_DefaultsFromCode(t *testing.T) {
	err := New(CodeEmptyBundle)

	if err.Message != messages[CodeEmptyBundle] {
		t.Errorf("Message = %q, want %q", err.Message, messages[CodeEmptyBundle])
	}
	if err.Kind != KindRejected {
		t.Errorf("Kind = %s, want %s", err.Kind, KindRejected)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		code      Code
		want      Kind
		transient bool
	}{
		{CodeConnectionError, KindTransient, true},
		{CodeConfirmationTimeout, KindTransient, true},
		{CodeWebSocketClosed, KindTransient, true},
		{CodeExecutorBusy, KindTransient, true},
		{CodeInvalidPublicKey, KindInvalid, false},
		{CodeConfigurationError, KindInvalid, false},
		{CodeAccountNotFound, KindNotFound, false},
		{CodeRPCError, KindRejected, false},
		{CodeSigningFailed, KindInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code)
			if err.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", err.Kind, tt.want)
			}
			if err.Transient() != tt.transient {
				t.Errorf("Transient = %v, want %v", err.Transient(), tt.transient)
			}
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(CodeLookupError, WithContext("pool abc"), WithCause(errors.New("timeout")))
	want := "POOL_LOOKUP_FAILED: " + messages[CodeLookupError] + " (pool abc): timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestLogValue(t *testing.T) {
	v := New(CodeRPCError, WithContext("getSlot")).LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("Kind = %s, want group", v.Kind())
	}
	got := map[string]string{}
	for _, a := range v.Group() {
		got[a.Key] = a.Value.String()
	}
	if got["code"] != string(CodeRPCError) || got["context"] != "getSlot" || got["kind"] != string(KindRejected) {
		t.Errorf("unexpected attrs %v", got)
	}
}

func TestIs_MatchesByCode(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("get slot: %w", New(CodeConnectionError, WithCause(cause)))

	if !errors.Is(err, New(CodeConnectionError)) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(err, New(CodeSubscriptionError)) {
		t.Error("errors.Is should not match a different code")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should stay reachable through Unwrap")
	}
}

func TestHasCode_WalksNestedAppErrors(t *testing.T) {
	inner := New(CodeRPCError, WithContext("sendTransaction"))
	outer := New(CodeSubmissionError, WithCause(inner))

	tests := []struct {
		name string
		code Code
		want bool
	}{
		{"outer", CodeSubmissionError, true},
		{"inner", CodeRPCError, true},
		{"absent", CodeConfirmationTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(outer, tt.code); got != tt.want {
				t.Errorf("HasCode(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(errors.New("plain")); got != CodeUnknownError {
		t.Errorf("GetCode(plain) = %s, want %s", got, CodeUnknownError)
	}
	if got := GetCode(Wrap(errors.New("x"), CodeLookupError, "pool")); got != CodeLookupError {
		t.Errorf("GetCode(wrapped) = %s, want %s", got, CodeLookupError)
	}
}
