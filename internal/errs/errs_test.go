package errs

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestCodeOfFindsOutermostCode(t *testing.T) {
	t.Parallel()

	inner := E(CodeStorage, io.ErrUnexpectedEOF, "insert submission")
	outer := Wrap(inner, "capture submission")

	if got := CodeOf(outer); got != CodeStorage {
		t.Fatalf("CodeOf() = %q, want %q", got, CodeStorage)
	}
	if !errors.Is(outer, io.ErrUnexpectedEOF) {
		t.Fatal("errors.Is(outer, io.ErrUnexpectedEOF) = false, want true")
	}
	if CodeOf(io.EOF) != CodeUnknown {
		t.Fatalf("CodeOf(io.EOF) = %q, want empty", CodeOf(io.EOF))
	}
}

func TestEKeepsNil(t *testing.T) {
	t.Parallel()

	if err := E(CodeForbidden, nil, "x"); err != nil {
		t.Fatalf("E(nil) = %v, want nil", err)
	}
	if err := Wrap(nil, "x"); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{New(CodeForbidden, "insufficient permissions"), "insufficient permissions"},
		{E(CodeStorage, io.EOF, "query submissions"), "query submissions: EOF"},
		{E(CodeStorage, io.EOF, ""), "EOF"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestLoggableIncludesCodeAndChain(t *testing.T) {
	t.Parallel()

	err := Wrap(E(CodeInvalidRequest, errors.New("bad nonce"), "verify nonce"), "export")
	value := Loggable(err).LogValue()
	if value.Kind() != slog.KindGroup {
		t.Fatalf("kind = %v, want group", value.Kind())
	}

	found := map[string]bool{}
	for _, attr := range value.Group() {
		found[attr.Key] = true
		if attr.Key == "code" && attr.Value.String() != string(CodeInvalidRequest) {
			t.Fatalf("code = %q", attr.Value.String())
		}
	}
	for _, key := range []string{"message", "chain", "code"} {
		if !found[key] {
			t.Fatalf("missing %q in loggable group", key)
		}
	}
}
