package xerrors

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&MalformedPage{Block: 5, Reason: "lower>upper"}, "block 5"},
		{&ItemOverrun{Block: 5, Slot: 2}, "slot 2"},
		{&AttrOverflow{Index: 3}, "attribute 3"},
		{&BadVarlena{Reason: "truncated"}, "truncated"},
		{&CompressionError{Method: "pglz", Reason: "bad offset"}, "pglz"},
		{&ToastMissing{ValueID: 42}, "42"},
		{&EncodingError{ByteOffset: 10}, "offset 10"},
	}
	for _, c := range cases {
		if !strings.Contains(c.err.Error(), c.want) {
			t.Errorf("error %q missing %q", c.err.Error(), c.want)
		}
	}
}

func TestFatalUnwrapsAndCapturesStack(t *testing.T) {
	base := errors.New("disk read failed")
	fatal := NewFatal(base)
	if !errors.Is(fatal, base) {
		t.Fatalf("expected Fatal to unwrap to its cause")
	}
	if !strings.Contains(fatal.StackTrace(), "disk read failed") {
		t.Fatalf("expected stack trace to include cause message")
	}
}
