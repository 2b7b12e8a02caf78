package record

import (
	"bytes"
	"io"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Record{
		{ID: 0, Value: 0, Timestamp: 0},
		{ID: 1, Value: 20.5, Timestamp: 1700000000},
		{ID: 65535, Value: -123.456, Timestamp: -1},
	}

	for _, want := range cases {
		var buf bytes.Buffer
		if err := Encode(&buf, want); err != nil {
			t.Fatalf("Encode(%v) err = %v", want, err)
		}
		if buf.Len() != Size {
			t.Fatalf("Encode(%v) wrote %d bytes; want %d", want, buf.Len(), Size)
		}

		got, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode() err = %v", err)
		}
		if got != want {
			t.Fatalf("round trip = %v; want %v", got, want)
		}
	}
}

func TestDecodeShortReadIsError(t *testing.T) {
	buf := bytes.NewReader([]byte{1, 2, 3})
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected an error decoding a truncated record")
	} else if err != io.ErrUnexpectedEOF && err != io.EOF {
		t.Fatalf("unexpected error type: %v", err)
	}
}
