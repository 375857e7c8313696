package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewAddressModeRejectsWidth(t *testing.T) {
	for _, width := range []int{0, 4, 12, 32} {
		if _, err := NewAddressMode(width, false, false); !errors.Is(err, ErrUnsupportedWidth) {
			t.Fatalf("width=%d expected ErrUnsupportedWidth, got %v", width, err)
		}
	}
	if _, err := Encode(AddressMode{}, Frame{Values: []Word{1}}); !errors.Is(err, ErrUnsupportedWidth) {
		t.Fatalf("zero mode expected ErrUnsupportedWidth, got %v", err)
	}
}

func TestAddressMask(t *testing.T) {
	cases := []struct {
		extended, burst bool
		want            uint16
	}{
		{false, false, 0x7F},
		{false, true, 0x3F},
		{true, false, 0x7FFF},
		{true, true, 0x3FFF},
	}
	for _, tc := range cases {
		m := MustAddressMode(8, tc.extended, tc.burst)
		if got := m.AddressMask(); got != tc.want {
			t.Fatalf("%s mask got=0x%X want=0x%X", m, got, tc.want)
		}
	}
}

func TestEncodeSingleByteWrites(t *testing.T) {
	mode := MustAddressMode(8, false, false)
	got, err := Encode(mode, NewWriteFrame(mode, 0x02, 0xCA))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(got, []byte{0x82, 0xCA}) {
		t.Fatalf("got=% X", got)
	}
	got, err = Encode(mode, NewReadFrame(mode, 0x10, 1))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(got, []byte{0x10, 0x00}) {
		t.Fatalf("got=% X", got)
	}
}

func TestEncodeFlagPlacement(t *testing.T) {
	cases := []struct {
		name     string
		extended bool
		write    bool
		burst    bool
		want     []byte
	}{
		{"simple-read", false, false, false, []byte{0x05}},
		{"simple-write", false, true, false, []byte{0x85}},
		{"simple-burst-read", false, false, true, []byte{0x45}},
		{"simple-burst-write", false, true, true, []byte{0xC5}},
		{"ext-read", true, false, false, []byte{0x00, 0x05}},
		{"ext-write", true, true, false, []byte{0x80, 0x05}},
		{"ext-burst-read", true, false, true, []byte{0x40, 0x05}},
		{"ext-burst-write", true, true, true, []byte{0xC0, 0x05}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mode := MustAddressMode(8, tc.extended, true)
			f := Frame{Address: 0x05, Write: tc.write, Burst: tc.burst, Values: []Word{0x11}}
			got, err := Encode(mode, f)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !bytes.Equal(got[:mode.AddressBytes()], tc.want) {
				t.Fatalf("address phase got=% X want=% X", got[:mode.AddressBytes()], tc.want)
			}
		})
	}
}

func TestEncodeWidthPacking(t *testing.T) {
	wide := MustAddressMode(16, true, true)
	got, err := Encode(wide, NewWriteFrame(wide, 0x10, 0xAA10, 0x0102))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0xC0, 0x10, 0xAA, 0x10, 0x01, 0x02}
	if !bytes.Equal(got, want) {
		t.Fatalf("got=% X want=% X", got, want)
	}

	narrow := MustAddressMode(8, true, true)
	got, err = Encode(narrow, NewWriteFrame(narrow, 0x10, 0xAA, 0x01))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want = []byte{0xC0, 0x10, 0xAA, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("got=% X want=% X", got, want)
	}
	if n := ExpectedLen(narrow, NewReadFrame(narrow, 0, 3)); n != 5 {
		t.Fatalf("expected len got=%d", n)
	}
}

func TestEncodeRejections(t *testing.T) {
	simple := MustAddressMode(8, false, false)
	burst := MustAddressMode(8, false, true)
	cases := []struct {
		name string
		mode AddressMode
		f    Frame
		want error
	}{
		{"burst-on-plain-mode", simple, NewWriteFrame(simple, 0x01, 1, 2), ErrBurstNotSupported},
		{"burst-flag-on-plain-mode", simple, Frame{Address: 1, Write: true, Burst: true, Values: []Word{1}}, ErrBurstNotSupported},
		{"missing-burst-flag", burst, Frame{Address: 1, Write: true, Values: []Word{1, 2}}, ErrMissingBurstFlag},
		{"address-7bit", simple, NewWriteFrame(simple, 0x80, 1), ErrAddressOutOfRange},
		{"address-6bit", burst, NewWriteFrame(burst, 0x40, 1), ErrAddressOutOfRange},
		{"value-width", simple, NewWriteFrame(simple, 0x01, 0x100), ErrValueOutOfRange},
		{"empty", simple, NewWriteFrame(simple, 0x01), ErrEmptyFrame},
		{"empty-read", simple, NewReadFrame(simple, 0x01, 0), ErrEmptyFrame},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.mode, tc.f)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(got) != 0 {
				t.Fatalf("rejected frame produced bytes % X", got)
			}
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	wide := MustAddressMode(16, true, false)
	got, err := DecodeResponse(wide, []byte{0x00, 0x00, 0xCA, 0xFE, 0x12, 0x34})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]Word{0xCAFE, 0x1234}, got); diff != "" {
		t.Fatalf("words (-want +got):\n%s", diff)
	}

	if _, err := DecodeResponse(wide, []byte{0x00, 0x00, 0xCA}); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("odd data expected ErrMalformedResponse, got %v", err)
	}
	if _, err := DecodeResponse(wide, []byte{0x00}); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("short address expected ErrMalformedResponse, got %v", err)
	}
	empty, err := DecodeResponse(wide, []byte{0x00, 0x00})
	if err != nil || len(empty) != 0 {
		t.Fatalf("address-only response got=%v err=%v", empty, err)
	}
}

func TestMirroredRoundTrip(t *testing.T) {
	for _, width := range []int{8, 16} {
		for _, extended := range []bool{false, true} {
			for _, burst := range []bool{false, true} {
				mode := MustAddressMode(width, extended, burst)
				n := 1
				if burst {
					n = 4
				}
				values := make([]Word, n)
				for i := range values {
					values[i] = Word(0xA5+i) & mode.MaxWord()
				}
				frames := []Frame{
					NewWriteFrame(mode, mode.AddressMask(), values...),
					NewReadFrame(mode, 0, n),
				}
				for _, f := range frames {
					raw, err := Encode(mode, f)
					if err != nil {
						t.Fatalf("%s %s encode: %v", mode, f, err)
					}
					got, err := DecodeResponse(mode, raw)
					if err != nil {
						t.Fatalf("%s %s decode: %v", mode, f, err)
					}
					if diff := cmp.Diff(f.Values, got); diff != "" {
						t.Fatalf("%s %s round trip (-want +got):\n%s", mode, f, diff)
					}
				}
			}
		}
	}
}

func TestParseAddressInvertsAddressWord(t *testing.T) {
	mode := MustAddressMode(16, true, true)
	f := NewWriteFrame(mode, 0x1234, 1, 2, 3)
	raw, err := Encode(mode, f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cmd, err := ParseAddress(mode, raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Command{Address: 0x1234, Write: true, Burst: true}
	if cmd != want {
		t.Fatalf("got=%+v want=%+v", cmd, want)
	}

	plain := MustAddressMode(8, false, false)
	cmd, err = ParseAddress(plain, []byte{0xFF})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd != (Command{Address: 0x7F, Write: true}) {
		t.Fatalf("plain got=%+v", cmd)
	}
}
