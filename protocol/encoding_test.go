// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeText(t *testing.T) {
	cases := []struct {
		text     string
		encoding string
		want     []byte
	}{
		{"héllo", "", []byte("héllo")},
		{"héllo", "UTF-8", []byte("héllo")},
		{"héllo", "latin1", []byte{'h', 0xe9, 'l', 'l', 'o'}},
		{"abc", "ascii", []byte("abc")},
		{"hi", "utf16le", []byte{'h', 0, 'i', 0}},
		{"DEADbeef", "hex", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"aGk=", "base64", []byte("hi")},
		{"aGk", "base64", []byte("hi")},
		{"-_8", "base64url", []byte{0xfb, 0xff}},
		{"+/8=", "base64url", []byte{0xfb, 0xff}},
		{"aG\nk=", "base64", []byte("hi")},
	}
	for _, test := range cases {
		got, err := DecodeText(test.text, test.encoding)
		if err != nil {
			t.Errorf("DecodeText(%q, %q): %v", test.text, test.encoding, err)
			continue
		}
		if !bytes.Equal(got, test.want) {
			t.Errorf("DecodeText(%q, %q) = %x, want %x", test.text, test.encoding, got, test.want)
		}
	}
}

func TestDecodeTextErrors(t *testing.T) {
	for _, test := range []struct{ text, encoding string }{
		{"abc", "hex"},
		{"a", "base64"},
		{"x", "ebcdic"},
	} {
		if _, err := DecodeText(test.text, test.encoding); !errors.Is(err, ErrProtocol) {
			t.Errorf("DecodeText(%q, %q) error = %v, want ErrProtocol", test.text, test.encoding, err)
		}
	}
}
