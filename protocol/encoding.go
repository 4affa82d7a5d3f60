// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode/utf16"
)

// DecodeText converts the text form of write data into bytes using the
// named encoding. The empty name means utf8. Names are matched case-
// insensitively:
//
//   - utf8, utf-8: the string's bytes
//   - ascii, latin1, binary: the low byte of each code point
//   - utf16le, ucs2: UTF-16 little-endian code units
//   - hex: pairs of hex digits
//   - base64, base64url: either alphabet, padding optional
//
// An unknown encoding or undecodable text returns an [*Error] with
// [CodeProtocol].
func DecodeText(text, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "utf8", "utf-8":
		return []byte(text), nil

	case "ascii", "latin1", "binary":
		runes := []rune(text)
		output := make([]byte, len(runes))
		for i, r := range runes {
			output[i] = byte(r)
		}
		return output, nil

	case "utf16le", "utf-16le", "ucs2", "ucs-2":
		units := utf16.Encode([]rune(text))
		output := make([]byte, 2*len(units))
		for i, unit := range units {
			output[2*i] = byte(unit)
			output[2*i+1] = byte(unit >> 8)
		}
		return output, nil

	case "hex":
		output, err := hex.DecodeString(text)
		if err != nil {
			return nil, Errorf(CodeProtocol, "write: invalid hex data: %v", err)
		}
		return output, nil

	case "base64", "base64url":
		return decodeBase64(text)

	default:
		return nil, Errorf(CodeProtocol, "write: unknown encoding %q", encoding)
	}
}

// decodeBase64 accepts both the standard and URL-safe alphabets, with
// or without padding, ignoring whitespace.
func decodeBase64(text string) ([]byte, error) {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case '-':
			return '+'
		case '_':
			return '/'
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, text)
	normalized = strings.TrimRight(normalized, "=")

	output, err := base64.RawStdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, Errorf(CodeProtocol, "write: invalid base64 data: %v", err)
	}
	return output, nil
}
