// Package sjis decodes the Shift_JIS byte ranges written by the chat client.
package sjis

import (
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Decode converts Shift_JIS bytes to a UTF-8 string. Invalid sequences are
// replaced with U+FFFD; Decode never fails.
func Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// Encode is the inverse of Decode. It is used to build fixtures.
func Encode(s string) ([]byte, error) {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	return out, err
}
