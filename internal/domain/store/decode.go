package store

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// toUTF8 normalizes record file bytes. Files saved by Windows editors often
// carry a BOM, and older tools wrote paths in the system code page.
// Undetectable input is read as windows-1252.
func toUTF8(data []byte) ([]byte, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, "UTF-8", nil
	}

	charset, enc := detect(data)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, charset, fmt.Errorf("failed to decode %s: %w", charset, err)
	}
	return bytes.TrimPrefix(out, utf8BOM), charset, nil
}

func detect(data []byte) (string, encoding.Encoding) {
	res, err := chardet.NewTextDetector().DetectBest(data)
	if err == nil {
		if enc, err := htmlindex.Get(res.Charset); err == nil {
			return res.Charset, enc
		}
	}
	return "windows-1252", charmap.Windows1252
}
