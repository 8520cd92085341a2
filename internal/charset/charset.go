// Package charset resolves the encoding tag stamped on every raw field.
//
// The tag travels with field text unchanged; decoding only happens when
// header names have to be compared with configured (UTF-8) column names.
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// Tag names the encoding of a source buffer.
type Tag string

const (
	// UTF8 is the default tag.
	UTF8 Tag = "UTF-8"
	// Binary marks opaque bytes with no declared character set.
	Binary Tag = "BINARY"
)

// Charset pairs a Tag with the decoder used to read header names.
type Charset struct {
	Tag Tag
	enc encoding.Encoding
}

// Default returns the UTF-8 charset.
func Default() Charset { return Charset{Tag: UTF8, enc: unicode.UTF8} }

// Lookup resolves an encoding name. The empty name means UTF-8; "BINARY" and
// "ASCII-8BIT" name opaque bytes. Everything else goes through the IANA/MIME
// registry and is tagged with its preferred MIME name.
func Lookup(name string) (Charset, error) {
	n := strings.TrimSpace(name)
	switch strings.ToUpper(n) {
	case "", "UTF-8", "UTF8":
		return Default(), nil
	case "BINARY", "ASCII-8BIT":
		return Charset{Tag: Binary, enc: encoding.Nop}, nil
	}

	enc, err := ianaindex.MIME.Encoding(n)
	if err != nil {
		return Charset{}, fmt.Errorf("charset: unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return Charset{}, fmt.Errorf("charset: encoding %q is not supported", name)
	}
	canon, err := ianaindex.MIME.Name(enc)
	if err != nil || canon == "" {
		canon = strings.ToUpper(n)
	}
	return Charset{Tag: Tag(canon), enc: enc}, nil
}

// Decode converts s from the charset to UTF-8. Binary and UTF-8 text are
// returned as is, as is any text the decoder rejects.
func (c Charset) Decode(s string) string {
	if c.enc == nil || c.enc == encoding.Nop || c.Tag == UTF8 {
		return s
	}
	out, err := c.enc.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}

// Key normalizes a column name for comparison: NFC, so that composed and
// decomposed spellings of the same header match.
func Key(s string) string {
	return norm.NFC.String(s)
}

// HeaderName decodes a raw header cell tagged with tag and returns the
// normalized name. Unknown tags leave the text undecoded.
func HeaderName(text string, tag string) string {
	c, err := Lookup(tag)
	if err != nil {
		return Key(text)
	}
	return Key(c.Decode(text))
}
