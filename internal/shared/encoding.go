package shared

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// ResolveEncoding maps an IANA character set name (e.g. "windows-1251",
// "koi8-r") to its encoding. An empty name means plain UTF-8 and resolves to
// a nil encoding.
func ResolveEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q has no supported implementation", name)
	}
	return enc, nil
}

// NewEncodedWriter wraps w so that UTF-8 input is transcoded to the named
// charset. Runes the charset cannot represent are replaced with its
// substitution byte. Closing the returned writer flushes the transcoder but
// leaves w open. An empty name passes bytes through unchanged.
func NewEncodedWriter(w io.Writer, name string) (io.WriteCloser, error) {
	enc, err := ResolveEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nopWriteCloser{w}, nil
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder())), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
