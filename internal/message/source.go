package message

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// DataSource is a readable byte source backing one attachment. A source
// is produced by exactly one of FileSource, ReaderSource, or BytesSource
// and is consumed exactly once when the carrying message is encoded.
// Sources are not safe for concurrent reads and must not be reused
// across messages.
type DataSource struct {
	rc io.ReadCloser
}

// FileSource opens the file at path. The open happens here so that a
// missing or unreadable file fails at construction time, before any
// network submission.
func FileSource(path string) (DataSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("%w: open attachment file: %v", ErrInvalidArgument, err)
	}
	return DataSource{rc: f}, nil
}

// ReaderSource adopts an already-open stream. The stream is closed by
// the encoder after it has been consumed.
func ReaderSource(r io.Reader) DataSource {
	if r == nil {
		return DataSource{}
	}
	if rc, ok := r.(io.ReadCloser); ok {
		return DataSource{rc: rc}
	}
	return DataSource{rc: io.NopCloser(r)}
}

// BytesSource wraps an in-memory buffer.
func BytesSource(b []byte) DataSource {
	return DataSource{rc: io.NopCloser(bytes.NewReader(b))}
}

func (s DataSource) valid() bool { return s.rc != nil }

// Open hands the underlying reader to the consumer, which owns closing it.
func (s DataSource) Open() io.ReadCloser { return s.rc }

// Attachment is one named file carried by a message. Its source is read
// to completion exactly once during payload encoding.
type Attachment struct {
	Name   string
	Source DataSource
}

func newAttachment(name string, src DataSource) (*Attachment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: attachment name must not be blank", ErrInvalidArgument)
	}
	if !src.valid() {
		return nil, fmt.Errorf("%w: attachment %q has no data source", ErrInvalidArgument, name)
	}
	return &Attachment{Name: name, Source: src}, nil
}
