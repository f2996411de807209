package app

import (
	"io"
)

// Body is the response body, produced chunk by chunk. Next returns io.EOF
// once the body is exhausted. A Body that also implements io.Closer is
// closed after consumption, whether or not it completed.
type Body interface {
	Next() ([]byte, error)
}

const readChunkSize = 32 << 10

// Chunks returns a Body yielding the given chunks in order.
func Chunks(chunks ...[]byte) Body {
	return &chunkBody{chunks: chunks}
}

type chunkBody struct {
	chunks [][]byte
}

func (b *chunkBody) Next() ([]byte, error) {
	if len(b.chunks) == 0 {
		return nil, io.EOF
	}
	c := b.chunks[0]
	b.chunks = b.chunks[1:]
	return c, nil
}

// ReaderBody returns a Body reading r in chunks. A chunk is only valid until
// the next call to Next. Closing the Body closes r when r is an io.Closer.
func ReaderBody(r io.Reader) Body {
	return &readerBody{r: r}
}

type readerBody struct {
	r   io.Reader
	buf []byte
}

func (b *readerBody) Next() ([]byte, error) {
	if b.buf == nil {
		b.buf = make([]byte, readChunkSize)
	}
	n, err := b.r.Read(b.buf)
	return b.buf[:n], err
}

func (b *readerBody) Close() error {
	if c, ok := b.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
