package monitoring

import (
	"net/http"

	"github.com/valyala/bytebufferpool"
)

// bufferedWriter segura status e corpo até flush. Os headers vão direto para
// o ResponseWriter real, que só é "commitado" no flush.
type bufferedWriter struct {
	w      http.ResponseWriter
	buf    *bytebufferpool.ByteBuffer
	status int
}

func newBufferedWriter(w http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{w: w, buf: bytebufferpool.Get()}
}

func (b *bufferedWriter) Header() http.Header { return b.w.Header() }

func (b *bufferedWriter) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.buf.Write(p)
}

func (b *bufferedWriter) Status() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

// discard joga fora o que o handler escreveu (usado após panic).
func (b *bufferedWriter) discard() {
	b.buf.Reset()
	b.status = 0
	for k := range b.w.Header() {
		delete(b.w.Header(), k)
	}
}

func (b *bufferedWriter) flush() error {
	b.w.WriteHeader(b.Status())
	if b.buf.Len() == 0 {
		return nil
	}
	_, err := b.w.Write(b.buf.B)
	return err
}

func (b *bufferedWriter) release() {
	bytebufferpool.Put(b.buf)
	b.buf = nil
}
