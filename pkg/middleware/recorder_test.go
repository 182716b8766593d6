package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushHijackWriter struct {
	http.ResponseWriter
	flushed  bool
	hijacked bool
}

func (w *flushHijackWriter) Flush() { w.flushed = true }

func (w *flushHijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.hijacked = true
	return nil, nil, nil
}

// bareWriter implements neither http.Flusher nor http.Hijacker.
type bareWriter struct{ header http.Header }

func (w *bareWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}
func (w *bareWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *bareWriter) WriteHeader(int)             {}

func TestStatusRecorder_CapturesFirstStatus(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	assert.Equal(t, http.StatusOK, rec.Status())

	rec.WriteHeader(http.StatusServiceUnavailable)
	rec.WriteHeader(http.StatusOK)
	n, err := rec.Write([]byte(`{"error":{}}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Status())
	assert.Equal(t, n, rec.bytes)
}

func TestStatusRecorder_ImplicitOK(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("[]"))
	assert.Equal(t, http.StatusOK, rec.Status())
	assert.Equal(t, 2, rec.bytes)
}

func TestStatusRecorder_ReusedWhenNested(t *testing.T) {
	outer := newStatusRecorder(httptest.NewRecorder())
	assert.Same(t, outer, newStatusRecorder(outer))
}

func TestStatusRecorder_Delegates(t *testing.T) {
	under := &flushHijackWriter{ResponseWriter: httptest.NewRecorder()}
	rec := newStatusRecorder(under)

	rec.Flush()
	_, _, err := rec.Hijack()

	require.NoError(t, err)
	assert.True(t, under.flushed)
	assert.True(t, under.hijacked)
	assert.Same(t, under, rec.Unwrap())
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	rec := newStatusRecorder(&bareWriter{})

	rec.Flush()
	_, _, err := rec.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)
}
