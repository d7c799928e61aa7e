package middleware

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobbyd/lobbyd/internal/testutil"
)

func TestHijackPassesThroughWrapper(t *testing.T) {
	logger := testutil.NopLogger()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok, "wrapped writer must support hijacking")

		conn, rw, err := hj.Hijack()
		require.NoError(t, err)
		defer conn.Close()

		_, _ = rw.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 8\r\n\r\nhijacked")
		_ = rw.Flush()
	})

	srv := httptest.NewServer(Recovery(logger, DefaultPanicHandler)(Logging(logger)(inner)))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := make([]byte, 8)
	_, err = bufio.NewReader(resp.Body).Read(body)
	require.NoError(t, err)
	assert.Equal(t, "hijacked", string(body))
}

func TestHijackWithoutUnderlyingSupport(t *testing.T) {
	rw := &ResponseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rw.Hijack()
	assert.Error(t, err)
}

func TestResponseWriterCapturesStatusAndSize(t *testing.T) {
	rw := &ResponseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rw.WriteHeader(http.StatusNotFound)
	_, _ = rw.Write([]byte("not found"))

	assert.Equal(t, http.StatusNotFound, rw.Status())
	assert.Equal(t, len("not found"), rw.Size())
}

func TestRecoveryAnswersPanicsWithJSON(t *testing.T) {
	logger := testutil.NopLogger()
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	Recovery(logger, DefaultPanicHandler)(panicking).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal"}`, rec.Body.String())
}
