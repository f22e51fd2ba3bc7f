package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ipv4Server struct {
	URL string
	srv *http.Server
}

// newIPv4Server listens on 127.0.0.1 and skips when the sandbox forbids it.
func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: srv}
	t.Cleanup(s.Close)
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func samplePayload() Payload {
	mean := 2.0
	return Payload{
		Columns: []string{"a", "b"},
		Data: []map[string]any{
			{"a": 1.0, "b": "x"},
			{"a": 3.0, "b": "y"},
		},
		Analysis: map[string]ColumnAnalysis{
			"a": {DType: "int64", Unique: 2, Mean: &mean},
			"b": {DType: "object", Unique: 2},
		},
		DataQuality: DataQuality{QualityScore: 1, Completeness: 1, Issues: []string{}},
		Metadata:    &Metadata{Filename: "up.csv", Rows: 2, Columns: 2},
	}
}

func fakeBackend(t *testing.T, uploads *int32) *ipv4Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	r.Get("/api/sample-data", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(samplePayload())
	})
	r.Post("/api/upload", func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(uploads, 1)
		f, hdr, err := req.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "No filename provided"})
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if len(b) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "File is empty"})
			return
		}
		p := samplePayload()
		p.Metadata.Filename = hdr.Filename
		_ = json.NewEncoder(w).Encode(p)
	})
	return newIPv4Server(t, r)
}

func writeUpload(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "up.csv")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestUploadSampleHealth(t *testing.T) {
	var uploads int32
	srv := fakeBackend(t, &uploads)
	c := NewClient(srv.URL+"/", 2*time.Second, 0, 0, 0)
	ctx := context.Background()

	p, err := c.Upload(ctx, writeUpload(t, "a,b\n1,x\n"))
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.Equal(t, "up.csv", p.Metadata.Filename)
	assert.Equal(t, 2.0, *p.Analysis["a"].Mean)
	assert.Equal(t, KindInteger, ClassifyDType(p.Analysis["a"].DType))

	s, err := c.Sample(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.Columns)

	assert.True(t, c.Health(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&uploads))
}

func TestUploadDetailBecomesBadRequest(t *testing.T) {
	var uploads int32
	srv := fakeBackend(t, &uploads)
	c := NewClient(srv.URL, 2*time.Second, 0, 0, 0)

	_, err := c.Upload(context.Background(), writeUpload(t, ""))
	var br *BadRequestError
	require.ErrorAs(t, err, &br)
	assert.Equal(t, http.StatusBadRequest, br.StatusCode)
	assert.Equal(t, "File is empty", UserMessage(err))
}

func TestFailuresAreNotRetriedByDefault(t *testing.T) {
	var hits int32
	r := chi.NewRouter()
	r.Get("/api/sample-data", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Error processing file: boom"})
	})
	srv := newIPv4Server(t, r)

	_, err := NewClient(srv.URL, time.Second, 0, 0, 0).Sample(context.Background())
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "Error processing file: boom", UserMessage(err))
}

func TestRetryHonorsRetryAfterWhenEnabled(t *testing.T) {
	var hits int32
	r := chi.NewRouter()
	r.Get("/api/sample-data", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "slow down"}})
			return
		}
		_ = json.NewEncoder(w).Encode(samplePayload())
	})
	srv := newIPv4Server(t, r)

	c := NewClient(srv.URL, time.Second, 3, 5*time.Millisecond, 10*time.Millisecond)
	p, err := c.Sample(context.Background())
	require.NoError(t, err)
	assert.Len(t, p.Data, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClassification(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{401, func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{403, func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{404, func(err error) bool { var e *NotFoundError; return errors.As(err, &e) }},
		{413, func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
		{422, func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
		{429, func(err error) bool {
			var e *RateLimitError
			return errors.As(err, &e) && e.RetryAfter == 7*time.Second
		}},
		{503, func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/sample-data", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Retry-After", "7")
				w.Header().Set("X-Request-Id", "req-1")
				w.WriteHeader(tc.status)
			})
			srv := newIPv4Server(t, r)
			_, err := NewClient(srv.URL, time.Second, 1, 0, 0).Sample(context.Background())
			require.Error(t, err)
			assert.True(t, tc.check(err), "unexpected error type %T", err)
			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, "req-1", apiErr.RequestID)
			assert.Equal(t, http.StatusText(tc.status), apiErr.Message)
		})
	}
}

func TestResponseErrors(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/sample-data", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "sheet could not be parsed"})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.Post("/api/upload", func(w http.ResponseWriter, _ *http.Request) {})
	srv := newIPv4Server(t, r)
	c := NewClient(srv.URL, time.Second, 1, 0, 0)
	ctx := context.Background()

	_, err := c.Sample(ctx)
	var re *ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "Sample data fetch: sheet could not be parsed", UserMessage(err))

	_, err = c.Upload(ctx, writeUpload(t, "a\n1\n"))
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "Empty response", re.Message)

	assert.False(t, c.Health(ctx))
}

func TestUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: cannot open local listener (%v)", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := NewClient("http://"+addr, time.Second, 1, 0, 0)
	_, err = c.Sample(context.Background())
	var ue *UnreachableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "No response from server. Please check your connection.", UserMessage(err))
	assert.False(t, c.Health(context.Background()))

	_, err = c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "open upload")
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "bad", errorText("bad"))
	assert.Equal(t, "field required; too long", errorText([]any{
		map[string]any{"msg": "field required"},
		map[string]any{"msg": "too long"},
	}))
	assert.Equal(t, "x", errorText(map[string]any{"message": "x"}))
	assert.Equal(t, `{"code":1}`, errorText(map[string]any{"code": 1.0}))
}
