package nethttp

import (
	"errors"
	"net/http"

	"github.com/strongdm/artemis-observe/pkg/artemis"
)

// Middleware attaches each request to its context as an
// artemis.RequestContext and reports handler panics through h. After a
// reported panic the client gets a 500 unless the handler already wrote a
// response. http.ErrAbortHandler is passed through untouched. The request
// body is recorded only as the handler reads it; see NewRequest.
//
// With an inert handle, or the Exceptions hook off, panics propagate as if
// the middleware were absent.
func Middleware(h *artemis.Handle, opts ...RequestOption) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !h.Registered() {
				next.ServeHTTP(w, r)
				return
			}
			ctx := artemis.WithRequestContext(r.Context(), NewRequest(r, opts...))
			r = r.WithContext(ctx)
			rw := &statusRecorder{ResponseWriter: w}

			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}
				if !h.Hooks().Exceptions {
					panic(p)
				}
				h.CaptureException(ctx, artemis.PanicException(p))
				if !rw.wrote {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// statusRecorder notes whether the handler started a response.
type statusRecorder struct {
	http.ResponseWriter
	wrote bool
}

func (s *statusRecorder) WriteHeader(code int) {
	s.wrote = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
