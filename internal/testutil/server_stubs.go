package testutil

import (
	"context"
	"net/http"
	"sync"
)

// FakeHTTPServer stands in for the server package's httpServer.
//
// ListenAndServe returns ListenErr at once when set; otherwise it blocks until
// Shutdown and then returns http.ErrServerClosed. When Hold is non-nil, Shutdown
// waits for it to close or for the context to end.
type FakeHTTPServer struct {
	AddrVal     string
	HandlerVal  http.Handler
	ListenErr   error
	ShutdownErr error
	Hold        chan struct{}

	mu        sync.Mutex
	listens   int
	shutdowns int
	stopped   chan struct{}
}

func (f *FakeHTTPServer) stopCh() chan struct{} {
	if f.stopped == nil {
		f.stopped = make(chan struct{})
	}
	return f.stopped
}

func (f *FakeHTTPServer) ListenAndServe() error {
	f.mu.Lock()
	f.listens++
	stopped := f.stopCh()
	f.mu.Unlock()

	if f.ListenErr != nil {
		return f.ListenErr
	}
	<-stopped
	return http.ErrServerClosed
}

func (f *FakeHTTPServer) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.shutdowns++
	stopped := f.stopCh()
	select {
	case <-stopped:
	default:
		close(stopped)
	}
	f.mu.Unlock()

	if f.Hold != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.Hold:
		}
	}
	return f.ShutdownErr
}

func (f *FakeHTTPServer) Addr() string          { return f.AddrVal }
func (f *FakeHTTPServer) Handler() http.Handler { return f.HandlerVal }

// Listens reports how many times ListenAndServe ran.
func (f *FakeHTTPServer) Listens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listens
}

// Shutdowns reports how many times Shutdown ran.
func (f *FakeHTTPServer) Shutdowns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdowns
}
