package main

import (
	"context"
	"net/http"
	"os"
	"reflect"
	"syscall"
	"testing"
	"time"
)

type dummyHandler struct{}

func (d dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

type fakeStopper struct{ stopped chan struct{} }

func (f *fakeStopper) Stop(context.Context) error {
	close(f.stopped)
	return nil
}

func TestStartServerAndShutdown(t *testing.T) {
	srv := startServer(dummyHandler{}, "0") // random port
	if srv == nil {
		t.Fatalf("expected server")
	}

	// Give server a moment to start
	time.Sleep(50 * time.Millisecond)

	shutdownCtx, c := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer c()
	if err := srv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		t.Fatalf("shutdown err: %v", err)
	}
}

func TestGracefulShutdown_SignalPath(t *testing.T) {
	srv := startServer(dummyHandler{}, "0")

	stopper := &fakeStopper{stopped: make(chan struct{})}
	cleaned := make(chan struct{}, 1)
	go func() {
		gracefulShutdown(context.Background(), srv, func() { close(cleaned) }, stopper)
	}()

	// Give the goroutine time to set up signal notifications
	time.Sleep(50 * time.Millisecond)

	p, _ := os.FindProcess(os.Getpid())
	_ = p.Signal(syscall.SIGTERM)

	select {
	case <-cleaned:
	case <-time.After(2 * time.Second):
		t.Fatalf("cleanup not called after SIGTERM")
	}
	select {
	case <-stopper.stopped:
	default:
		t.Fatalf("extra component not stopped")
	}
}

func TestSymbolList(t *testing.T) {
	def := []string{"RELIANCE", "TCS"}
	cases := []struct {
		in   string
		want []string
	}{
		{in: "", want: def},
		{in: " , ", want: def},
		{in: "INFY, HDFCBANK.NS ,", want: []string{"INFY", "HDFCBANK.NS"}},
	}
	for _, tc := range cases {
		if got := symbolList(tc.in, def); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("symbolList(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}
