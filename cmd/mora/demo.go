// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/morahq/mora/internal/log"
	"github.com/morahq/mora/internal/mockapi"
)

// runDemo serves the scripted mock backend, so `mora convert` can be tried
// without a real conversion service.
func runDemo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	addr := fs.String("listen", "127.0.0.1:8000", "listen address for the mock backend")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mockapi.New(nil).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger := log.WithComponent("demo")
	logger.Info().
		Str("event", "demo.listen").
		Str("addr", *addr).
		Msg("mock backend up")
	fmt.Printf("mock backend listening on http://%s\n", *addr)
	fmt.Printf("try: mora convert -video https://example.com/video.mp4\n")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
