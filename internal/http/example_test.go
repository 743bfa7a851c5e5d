package http_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/thoughtd/internal/http"
	"github.com/fyrsmithlabs/thoughtd/internal/store"
)

// ExampleServer demonstrates how to create and start the HTTP server.
func ExampleServer() {
	dir, err := os.MkdirTemp("", "thoughtd-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	st, err := store.New(&store.Config{Dir: dir, DefaultProject: "default"}, nil)
	if err != nil {
		panic(err)
	}

	logger := zap.NewNop()

	server, err := httpserver.NewServer(st, logger, &httpserver.Config{
		Host:      "localhost",
		Port:      19091,
		RateLimit: 20,
	})
	if err != nil {
		panic(err)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
