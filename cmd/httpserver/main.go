package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/epollhttp/internal/request"
	"github.com/Brownie44l1/epollhttp/internal/response"
	"github.com/Brownie44l1/epollhttp/internal/server"
	"github.com/Brownie44l1/epollhttp/internal/sock"
)

func main() {
	addr, err := sock.ParseAddr("0.0.0.0", 8080)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := server.DefaultConfig()
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg.Logger = &logger

	srv := server.New(addr, cfg)

	srv.Callbacks.OnRequest = func(req *request.Request, res *response.Response) {
		switch req.URI() {
		case "/":
			res.AddHeader("Content-Type", "text/plain")
			res.SetBody([]byte("hello from epollhttp\n"))
		case "/echo":
			res.AddHeader("Content-Type", "application/octet-stream")
			res.SetBody(req.Body())
		default:
			res.SetStatus(response.StatusNotFound, "")
			res.AddHeader("Content-Type", "text/plain")
			res.SetBody([]byte("not found\n"))
		}

		if err := res.Send(); err != nil {
			fmt.Fprintln(os.Stderr, "send:", err)
		}
		res.End()
	}

	srv.Callbacks.OnListenSuccess = func(addr sock.Addr) {
		fmt.Println("listening on", addr)
	}
	srv.Callbacks.OnError = func(err error) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		srv.Stop()
	}()

	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
