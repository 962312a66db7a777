// Command tracemon-monitor runs the monitor server: it binds a TCP
// listener, accepts WebSocket clients, reconstructs each client's spans,
// scopes, and events in a per-client store, and logs each client
// connection to stderr.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/bassosimone/tracemon/errclass"
	"github.com/bassosimone/tracemon/monitorserver"
	"github.com/bassosimone/tracemon/store"
)

func main() {
	listenAddr := flag.String("listen", monitorserver.DefaultListenAddr,
		"TCP address to bind the monitor server on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := monitorserver.NewConfig()
	cfg.ListenAddr = *listenAddr
	cfg.Logger = logger
	cfg.ErrClassifier = monitorserver.ErrClassifierFunc(errclass.New)
	cfg.OnClient = func(clientName string, remoteAddr net.Addr, st *store.ClientInfoStore) {
		logger.Info("tracemon-monitor: client connected",
			"client", clientName, "addr", remoteAddr.String())
	}

	srv := monitorserver.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("tracemon-monitor: starting", "listen", *listenAddr)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("tracemon-monitor: exited with error", "err", err)
		os.Exit(1)
	}
}
