package main

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cuemby/atelier/pkg/alog"
	"github.com/cuemby/atelier/pkg/atelmetrics"
	"github.com/cuemby/atelier/pkg/blockstore"
	"github.com/cuemby/atelier/pkg/demoproject"
	"github.com/cuemby/atelier/pkg/localclient"
	"github.com/cuemby/atelier/pkg/server"
	"github.com/cuemby/atelier/pkg/wire"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the authoritative hub other atelier-demo collab clients connect to",
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().String("data-dir", "", "Directory for the bolt-backed block store (overrides config)")
	serverCmd.Flags().String("listen-addr", "", "Address to accept collab client connections on (overrides config)")
	serverCmd.Flags().String("metrics-addr", "", "Address to serve /metrics and /health on (overrides config)")
}

// connServer guards one server.Server[demoproject.Project] behind a mutex
// so concurrent connection goroutines can each dispatch inbound messages
// and drain outboxes without racing the server's own internal maps.
type connServer struct {
	mu  sync.Mutex
	srv *server.Server[demoproject.Project]
}

func (c *connServer) addClient() (server.ClientID, wire.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.srv.AddClient()
}

func (c *connServer) removeClient(id server.ClientID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.srv.RemoveClient(id)
}

func (c *connServer) receive(id server.ClientID, msg wire.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.srv.ReceiveMessage(id, msg)
}

func (c *connServer) drain(id server.ClientID) []wire.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.srv.MessagesToSend(id)
}

func (c *connServer) tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.srv.Tick()
}

func runServer(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if addr, _ := cmd.Flags().GetString("listen-addr"); addr != "" {
		cfg.ListenAddr = addr
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.MetricsAddr = addr
	}

	store, err := blockstore.NewBoltBlockStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open block store: %w", err)
	}
	defer func() { _ = store.Close() }()

	local, err := localclient.Open(store, demoproject.Codec(), demoproject.ObjectKinds())
	if err != nil {
		return fmt.Errorf("open project: %w", err)
	}

	registry := demoproject.NewRegistry()
	cs := &connServer{srv: server.New(local, registry, demoproject.EncodeProjectDeep)}
	atelmetrics.RegisterComponent("store", true, "")
	atelmetrics.RegisterComponent("server", true, "")

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}
	defer func() { _ = listener.Close() }()

	go serveMetrics(cfg.MetricsAddr)
	go tickLoop(cs)

	alog.WithClient("server").Info().Str("addr", cfg.ListenAddr).Msg("server listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go handleConn(cs, conn)
	}
}

func tickLoop(cs *connServer) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if err := cs.tick(); err != nil {
			alog.WithClient("server").Error().Err(err).Msg("tick failed")
		}
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", atelmetrics.Handler())
	mux.Handle("/health", atelmetrics.HealthHandler())
	mux.Handle("/live", atelmetrics.LivenessHandler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		alog.WithClient("server").Error().Err(err).Msg("metrics server stopped")
	}
}

// handleConn services one accepted connection end to end. sessionID is a
// uuid distinct from the protocol's own ClientID — it labels the log lines
// of a connection's lifetime (registration, inbound rejection, delivery
// failure) alongside the ClientID, and unlike the ClientID counter it does
// not start over when the server process restarts.
func handleConn(cs *connServer, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	sessionID := uuid.NewString()

	id, welcome, err := cs.addClient()
	if err != nil {
		alog.WithClient("server").Error().Err(err).Str("session", sessionID).Msg("failed to register client")
		return
	}
	defer cs.removeClient(id)

	if err := writeMessage(conn, welcome); err != nil {
		alog.WithClient("server").Error().Err(err).Str("session", sessionID).Uint64("client", uint64(id)).Msg("failed to send snapshot")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := readMessage(conn)
			if err != nil {
				return
			}
			if err := cs.receive(id, msg); err != nil {
				alog.WithClient("server").Warn().Err(err).Str("session", sessionID).Uint64("client", uint64(id)).Msg("rejected inbound message")
			}
		}
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for _, msg := range cs.drain(id) {
				if err := writeMessage(conn, msg); err != nil {
					alog.WithClient("server").Warn().Err(err).Str("session", sessionID).Uint64("client", uint64(id)).Msg("failed to deliver message")
					return
				}
			}
		}
	}
}
