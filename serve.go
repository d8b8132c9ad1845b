package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/wricardo/train-rush/api"
	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/history"
	"github.com/wricardo/train-rush/game/scores"
	"github.com/wricardo/train-rush/game/service"
	"github.com/wricardo/train-rush/game/session"
	"github.com/wricardo/train-rush/transport/mcp"
	"github.com/wricardo/train-rush/transport/udp"
	"github.com/wricardo/train-rush/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

// gameServer holds every long-lived component of the serve command
type gameServer struct {
	cfg *config.Config

	udp     *udp.Server
	manager *session.Manager
	scores  *scores.Store

	archive *history.ArchiveWriter
	index   *history.SQLiteIndex

	hub          *websocket.Hub
	httpListener net.Listener
	handler      http.Handler

	// joinTimeout bounds the wait for background loops at shutdown
	joinTimeout time.Duration
}

// loopGroup tracks named goroutines so shutdown can report the ones that hang
type loopGroup struct {
	wg      sync.WaitGroup
	mu      sync.Mutex
	running map[string]bool
}

// Go runs fn in a goroutine registered under name
func (l *loopGroup) Go(name string, fn func()) {
	l.mu.Lock()
	if l.running == nil {
		l.running = make(map[string]bool)
	}
	l.running[name] = true
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			delete(l.running, name)
			l.mu.Unlock()
		}()
		fn()
	}()
}

// Wait waits at most timeout and returns the sorted names of loops still running
func (l *loopGroup) Wait(timeout time.Duration) []string {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.running))
	for name := range l.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newGameServer binds the sockets and wires the components. Nothing runs until run is called.
func newGameServer(cfg *config.Config, profiles *config.Manager) (*gameServer, error) {
	g := &gameServer{cfg: cfg, joinTimeout: shutdownTimeout}
	ok := false
	defer func() {
		if !ok {
			g.close()
		}
	}()

	persistence, err := scores.NewFilePersistence(cfg.Server.ScoresFile)
	if err != nil {
		return nil, err
	}
	g.scores = scores.NewStore(persistence)
	if err := g.scores.Load(); err != nil {
		return nil, fmt.Errorf("failed to load best scores: %w", err)
	}
	log.Printf("Loaded %d best scores from %s", g.scores.Len(), persistence.Path())

	var recorder history.Recorder
	if cfg.Server.HistoryEnabled {
		g.archive = history.NewArchiveWriter(filepath.Join(cfg.Server.DataDir, "matches"))
		g.index, err = history.OpenSQLite(filepath.Join(cfg.Server.DataDir, "matches.db"))
		if err != nil {
			return nil, fmt.Errorf("failed to open match index: %w", err)
		}
		recorder = history.Multi(g.archive, g.index)
	}

	g.udp, err = udp.Listen(cfg.Server.Listen)
	if err != nil {
		return nil, err
	}

	if cfg.Server.HTTPListen != "" {
		g.hub = websocket.NewHub()
	}

	deps := session.Deps{
		Sender:   g.udp,
		Scores:   g.scores,
		Recorder: recorder,
	}
	if g.hub != nil {
		deps.Spectators = g.hub
	}
	g.manager, err = session.NewManager(cfg, deps)
	if err != nil {
		return nil, err
	}

	if cfg.Server.HTTPListen != "" {
		g.httpListener, err = net.Listen("tcp", cfg.Server.HTTPListen)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", cfg.Server.HTTPListen, err)
		}

		opts := service.Options{Transport: g.udp}
		if g.index != nil {
			opts.History = g.index
		}
		if profiles != nil {
			opts.Configs = profiles
		}
		lobby := service.NewLobbyService(g.manager, opts)

		apiServer := api.NewServer(lobby, g.hub)
		apiServer.Mount("/mcp", mcp.NewClient(g.apiURL()).Handler())
		g.handler = apiServer
	}

	ok = true
	return g, nil
}

// apiURL is the loopback URL of the admin HTTP server
func (g *gameServer) apiURL() string {
	port := 0
	if addr, ok := g.httpListener.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}

// run serves until ctx is done, then shuts everything down in order:
// players are told first, the socket closes last.
func (g *gameServer) run(ctx context.Context, ngrokOpts ngrokOptions) error {
	socketCtx, closeSocket := context.WithCancel(context.Background())
	defer closeSocket()

	var loops loopGroup
	loops.Go("udp", func() {
		if err := g.udp.Serve(socketCtx, g.manager); err != nil {
			log.Printf("UDP server error: %v", err)
		}
	})
	loops.Go("liveness", func() {
		g.manager.Run(ctx)
	})

	var httpServer *http.Server
	if g.handler != nil {
		loops.Go("spectators", func() {
			g.hub.Run(ctx)
		})

		httpServer = &http.Server{
			Handler:      g.handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		loops.Go("http", func() {
			addr := g.httpListener.Addr().String()
			log.Printf("HTTP server listening on %s", addr)
			log.Printf("REST API: http://%s/api", addr)
			log.Printf("WebSocket: ws://%s/ws?room=<room_id>", addr)
			log.Printf("MCP endpoint: http://%s/mcp", addr)
			if err := httpServer.Serve(g.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server failed: %v", err)
			}
		})

		if ngrokOpts.enabled {
			loops.Go("ngrok", func() {
				serveNgrok(ctx, g.handler, ngrokOpts)
			})
		}
	}

	<-ctx.Done()
	log.Println("Shutting down...")

	g.manager.Shutdown()

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		cancel()
	}

	closeSocket()
	if stuck := loops.Wait(g.joinTimeout); len(stuck) > 0 {
		log.Printf("Warning: %s did not stop within %s", strings.Join(stuck, ", "), g.joinTimeout)
	}

	g.close()
	log.Println("Server stopped")
	return nil
}

// close releases files and sockets. It is safe on a partially built server.
func (g *gameServer) close() {
	if g.udp != nil {
		_ = g.udp.Close()
	}
	if g.httpListener != nil {
		_ = g.httpListener.Close()
	}
	if g.scores != nil {
		if err := g.scores.Save(); err != nil {
			log.Printf("Warning: failed to save best scores: %v", err)
		}
	}
	if g.archive != nil {
		if err := g.archive.Close(); err != nil {
			log.Printf("Warning: failed to close match archive: %v", err)
		}
	}
	if g.index != nil {
		if err := g.index.Close(); err != nil {
			log.Printf("Warning: failed to close match index: %v", err)
		}
	}
}

// runServe builds the server and runs it until SIGINT or SIGTERM
func runServe(ctx context.Context, cfg *config.Config, profiles *config.Manager, ngrokOpts ngrokOptions) error {
	g, err := newGameServer(cfg, profiles)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return g.run(ctx, ngrokOpts)
}
