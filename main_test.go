package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/game/protocol"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}

	expectedAppName := "Train Rush Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()
	if app.DefaultCommand != "serve" {
		t.Errorf("Expected default command serve, got %s", app.DefaultCommand)
	}

	names := map[string]bool{}
	for _, c := range app.Commands {
		names[c.Name] = true
	}
	for _, want := range []string{"serve", "mcp", "validate-config"} {
		if !names[want] {
			t.Errorf("Expected command %s", want)
		}
	}
}

// resolveWith runs the root command with an extra subcommand that captures resolveConfig
func resolveWith(t *testing.T, args ...string) (*config.Config, *config.Manager, error) {
	t.Helper()

	var (
		cfg      *config.Config
		profiles *config.Manager
		err      error
	)
	app := newApp()
	app.Commands = append(app.Commands, &cli.Command{
		Name: "resolve",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, profiles, err = resolveConfig(cmd)
			return nil
		},
	})
	argv := append([]string{"train-rush"}, args...)
	argv = append(argv, "resolve")
	if runErr := app.Run(context.Background(), argv); runErr != nil {
		t.Fatalf("Run failed: %v", runErr)
	}
	return cfg, profiles, err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestResolveConfig_DefaultProfile(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	cfg, profiles, err := resolveWith(t)
	if err != nil {
		t.Fatalf("resolveConfig failed: %v", err)
	}
	if profiles == nil {
		t.Fatal("Expected a profile manager for the configs directory")
	}
	if cfg.Name != config.DefaultProfile {
		t.Errorf("Expected default profile %s, got %s", config.DefaultProfile, cfg.Name)
	}
	if cfg == profiles.GetDefault() {
		t.Error("Expected a copy of the cached default profile")
	}
}

func TestResolveConfig_NamedProfile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "duel.yaml", "name: duel\nroom:\n  players_per_room: 2\n")

	cfg, _, err := resolveWith(t, "--config-dir", dir, "--profile", "duel")
	if err != nil {
		t.Fatalf("resolveConfig failed: %v", err)
	}
	if cfg.Name != "duel" {
		t.Errorf("Expected profile duel, got %s", cfg.Name)
	}
}

func TestResolveConfig_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "name: custom\nroom:\n  players_per_room: 3\n")

	cfg, _, err := resolveWith(t, "--config-dir", dir, "--config", path)
	if err != nil {
		t.Fatalf("resolveConfig failed: %v", err)
	}
	if cfg.Name != "custom" {
		t.Errorf("Expected config custom, got %s", cfg.Name)
	}
	if cfg.Room.PlayersPerRoom != 3 {
		t.Errorf("Expected 3 players per room, got %d", cfg.Room.PlayersPerRoom)
	}
}

func TestResolveConfig_MissingDir(t *testing.T) {
	_, _, err := resolveWith(t, "--config-dir", filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("Expected error for a missing config directory")
	}
}

func TestResolveConfig_UnknownProfile(t *testing.T) {
	_, _, err := resolveWith(t, "--config-dir", t.TempDir(), "--profile", "nope")
	if err == nil {
		t.Error("Expected error for an unknown profile")
	}
}

func TestApplyServeOverrides(t *testing.T) {
	cfg := config.Defaults()
	cmd := &cli.Command{
		Name:  "serve",
		Flags: serveCommand().Flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeOverrides(cmd, cfg)
			return nil
		},
	}

	args := []string{"serve", "--listen", "127.0.0.1:7777", "--data-dir", "/tmp/trains", "--no-history"}
	if err := cmd.Run(context.Background(), args); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if cfg.Server.Listen != "127.0.0.1:7777" {
		t.Errorf("Expected listen override, got %s", cfg.Server.Listen)
	}
	if cfg.Server.DataDir != "/tmp/trains" {
		t.Errorf("Expected data dir override, got %s", cfg.Server.DataDir)
	}
	if cfg.Server.HistoryEnabled {
		t.Error("Expected history to be disabled")
	}
	if cfg.Server.HTTPListen != ":8080" {
		t.Errorf("Expected untouched HTTP listen address, got %s", cfg.Server.HTTPListen)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "ok.yaml", "name: ok\n")
	invalid := writeFile(t, dir, "bad.yaml", "room:\n  players_per_room: 0\n")

	if err := newApp().Run(context.Background(), []string{"train-rush", "validate-config", valid}); err != nil {
		t.Errorf("Expected valid config to pass, got %v", err)
	}
	if err := newApp().Run(context.Background(), []string{"train-rush", "validate-config", valid, invalid}); err == nil {
		t.Error("Expected invalid config to fail")
	}
}

func testServerConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.HTTPListen = "127.0.0.1:0"
	cfg.Server.ScoresFile = filepath.Join(dir, "best_scores.json")
	cfg.Server.DataDir = filepath.Join(dir, "data")
	return cfg
}

func TestGameServer(t *testing.T) {
	cfg := testServerConfig(t)

	g, err := newGameServer(cfg, nil)
	if err != nil {
		t.Fatalf("newGameServer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.run(ctx, ngrokOptions{}) }()

	// UDP round trip
	conn, err := net.Dial("udp", g.udp.Addr().String())
	if err != nil {
		t.Fatalf("Failed to dial UDP: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(`{"type":"check_name","agent_name":"alice"}` + "\n")); err != nil {
		t.Fatalf("Failed to write datagram: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("Failed to read reply: %v", err)
	}
	var reply protocol.Message
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("Failed to decode reply: %v", err)
	}
	if reply.Type != protocol.TypeNameCheck {
		t.Errorf("Expected %s, got %s", protocol.TypeNameCheck, reply.Type)
	}
	if reply.Available == nil || !*reply.Available {
		t.Error("Expected name to be available")
	}

	// Admin API
	resp, err := http.Get("http://" + g.httpListener.Addr().String() + "/api/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Server did not stop")
	}

	if _, err := os.Stat(cfg.Server.ScoresFile); err != nil {
		t.Errorf("Expected scores file to be saved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Server.DataDir, "matches.db")); err != nil {
		t.Errorf("Expected match index to be created: %v", err)
	}
}

func TestGameServer_NoHTTP(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.Server.HTTPListen = ""
	cfg.Server.HistoryEnabled = false

	g, err := newGameServer(cfg, nil)
	if err != nil {
		t.Fatalf("newGameServer failed: %v", err)
	}
	if g.handler != nil || g.hub != nil {
		t.Error("Expected no HTTP components without an HTTP address")
	}
	if g.index != nil || g.archive != nil {
		t.Error("Expected no history with history disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.run(ctx, ngrokOptions{}); err != nil {
		t.Errorf("run returned %v", err)
	}
}

func TestGameServer_PortInUse(t *testing.T) {
	busy, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	defer busy.Close()

	cfg := testServerConfig(t)
	cfg.Server.Listen = busy.LocalAddr().String()
	if _, err := newGameServer(cfg, nil); err == nil {
		t.Error("Expected error when the UDP port is taken")
	}
}

func TestNgrokOptions_Endpoint(t *testing.T) {
	if (ngrokOptions{}).endpoint() == nil {
		t.Error("Expected a default endpoint")
	}
	if (ngrokOptions{domain: "trains.ngrok.app"}).endpoint() == nil {
		t.Error("Expected a custom domain endpoint")
	}
}

func TestLoopGroup_Wait(t *testing.T) {
	var loops loopGroup
	release := make(chan struct{})
	defer close(release)

	loops.Go("quick", func() {})
	loops.Go("stuck", func() { <-release })
	loops.Go("also-stuck", func() { <-release })

	start := time.Now()
	stuck := loops.Wait(50 * time.Millisecond)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected Wait to give up after its timeout, took %s", elapsed)
	}
	if len(stuck) != 2 || stuck[0] != "also-stuck" || stuck[1] != "stuck" {
		t.Errorf("Expected [also-stuck stuck], got %v", stuck)
	}
}

func TestLoopGroup_WaitAllDone(t *testing.T) {
	var loops loopGroup
	for i := 0; i < 3; i++ {
		loops.Go("worker", func() { time.Sleep(5 * time.Millisecond) })
	}
	if stuck := loops.Wait(2 * time.Second); stuck != nil {
		t.Errorf("Expected every loop to finish, got %v", stuck)
	}
}
