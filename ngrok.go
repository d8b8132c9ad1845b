package main

import (
	"context"
	"log"
	"net/http"

	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// ngrokOptions configures the optional public tunnel for the admin HTTP server
type ngrokOptions struct {
	enabled   bool
	authToken string
	domain    string
}

// endpoint builds the tunnel configuration
func (o ngrokOptions) endpoint() ngrokConfig.Tunnel {
	if o.domain != "" {
		return ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(o.domain))
	}
	return ngrokConfig.HTTPEndpoint()
}

// serveNgrok serves handler through an ngrok tunnel until ctx is done.
// The UDP game port is never tunneled.
func serveNgrok(ctx context.Context, handler http.Handler, opts ngrokOptions) {
	if opts.authToken == "" {
		log.Println("Warning: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")
	if opts.domain != "" {
		log.Printf("Using custom ngrok domain: %s", opts.domain)
	}

	tun, err := ngrok.Listen(ctx, opts.endpoint(), ngrok.WithAuthtoken(opts.authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	url := tun.URL()
	log.Printf("Ngrok tunnel established: %s", url)
	log.Printf("  REST API (ngrok): %s/api", url)
	log.Printf("  WebSocket (ngrok): %s/ws?room=<room_id>", url)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", url)

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}
