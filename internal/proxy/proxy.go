package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/infra/config"
	"github.com/mdurant/safelease-ai/internal/infra/logger"
)

// Gateway forwards every request to the upstream identity API unchanged. It
// carries no business logic; when the upstream cannot be reached it answers
// 503 instead of leaking a transport error to the client.
type Gateway struct {
	cfg      config.ProxySettings
	upstream *url.URL
	reverse  *httputil.ReverseProxy
	log      *zap.Logger
}

// New builds a gateway targeting cfg.UpstreamURL.
func New(cfg config.ProxySettings, log *zap.Logger) (*Gateway, error) {
	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", cfg.UpstreamURL)
	}

	g := &Gateway{cfg: cfg, upstream: upstream, log: log}

	reverse := httputil.NewSingleHostReverseProxy(upstream)
	reverse.ErrorHandler = g.handleUpstreamError
	if cfg.RequestTimeout > 0 {
		reverse.Transport = &http.Transport{
			ResponseHeaderTimeout: cfg.RequestTimeout,
			Proxy:                 http.ProxyFromEnvironment,
		}
	}
	g.reverse = reverse

	return g, nil
}

// ServeHTTP satisfies http.Handler. The gateway stamps the originating client
// address before handing the request to the reverse proxy.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.reverse.ServeHTTP(w, r)
}

func (g *Gateway) handleUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	g.log.Warn("upstream unavailable",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("upstream", g.upstream.Host),
		zap.String("client_ip", logger.MaskIP(clientAddr(r))),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, `{"error":%q}`, "upstream unavailable")
}

// Run serves the gateway until the listener fails or the server is shut down.
func (g *Gateway) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           g,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	g.log.Info("starting proxy gateway",
		zap.String("address", addr),
		zap.String("upstream", g.upstream.String()),
	)
	return srv.ListenAndServe()
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
