package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"ugcmigrate/internal/imgrewrite"
	"ugcmigrate/internal/repository"
	"ugcmigrate/internal/scoring"
)

const (
	allowRemoteEnvKey       = "UGCMIGRATE_ALLOW_REMOTE"
	readHeaderTimeout       = 5 * time.Second
	readTimeout             = 60 * time.Second
	writeTimeout            = 5 * time.Minute
	idleTimeout             = 60 * time.Second
	shutdownTimeout         = 10 * time.Second
	importConcurrencyLimit  = 1
	rewriteConcurrencyLimit = 4

	defaultMaxUploadBytes  int64 = 32 << 20
	defaultMultipartMemory int64 = 8 << 20
)

// Repository is the content repository surface the API serves.
type Repository interface {
	repository.ContentStore
	repository.ScoreStore
	repository.BlobMaintenance
	Info(ctx context.Context) (repository.Info, error)
	Backend() string
}

// Options tunes server behaviour. Zero values select defaults.
type Options struct {
	DBPath             string
	AdminTokenHash     string
	GCBatchSize        int
	MaxUploadBytes     int64
	MultipartMaxMemory int64
}

// Server wraps HTTP handlers for the ugcmigrate API.
type Server struct {
	addr            string
	repo            Repository
	importer        imgrewrite.Importer
	rewriter        *imgrewrite.Rewriter
	scores          *scoring.Importer
	logger          *slog.Logger
	dbPath          string
	adminTokenHash  string
	gcBatchSize     int
	maxUploadBytes  int64
	multipartMemory int64
	importLimiter   chan struct{}
	rewriteLimiter  chan struct{}
}

// New creates a new server instance. importer fetches and stores remote
// assets for the rewrite and asset import endpoints.
func New(addr string, repo Repository, importer imgrewrite.Importer, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = defaultMultipartMemory
	}

	return &Server{
		addr:            addr,
		repo:            repo,
		importer:        importer,
		rewriter:        imgrewrite.NewRewriter(importer, logger.With("component", "rewriter")),
		scores:          scoring.NewImporter(repo, logger.With("component", "scoring")),
		logger:          logger,
		dbPath:          opts.DBPath,
		adminTokenHash:  strings.TrimSpace(opts.AdminTokenHash),
		gcBatchSize:     opts.GCBatchSize,
		maxUploadBytes:  opts.MaxUploadBytes,
		multipartMemory: opts.MultipartMaxMemory,
		importLimiter:   make(chan struct{}, importConcurrencyLimit),
		rewriteLimiter:  make(chan struct{}, rewriteConcurrencyLimit),
	}
}

// ListenAndServe serves the API until ctx is cancelled, then drains
// in-flight requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr, "storage", s.repo.Backend())
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.withRequestLogging(s.routes()),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server", "addr", s.addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}
