package resthttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sir_venger/flatstore/internal/config"
	meta "github.com/sir_venger/flatstore/internal/repo"
	"github.com/sir_venger/flatstore/internal/usecase/filesvc"
	adapters "github.com/sir_venger/flatstore/internal/usecase/filesvc/adapters/storage"
	"github.com/sir_venger/flatstore/pkg/fileproto"
	"go.uber.org/zap"
)

type Server struct {
	FilesService filesvc.Service
	Cfg          *config.Config
	Logger       *zap.Logger

	metrics *httpMetrics
	closers []func() error
}

// NewServer конструктор: собирает бэкенд, индекс метаданных и файловый сервис по конфигу.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (http.Handler, *Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	files, metaStore, err := buildFileService(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	h, srv := NewHandler(files, cfg, logger)
	srv.closers = append(srv.closers, metaStore.Close)

	return h, srv, nil
}

// NewHandler поднимает HTTP-слой поверх готового сервиса.
func NewHandler(files filesvc.Service, cfg *config.Config, logger *zap.Logger) (http.Handler, *Server) {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &Server{
		FilesService: files,
		Cfg:          cfg,
		Logger:       logger,
		metrics:      newHTTPMetrics(files),
	}

	return srv.routes(), srv
}

// routes регистрирует обработчики файлов, здоровья, метрик и GC.
func (s *Server) routes() http.Handler {
	rtr := chi.NewRouter()
	rtr.Use(middleware.RequestID, middleware.RealIP, s.observe, middleware.Recoverer)

	rtr.Get(fileproto.PathRoot, s.root)
	rtr.Get(fileproto.PathHealth, s.health)
	rtr.Post(fileproto.PathFiles, s.postFiles)
	rtr.Get(fileproto.PathFiles, s.listFiles)
	rtr.Get(fileproto.PathFile, s.getFile)
	rtr.Get(fileproto.PathMetrics, s.getMetrics)
	rtr.Method(http.MethodGet, fileproto.PathPrometheus, promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	rtr.Post(fileproto.PathAdminGC, s.gcOnce)
	rtr.Get(fileproto.PathAdminConfig, s.getConfig)

	return rtr
}

// Close освобождает подключения индекса метаданных.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func buildFileService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*filesvc.Files, meta.Store, error) {
	backend, err := buildBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	metaStore, err := meta.Open(ctx, cfg.MetaDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open meta store: %w", err)
	}

	files, err := filesvc.New(ctx, filesvc.Deps{
		Backend:     backend,
		MetaStorage: metaStore,
		Logger:      logger.Named("filesvc"),
	})
	if err != nil {
		_ = metaStore.Close()
		return nil, nil, err
	}

	return files, metaStore, nil
}

func buildBackend(ctx context.Context, cfg *config.Config) (filesvc.Backend, error) {
	switch cfg.Backend {
	case "", "disk":
		return adapters.NewDisk(cfg.DataDir)
	case "minio":
		return adapters.NewMinIO(ctx, adapters.MinIOConfig{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKeyID,
			SecretAccessKey: cfg.MinIO.SecretAccessKey,
			Bucket:          cfg.MinIO.Bucket,
			UseSSL:          cfg.MinIO.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
