// Package app composes the validator service and its process lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"snifferconfig/internal/config"
	"snifferconfig/internal/controller"
	"snifferconfig/internal/ingest"
	"snifferconfig/internal/logging"
	"snifferconfig/internal/publish"
)

// Service composes runtime dependencies and process lifecycle.
// Params: config source and shared runtime components.
// Returns: runnable validator service.
type Service struct {
	source    config.ConfigSource
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func()
	manager   *Manager
	httpSrv   *http.Server
	natsSub   interface{ Close() error }
	deployQ   interface{ Close() error }
	publisher publish.Producer
	readyFlag atomic.Bool
}

// NewService builds service instance from config source.
// Params: config source.
// Returns: initialized service or setup error.
func NewService(source config.ConfigSource) (*Service, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	validator, err := BuildValidator(cfg.Validator, logger)
	if err != nil {
		closeLog()
		return nil, err
	}

	service := &Service{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		manager:  NewManager(validator, logger),
	}

	service.buildController()
	if err := service.buildPublisher(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}
	if err := service.buildDeployWorker(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}
	if err := service.buildHTTPServer(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}
	if err := service.buildNATSResponder(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}

	return service, nil
}

// Manager returns the validation manager shared by front doors.
func (s *Service) Manager() *Manager {
	return s.manager
}

// Ready reports whether the service accepts traffic.
func (s *Service) Ready() bool {
	return s.readyFlag.Load()
}

// Run starts service lifecycle and blocks until shutdown signal.
// Params: root context for service runtime.
// Returns: terminal run error.
func (s *Service) Run(ctx context.Context) error {
	shutdownCtx, shutdownCancel := context.WithCancel(ctx)
	defer shutdownCancel()

	errChan := make(chan error, 1)
	if s.httpSrv != nil {
		go func() {
			s.logger.Info("http server starting", "listen", s.cfg.Ingest.HTTP.Listen)
			err := s.httpSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	if s.cfg.Service.ReloadEnabled {
		reloadInterval := time.Duration(s.cfg.Service.ReloadIntervalSec) * time.Second
		reloadTicker := time.NewTicker(reloadInterval)
		defer reloadTicker.Stop()
		go func() {
			for {
				select {
				case <-shutdownCtx.Done():
					return
				case <-reloadTicker.C:
					if err := s.reloadValidator(); err != nil {
						s.logger.Error("validator reload failed", "error", err.Error())
					}
				}
			}
		}()
	}

	s.readyFlag.Store(true)
	s.logger.Info("service ready", "name", s.cfg.Service.Name)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		_ = s.shutdown()
		return fmt.Errorf("http server failed: %w", err)
	case <-sigChan:
		return s.shutdown()
	}
}

// shutdown closes runtime resources in dependency order.
// Params: none.
// Returns: first close error.
func (s *Service) shutdown() error {
	s.readyFlag.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var firstErr error
	markErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("http shutdown failed", "error", err.Error())
			markErr(fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.natsSub != nil {
		if err := s.natsSub.Close(); err != nil {
			s.logger.Error("nats responder close failed", "error", err.Error())
			markErr(fmt.Errorf("nats responder close: %w", err))
		}
	}
	if s.deployQ != nil {
		if err := s.deployQ.Close(); err != nil {
			s.logger.Error("deploy worker close failed", "error", err.Error())
			markErr(fmt.Errorf("deploy worker close: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("publisher close failed", "error", err.Error())
			markErr(fmt.Errorf("publisher close: %w", err))
		}
	}
	if s.closeLog != nil {
		s.closeLog()
	}
	return firstErr
}

// cleanupInitResources closes partially initialized resources on startup failures.
// Params: none.
// Returns: all acquired resources closed best-effort.
func (s *Service) cleanupInitResources() {
	if s.natsSub != nil {
		_ = s.natsSub.Close()
		s.natsSub = nil
	}
	if s.deployQ != nil {
		_ = s.deployQ.Close()
		s.deployQ = nil
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
		s.publisher = nil
	}
	if s.httpSrv != nil {
		_ = s.httpSrv.Close()
		s.httpSrv = nil
	}
	if s.closeLog != nil {
		s.closeLog()
		s.closeLog = nil
	}
}

// buildController attaches the controller client when enabled.
// Params: none.
// Returns: none.
func (s *Service) buildController() {
	if !s.cfg.Controller.Enabled {
		return
	}
	client := controller.New(s.cfg.Controller, s.logger)
	inline := !(s.cfg.Publish.Enabled && s.cfg.Publish.Deploy)
	s.manager.SetDeployer(client, inline)
	s.logger.Info("controller attached", "base_url", client.BaseURL(), "inline", inline)
}

// buildPublisher connects the JetStream publisher when enabled.
// Params: none.
// Returns: setup error.
func (s *Service) buildPublisher() error {
	if !s.cfg.Publish.Enabled {
		return nil
	}
	producer, err := publish.NewNATSProducer(s.cfg.Ingest.NATS.URL, s.cfg.Publish)
	if err != nil {
		return err
	}
	s.publisher = producer
	s.manager.SetProducer(producer)
	return nil
}

// buildDeployWorker starts the stream consumer that deploys published configs.
// Params: none.
// Returns: setup error.
func (s *Service) buildDeployWorker() error {
	if !s.cfg.Publish.Enabled || !s.cfg.Publish.Deploy {
		return nil
	}
	worker, err := publish.NewDeployWorker(s.cfg.Ingest.NATS.URL, s.cfg.Publish, s.logger, s.manager.DeployRecord)
	if err != nil {
		return err
	}
	s.deployQ = worker
	return nil
}

// buildHTTPServer wires router with validate and probe endpoints.
// Params: none.
// Returns: setup error.
func (s *Service) buildHTTPServer() error {
	if !s.cfg.Ingest.HTTP.Enabled {
		return nil
	}
	router := ingest.NewRouter(s.cfg.Ingest.HTTP, s.manager, s.readyFlag.Load, s.logger)
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Ingest.HTTP.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// buildNATSResponder starts NATS request/reply ingest when enabled.
// Params: none.
// Returns: initialization error.
func (s *Service) buildNATSResponder() error {
	if !s.cfg.Ingest.NATS.Enabled {
		return nil
	}
	responder, err := ingest.NewNATSResponder(s.cfg.Ingest.NATS, s.manager, s.logger)
	if err != nil {
		return err
	}
	s.natsSub = responder
	return nil
}

// reloadValidator rereads validator files and swaps the validator.
// Params: none.
// Returns: reload error; the previous validator stays active on failure.
func (s *Service) reloadValidator() error {
	nextCfg, err := config.LoadSnapshot(s.source)
	if err != nil {
		return err
	}
	validator, err := BuildValidator(nextCfg.Validator, s.logger)
	if err != nil {
		return err
	}
	s.manager.SetValidator(validator)
	s.logger.Info("validator reloaded")
	return nil
}
