package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"snifferconfig/internal/assembler"
	"snifferconfig/internal/config"
	"snifferconfig/internal/domain"
	"snifferconfig/internal/logging"
	"snifferconfig/internal/policy"
	"snifferconfig/internal/publish"
	"snifferconfig/internal/sanity"
	"snifferconfig/internal/schema"
)

// Deployer hands an accepted configuration to the downstream controller.
type Deployer interface {
	Deploy(ctx context.Context, result domain.Result) (map[string]any, error)
}

// Manager validates documents and forwards accepted results.
// Params: current validator, optional publisher and deployer, logger, and time source.
// Returns: validator used by every front door.
type Manager struct {
	mu           sync.RWMutex
	validator    *assembler.Validator
	producer     publish.Producer
	deployer     Deployer
	deployInline bool
	logger       *slog.Logger
	now          func() time.Time
}

// NewManager creates manager around a validator.
// Params: validator and logger.
// Returns: manager without publisher or deployer.
func NewManager(validator *assembler.Validator, logger *slog.Logger) *Manager {
	if validator == nil {
		validator = assembler.New()
	}
	return &Manager{
		validator: validator,
		logger:    logging.OrDiscard(logger),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetValidator swaps the validator used by later calls.
func (m *Manager) SetValidator(validator *assembler.Validator) {
	if validator == nil {
		return
	}
	m.mu.Lock()
	m.validator = validator
	m.mu.Unlock()
}

// SetProducer sets the publisher that receives accepted results.
func (m *Manager) SetProducer(producer publish.Producer) {
	m.mu.Lock()
	m.producer = producer
	m.mu.Unlock()
}

// SetDeployer sets the controller used for deployment.
// Params: deployer and inline flag; inline deploys during Validate, otherwise only DeployRecord uses it.
// Returns: none.
func (m *Manager) SetDeployer(deployer Deployer, inline bool) {
	m.mu.Lock()
	m.deployer = deployer
	m.deployInline = inline
	m.mu.Unlock()
}

// Validate runs the pipeline and forwards accepted results.
// Params: context for forwarding and raw document text.
// Returns: validation response; forwarding failures never turn it into a rejection.
func (m *Manager) Validate(ctx context.Context, raw string) domain.Response {
	m.mu.RLock()
	validator, producer, deployer := m.validator, m.producer, m.deployer
	if !m.deployInline {
		deployer = nil
	}
	m.mu.RUnlock()

	response := validator.Validate(raw)
	if !response.OK {
		m.logger.Info("config rejected", "errors", len(response.Errors))
		return response
	}

	result := *response.Result
	m.logger.Info("config accepted", "id", result.ID, "bytes", len(result.ConfigStr))
	if producer != nil {
		record := publish.NewRecord(result, m.now())
		if err := producer.Publish(ctx, record); err != nil {
			m.logger.Error("config publish failed", "id", result.ID, "record", record.ID, "error", err.Error())
		}
	}
	if deployer != nil {
		if _, err := deployer.Deploy(ctx, result); err != nil {
			m.logger.Error("config deploy failed", "id", result.ID, "error", err.Error())
		}
	}
	return response
}

// DeployRecord deploys one published record; used as stream worker handler.
// Params: context and record from the stream.
// Returns: deploy error for redelivery classification.
func (m *Manager) DeployRecord(ctx context.Context, record publish.Record) error {
	m.mu.RLock()
	deployer := m.deployer
	m.mu.RUnlock()
	if deployer == nil {
		return fmt.Errorf("no deployer configured for record %s", record.ID)
	}
	if _, err := deployer.Deploy(ctx, record.Result); err != nil {
		return err
	}
	m.logger.Info("config deployed", "id", record.Result.ID, "record", record.ID)
	return nil
}

// BuildValidator assembles a validator from validator file settings.
// Params: validator config and logger.
// Returns: validator using built-in collaborators for unset files.
func BuildValidator(cfg config.ValidatorConfig, logger *slog.Logger) (*assembler.Validator, error) {
	opts := []assembler.Option{
		assembler.WithTypeTag(cfg.TypeTag),
		assembler.WithLogger(logger),
	}

	if cfg.SchemaFile != "" {
		loaded, err := schema.LoadFile(cfg.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		opts = append(opts, assembler.WithSchema(loaded))
	}

	if cfg.SanityFile != "" {
		extra, err := sanity.LoadFile(cfg.SanityFile)
		if err != nil {
			return nil, fmt.Errorf("load sanity rules: %w", err)
		}
		rules := append(sanity.Default(), extra...)
		opts = append(opts, assembler.WithRules(rules))
	}

	if cfg.PolicyFile != "" {
		block, err := policy.LoadFile(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		opts = append(opts, assembler.WithPolicy(block))
	}

	return assembler.New(opts...), nil
}
