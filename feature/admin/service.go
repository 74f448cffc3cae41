package admin

import (
	"context"
	"errors"
	"fmt"

	"app-host/core/descriptor"
	"app-host/core/pool"
	"app-host/core/router"
	"app-host/core/scaling"
	"app-host/core/watcher"

	"go.uber.org/zap"
)

// ErrScaleOutOfRange is returned when a manual scale request exceeds the policy bounds.
var ErrScaleOutOfRange = errors.New("instance count outside policy bounds")

// Scaler exposes the autoscaler state.
type Scaler interface {
	Policy() scaling.Policy
	Last() scaling.Decision
}

// Service implements the admin operations.
type Service struct {
	holder    *watcher.Holder
	instances scaling.Target
	scaler    Scaler
	logger    *zap.Logger
}

// NewService creates a new admin service. instances and scaler may be nil when the
// descriptor has no script handler.
func NewService(holder *watcher.Holder, instances scaling.Target, scaler Scaler, l *zap.Logger) *Service {
	return &Service{holder: holder, instances: instances, scaler: scaler, logger: l}
}

// Routes returns the active route table.
func (s *Service) Routes() []router.Route {
	return s.holder.Current().Router.Routes()
}

// MatchPath resolves path against the active routes.
func (s *Service) MatchPath(path string) (*router.Match, bool) {
	return s.holder.Current().Router.Match(path)
}

// ValidationResult is the outcome of validating the descriptor on disk.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Digest string            `json:"digest,omitempty"`
	Active bool              `json:"active"`
	Report descriptor.Report `json:"report"`
	Error  string            `json:"error,omitempty"`
}

// Validate checks the descriptor file on disk without activating it.
func (s *Service) Validate(strict bool) ValidationResult {
	cfg := s.holder.Config()
	d, raw, err := descriptor.Load(cfg.Descriptor)
	if err != nil {
		return ValidationResult{Error: err.Error()}
	}

	report := d.Validate(cfg.ValidationRoot())
	if strict {
		report = report.Strict()
	}
	digest := descriptor.Digest(raw)
	return ValidationResult{
		Valid:  report.Err() == nil,
		Digest: digest,
		Active: digest == s.holder.Current().Digest,
		Report: report,
	}
}

// Reload activates the descriptor on disk.
func (s *Service) Reload(ctx context.Context) (bool, string, error) {
	changed, err := s.holder.Reload(ctx)
	return changed, s.holder.Current().Digest, err
}

// InstancesView is the pool and scaling state.
type InstancesView struct {
	Stats        pool.Stats        `json:"stats"`
	Utilization  float64           `json:"utilization"`
	Policy       *scaling.Policy   `json:"policy,omitempty"`
	LastDecision *scaling.Decision `json:"last_decision,omitempty"`
}

// Instances returns the current pool state, nil when no pool runs.
func (s *Service) Instances() *InstancesView {
	if s.instances == nil {
		return nil
	}
	stats := s.instances.Stats()
	view := &InstancesView{Stats: stats, Utilization: stats.Utilization()}
	if s.scaler != nil {
		policy, last := s.scaler.Policy(), s.scaler.Last()
		view.Policy = &policy
		view.LastDecision = &last
	}
	return view
}

// Scale resizes the pool to n. The autoscaler may adjust it again on its next evaluation.
func (s *Service) Scale(ctx context.Context, n int) error {
	if s.instances == nil {
		return fmt.Errorf("%w: no instance pool", ErrScaleOutOfRange)
	}
	if s.scaler != nil {
		p := s.scaler.Policy()
		if n < p.MinInstances || n > p.MaxInstances {
			return fmt.Errorf("%w: want %d, allowed [%d, %d]", ErrScaleOutOfRange, n, p.MinInstances, p.MaxInstances)
		}
	}
	s.logger.Info("Manual scale", zap.Int("instances", n))
	return s.instances.Resize(ctx, n)
}

// Healthy reports whether the application can serve requests.
func (s *Service) Healthy() (bool, int) {
	if !s.holder.Current().Descriptor.HasScriptHandler() {
		return true, 0
	}
	if s.instances == nil {
		return false, 0
	}
	ready := s.instances.Stats().Ready
	return ready > 0, ready
}
