package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/repositories"
)

const seasonCheckName = "season"

// BuildInfo is the release metadata reported on /healthz and /readyz.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service.
// Season is optional; when set the report carries a season check describing whether ordering is open.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Season           SeasonGate
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	health repositories.HealthRepository
	season SeasonGate
	now    func() time.Time
	build  BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the service behind the health endpoints.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	svc := &systemService{
		health: deps.HealthRepository,
		season: deps.Season,
		now:    func() time.Time { return clock().UTC() },
		build:  deps.Build,
	}
	if svc.build.StartedAt.IsZero() {
		svc.build.StartedAt = svc.now()
	}
	return svc, nil
}

func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}
	if report.Checks == nil {
		report.Checks = make(map[string]domain.SystemHealthCheck, 1)
	}
	if s.season != nil {
		report.Checks[seasonCheckName] = s.probeSeason(ctx)
	}

	now := s.now()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	} else {
		report.GeneratedAt = report.GeneratedAt.UTC()
	}
	if strings.TrimSpace(report.Version) == "" {
		report.Version = s.build.Version
	}
	if strings.TrimSpace(report.CommitSHA) == "" {
		report.CommitSHA = s.build.CommitSHA
	}
	if strings.TrimSpace(report.Environment) == "" {
		report.Environment = s.build.Environment
	}
	if report.Uptime <= 0 {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	if strings.TrimSpace(report.Status) == "" {
		report.Status = worstStatus(report.Checks)
	}
	return report, nil
}

// probeSeason reports ok for a closed season and degraded when the flag cannot be read.
func (s *systemService) probeSeason(ctx context.Context) domain.SystemHealthCheck {
	started := s.now()
	active, err := s.season.IsSeasonActive(ctx)
	check := domain.SystemHealthCheck{
		Status:    domain.HealthStatusOK,
		Latency:   s.now().Sub(started),
		CheckedAt: started,
	}
	switch {
	case err != nil:
		check.Status = domain.HealthStatusDegraded
		check.Error = err.Error()
	case active:
		check.Detail = "ordering open"
	default:
		check.Detail = "ordering closed"
	}
	return check
}

func worstStatus(checks map[string]domain.SystemHealthCheck) string {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusError:
			return domain.HealthStatusError
		case domain.HealthStatusDegraded:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
