package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/registry-validator/internal/model"
	"github.com/nao1215/registry-validator/internal/uri"
)

// LivenessTester runs the bounded liveness probe for an address.
type LivenessTester interface {
	Probe(ctx context.Context, uri string) (bool, error)
}

// CountryResolver maps a bare host to a country.
type CountryResolver interface {
	Resolve(ctx context.Context, host string) (model.Country, error)
}

// InfoPageChecker reports whether a domain serves an info page.
type InfoPageChecker interface {
	Check(ctx context.Context, domain string, viaProxy bool) bool
}

// ServerDeleter removes servers from the registry.
type ServerDeleter interface {
	DeleteServer(ctx context.Context, uuid string) error
}

// StatusWriter appends status rows.
type StatusWriter interface {
	InsertStatus(ctx context.Context, status *model.ServerStatus) error
}

// OfficialStep removes servers run by the network operator. They are
// never tested and never get a status row.
type OfficialStep struct {
	deleter ServerDeleter
	marker  string
	dryRun  bool
	logger  *slog.Logger
}

// NewOfficialStep creates the official filter. An empty marker disables it.
func NewOfficialStep(deleter ServerDeleter, marker string, dryRun bool, logger *slog.Logger) *OfficialStep {
	return &OfficialStep{deleter: deleter, marker: marker, dryRun: dryRun, logger: logger}
}

// Name implements Step.
func (s *OfficialStep) Name() string {
	return "official"
}

// Do implements Step.
func (s *OfficialStep) Do(ctx context.Context, check *Check) error {
	if !uri.IsOfficial(check.URI, s.marker) {
		return nil
	}
	if s.dryRun {
		s.logger.Info("dry run: keeping official server", "server", check.Server.UUID, "uri", check.URI)
		check.Outcome = OutcomeOfficial
		return ErrStop
	}
	if err := s.deleter.DeleteServer(ctx, check.Server.UUID); err != nil {
		return err
	}
	s.logger.Info("deleted official server", "server", check.Server.UUID, "uri", check.URI)
	check.Outcome = OutcomeDeleted
	return ErrStop
}

// ClassifyStep parses the address and classifies its hosts.
type ClassifyStep struct {
	marker string
	logger *slog.Logger
}

// NewClassifyStep creates the classifier step.
func NewClassifyStep(marker string, logger *slog.Logger) *ClassifyStep {
	return &ClassifyStep{marker: marker, logger: logger}
}

// Name implements Step.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do implements Step.
func (s *ClassifyStep) Do(_ context.Context, check *Check) error {
	addr, err := uri.Parse(check.URI, uri.WithOfficialMarker(s.marker))
	if err != nil {
		return err
	}
	for _, host := range addr.Domain.Hosts {
		if uri.IsOnion(host) && !uri.IsValidOnionV3(host) {
			s.logger.Warn("onion host fails v3 checksum", "server", check.Server.UUID, "host", host)
		}
	}
	check.Address = addr
	s.logger.Debug("classified",
		"server", check.Server.UUID,
		"kind", addr.Domain.Kind.String(),
		"primary", addr.PrimaryHost(),
		"info_page_domain", addr.Domain.InfoPageDomain,
	)
	return nil
}

// LivenessStep runs the liveness probe.
type LivenessStep struct {
	tester LivenessTester
	logger *slog.Logger
}

// NewLivenessStep creates the liveness step.
func NewLivenessStep(tester LivenessTester, logger *slog.Logger) *LivenessStep {
	return &LivenessStep{tester: tester, logger: logger}
}

// Name implements Step.
func (s *LivenessStep) Name() string {
	return "liveness"
}

// Do implements Step.
func (s *LivenessStep) Do(ctx context.Context, check *Check) error {
	live, err := s.tester.Probe(ctx, check.URI)
	if err != nil {
		return fmt.Errorf("liveness probe: %w", err)
	}
	check.Live = live
	s.logger.Info("liveness tested", "server", check.Server.UUID, "uri", check.URI, "live", live)
	return nil
}

// GeolocateStep sets the country of the primary host. Lookup failures leave
// the country absent and are not errors.
type GeolocateStep struct {
	resolver CountryResolver
	logger   *slog.Logger
}

// NewGeolocateStep creates the geolocation step.
func NewGeolocateStep(resolver CountryResolver, logger *slog.Logger) *GeolocateStep {
	return &GeolocateStep{resolver: resolver, logger: logger}
}

// Name implements Step.
func (s *GeolocateStep) Name() string {
	return "geolocate"
}

// Do implements Step.
func (s *GeolocateStep) Do(ctx context.Context, check *Check) error {
	if check.Address == nil {
		return errors.New("geolocate: address not classified")
	}

	host := check.Address.PrimaryHost()
	// Only the primary host decides; a DNS primary listed next to an onion
	// mirror is still geolocated.
	if uri.IsOnion(host) {
		country := model.AnonymizedCountry()
		check.Country = &country
		s.logger.Info("geolocated", "server", check.Server.UUID, "host", host, "country", country.String())
		return nil
	}

	country, err := s.resolver.Resolve(ctx, host)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Info("country unknown", "server", check.Server.UUID, "host", host, "reason", err)
		return nil
	}
	check.Country = &country
	s.logger.Info("geolocated", "server", check.Server.UUID, "host", host, "country", country.String())
	return nil
}

// InfoPageStep checks the info page of the primary host, through the proxy
// exactly when the country is anonymized.
type InfoPageStep struct {
	checker InfoPageChecker
	logger  *slog.Logger
}

// NewInfoPageStep creates the info page step.
func NewInfoPageStep(checker InfoPageChecker, logger *slog.Logger) *InfoPageStep {
	return &InfoPageStep{checker: checker, logger: logger}
}

// Name implements Step.
func (s *InfoPageStep) Name() string {
	return "info_page"
}

// Do implements Step.
func (s *InfoPageStep) Do(ctx context.Context, check *Check) error {
	if check.Address == nil {
		return errors.New("info_page: address not classified")
	}
	viaProxy := check.Country != nil && check.Country.IsAnonymized()
	domain := check.Address.PrimaryHost()
	check.InfoPageAvailable = s.checker.Check(ctx, domain, viaProxy)
	s.logger.Info("info page checked",
		"server", check.Server.UUID,
		"domain", domain,
		"via_proxy", viaProxy,
		"available", check.InfoPageAvailable,
	)
	return nil
}

// PersistStep assembles the status record and appends it unless dry run
// is active.
type PersistStep struct {
	writer StatusWriter
	dryRun bool
	logger *slog.Logger
}

// NewPersistStep creates the persistence step.
func NewPersistStep(writer StatusWriter, dryRun bool, logger *slog.Logger) *PersistStep {
	return &PersistStep{writer: writer, dryRun: dryRun, logger: logger}
}

// Name implements Step.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do implements Step.
func (s *PersistStep) Do(ctx context.Context, check *Check) error {
	check.Status = model.NewServerStatus(check.Server.UUID, check.Live, check.Country, check.InfoPageAvailable)

	if s.dryRun {
		s.logger.Info("dry run: skipping status insert", "server", check.Server.UUID)
		check.Outcome = OutcomeDryRun
		return nil
	}
	if err := s.writer.InsertStatus(ctx, check.Status); err != nil {
		return err
	}
	check.Outcome = OutcomeRecorded
	s.logger.Info("status recorded",
		"server", check.Server.UUID,
		"status", check.Status.Status,
		"country", check.Status.CountryString(),
		"info_page_available", check.Status.InfoPageAvailable,
	)
	return nil
}
