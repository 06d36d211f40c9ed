package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/siteledger/capital/internal/modules/exposure"
	"github.com/siteledger/capital/internal/modules/fees"
	"github.com/siteledger/capital/internal/modules/ledger"
	"github.com/siteledger/capital/internal/modules/xirr"
	"github.com/siteledger/capital/internal/observability/metrics"
	"github.com/siteledger/capital/internal/utils"
)

// ErrNotFound is returned when a requested investor or purchase request does not exist.
var ErrNotFound = errors.New("not found")

// DataSource fetches the dataset one computation runs on.
// ledger.Repository is the production implementation.
type DataSource interface {
	LoadDataset(ctx context.Context) (*ledger.Dataset, ledger.Diagnostics, error)
}

// Config holds the fee parameters the views are computed with.
type Config struct {
	DefaultTerms fees.FinanceTerms
	Policy       fees.Policy
}

// DefaultConfig returns the documented platform defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTerms: fees.DefaultTerms(),
		Policy:       fees.DefaultPolicy(),
	}
}

// Service computes analytics views. It holds no state between calls: every method
// fetches the dataset once and re-derives everything from it.
type Service struct {
	source DataSource
	cfg    Config
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a new analytics service
func NewService(source DataSource, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With().Str("service", "analytics").Logger(),
	}
}

// SetClock replaces the clock used for days outstanding. Tests pin it.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the fee parameters in effect.
func (s *Service) Config() Config {
	return s.cfg
}

// snapshot is one fetched dataset and its aggregation.
type snapshot struct {
	dataset  *ledger.Dataset
	exposure *exposure.Result
	now      time.Time
	diag     ledger.Diagnostics
}

func (s *Service) load(ctx context.Context) (*snapshot, error) {
	ds, diag, err := s.source.LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger dataset: %w", err)
	}

	res, aggDiag := exposure.Aggregate(exposure.InputFromDataset(ds))
	return &snapshot{
		dataset:  ds,
		exposure: res,
		now:      s.now(),
		diag:     diag.Add(aggDiag),
	}, nil
}

// finish logs and records the degraded records of one computation.
func (s *Service) finish(view string, diag ledger.Diagnostics) {
	for reason, n := range diag.Counts() {
		metrics.AddDegraded(reason, n)
	}
	diag.Log(s.log, view)
}

func (s *Service) observe(view string, stop func() time.Duration, err *error) {
	result := metrics.ResultSuccess
	if *err != nil && !errors.Is(*err, ErrNotFound) {
		result = metrics.ResultError
	}
	metrics.ObserveView(view, result, stop())
}

func observeReturns(r xirr.Returns) {
	metrics.ObserveSolve(string(r.Gross.Reason), r.Gross.Iterations)
	metrics.ObserveSolve(string(r.Net.Reason), r.Net.Iterations)
}

// ProjectViews returns every project, largest funded first.
func (s *Service) ProjectViews(ctx context.Context) (views []ProjectView, err error) {
	defer s.observe("projects", utils.OperationTimer("project_views", s.log), &err)

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	views, diag := BuildProjectViews(snap.exposure, snap.dataset, snap.now, s.cfg.DefaultTerms)
	s.finish("projects", snap.diag.Add(diag))
	return views, nil
}

// PlatformSummary returns the platform-wide rollup.
func (s *Service) PlatformSummary(ctx context.Context) (summary PlatformSummary, err error) {
	defer s.observe("platform", utils.OperationTimer("platform_summary", s.log), &err)

	snap, err := s.load(ctx)
	if err != nil {
		return PlatformSummary{}, err
	}

	views, diag := BuildProjectViews(snap.exposure, snap.dataset, snap.now, s.cfg.DefaultTerms)
	s.finish("platform", snap.diag.Add(diag))
	return BuildPlatformSummary(views, snap.dataset), nil
}

// InvestorView returns one investor's dashboard.
// Returns ErrNotFound when the investor is neither listed nor present in the ledger.
func (s *Service) InvestorView(ctx context.Context, investorID string) (view InvestorView, err error) {
	defer s.observe("investor", utils.OperationTimer("investor_view", s.log), &err)

	snap, err := s.load(ctx)
	if err != nil {
		return InvestorView{}, err
	}

	inv, listed := snap.dataset.FindInvestor(investorID)
	ie, aggregated := snap.exposure.Investor(investorID)
	if !listed && !aggregated {
		s.finish("investor", snap.diag)
		return InvestorView{}, fmt.Errorf("investor %s: %w", investorID, ErrNotFound)
	}
	if !listed {
		inv = ledger.Investor{ID: investorID}
	}

	view, returns, diag := BuildInvestorView(inv, ie, snap.dataset, snap.now, s.cfg.DefaultTerms, s.cfg.Policy)
	observeReturns(returns)
	s.finish("investor", snap.diag.Add(diag))

	s.log.Debug().
		Str("investor_id", investorID).
		Str("gross_reason", string(returns.Gross.Reason)).
		Int("gross_iterations", returns.Gross.Iterations).
		Str("net_reason", string(returns.Net.Reason)).
		Msg("Computed investor returns")

	return view, nil
}

// InvestorViews returns every investor's dashboard in rollup order.
func (s *Service) InvestorViews(ctx context.Context) (views []InvestorView, err error) {
	defer s.observe("investors", utils.OperationTimer("investor_views", s.log), &err)

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	diag := snap.diag
	views = make([]InvestorView, 0, len(snap.exposure.Investors))
	for _, ie := range snap.exposure.Investors {
		inv, ok := snap.dataset.FindInvestor(ie.InvestorID)
		if !ok {
			inv = ledger.Investor{ID: ie.InvestorID}
		}
		view, returns, viewDiag := BuildInvestorView(inv, ie, snap.dataset, snap.now, s.cfg.DefaultTerms, s.cfg.Policy)
		observeReturns(returns)
		diag = diag.Add(viewDiag)
		views = append(views, view)
	}

	s.finish("investors", diag)
	return views, nil
}

// RequestFees returns the fee waterfall of one purchase request.
func (s *Service) RequestFees(ctx context.Context, requestID string) (view RequestView, err error) {
	defer s.observe("request_fees", utils.OperationTimer("request_fees", s.log), &err)

	snap, err := s.load(ctx)
	if err != nil {
		return RequestView{}, err
	}
	s.finish("request_fees", snap.diag)

	re, ok := snap.exposure.Request(requestID)
	if !ok {
		return RequestView{}, fmt.Errorf("purchase request %s: %w", requestID, ErrNotFound)
	}

	terms, termDiag := fees.TermsFor(snap.dataset.ContractorByID(), re.ContractorID, s.cfg.DefaultTerms)
	if !termDiag.Empty() {
		s.finish("request_fees", termDiag)
	}
	return requestView(re, terms, snap.now), nil
}

