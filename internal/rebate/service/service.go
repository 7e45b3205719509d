package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	storedomain "github.com/smallbiznis/rebateplan/internal/artifactstore/domain"
	"github.com/smallbiznis/rebateplan/internal/clock"
	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/observability/metrics"
	"github.com/smallbiznis/rebateplan/internal/rebate/artifact"
	"github.com/smallbiznis/rebateplan/internal/rebate/balance"
	"github.com/smallbiznis/rebateplan/internal/rebate/domain"
	"github.com/smallbiznis/rebateplan/internal/rebate/grouping"
	"github.com/smallbiznis/rebateplan/internal/rebate/session"
	"github.com/smallbiznis/rebateplan/internal/savelock"
)

// ServiceParam is the service dependency.
type ServiceParam struct {
	fx.In
	Log     *zap.Logger
	Store   storedomain.Service
	Catalog *field.CatalogHolder
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
	Locker  *savelock.Locker `optional:"true"`
}

type planService struct {
	log     *zap.Logger
	store   storedomain.Service
	catalog *field.CatalogHolder
	clk     clock.Clock
	metrics *metrics.Metrics
	locker  *savelock.Locker
	codec   *artifact.Codec
	differ  *artifact.Differ

	mu    sync.Mutex
	plans map[string]*plan
}

type plan struct {
	session  *session.EditSession
	debounce *session.Debouncer
}

// NewService creates the plan service.
func NewService(p ServiceParam) domain.Service {
	codec := artifact.NewCodec(p.Log, p.Metrics)
	return &planService{
		log:     p.Log.Named("rebate.service"),
		store:   p.Store,
		catalog: p.Catalog,
		clk:     p.Clock,
		metrics: p.Metrics,
		locker:  p.Locker,
		codec:   codec,
		differ:  artifact.NewDiffer(codec),
		plans:   map[string]*plan{},
	}
}

// Refresh rebuilds the plan from freshly queried host rows: group, fetch the
// persisted snapshot, recompute every balance and replace any prior session.
func (s *planService) Refresh(ctx context.Context, namespace string, rows []domain.QueryRow, hostFields []field.Field, filters map[string]any) (*domain.PlanView, error) {
	if len(rows) == 0 {
		return nil, domain.ErrNoHostRows
	}
	s.metrics.ObserveRefreshRows(len(rows))

	catalog := s.catalog.Current()
	groups := grouping.Group(rows, hostFields)

	keys := make([]string, 0, len(groups))
	for i := range groups {
		keys = append(keys, groups[i].Customer)
	}

	snapshot, err := s.fetchSnapshot(ctx, namespace, keys, catalog.Limits.FetchChunkSize)
	if err != nil {
		s.log.Error("failed to fetch persisted artifacts",
			zap.String("namespace", namespace),
			zap.Error(err),
		)
		return nil, err
	}

	artifacts, balances := balance.Calculate(catalog, groups, snapshot)

	fields := append(append([]field.Field{}, hostFields...), catalog.Editable...)
	sess := session.New(fields, groups, filters, artifacts, artifacts.Clone(), balances)

	s.mu.Lock()
	if prior, ok := s.plans[namespace]; ok {
		prior.debounce.Stop()
	}
	s.plans[namespace] = &plan{
		session:  sess,
		debounce: session.NewDebouncer(s.clk, catalog.Limits.SaveDebounce()),
	}
	s.mu.Unlock()

	return sess.View(), nil
}

// ApplyEdit stages the edited values synchronously and debounces the balance
// recompute for the touched customer.
func (s *planService) ApplyEdit(ctx context.Context, namespace, customer, uid string, values map[string]any) (*domain.PlanView, error) {
	p, ok := s.plan(namespace)
	if !ok {
		return nil, domain.ErrPlanNotFound
	}

	customerKnown, skuKnown := p.session.HasSku(customer, uid)
	if !customerKnown {
		return nil, domain.ErrCustomerUnknown
	}
	if !skuKnown {
		return nil, domain.ErrSkuUnknown
	}

	catalog := s.catalog.Current()
	p.session.StageEdit(customer, uid, normalizeValues(catalog, values))

	p.debounce.Trigger(func() {
		s.recompute(p.session, customer)
	})

	return p.session.View(), nil
}

// Save diffs the staged edits against the saved snapshot and writes the batch
// with optimistic versions. A save already in flight is rejected.
func (s *planService) Save(ctx context.Context, namespace string) (*domain.PlanView, error) {
	p, ok := s.plan(namespace)
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	if err := p.session.BeginSave(); err != nil {
		s.metrics.IncSave("rejected")
		return nil, err
	}

	lockKey := savelock.Key(namespace)
	token, won, err := s.locker.TryLock(ctx, lockKey, savelock.DefaultTTL)
	if err != nil || !won {
		p.session.CancelSave()
		s.metrics.IncSave("rejected")
		if err != nil {
			return nil, err
		}
		return nil, domain.ErrSaveInFlight
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey, token); err != nil {
			s.log.Warn("failed to release save lock", zap.String("namespace", namespace), zap.Error(err))
		}
	}()

	catalog := s.catalog.Current()
	pending, saved, groups, filters := p.session.PendingSnapshot()

	requests, err := s.differ.Diff(catalog, pending, saved, groups, filters)
	if err != nil {
		p.session.CancelSave()
		s.metrics.IncSave("error")
		return nil, err
	}
	if len(requests) == 0 {
		p.session.CancelSave()
		return p.session.View(), nil
	}

	records, err := s.store.Write(ctx, namespace, requests)
	if err != nil {
		p.session.CancelSave()
		s.metrics.IncSave(saveResult(err))
		s.log.Error("failed to write artifacts",
			zap.String("namespace", namespace),
			zap.Int("requests", len(requests)),
			zap.Error(err),
		)
		return nil, err
	}

	snapshot := saved.Clone()
	for _, rec := range records {
		snapshot[rec.Key] = domain.ArtifactEntry{
			Value:   s.codec.Decode(rec.Value),
			Version: rec.Version,
		}
	}

	artifacts, balances := balance.Calculate(catalog, groups, snapshot)
	p.session.CompleteSave(artifacts, artifacts.Clone(), balances)
	s.metrics.IncSave("ok")

	s.clk.AfterFunc(catalog.Limits.SavedStateReset(), p.session.ResetSavedState)

	return p.session.View(), nil
}

// View returns the current state of a plan.
func (s *planService) View(ctx context.Context, namespace string) (*domain.PlanView, error) {
	p, ok := s.plan(namespace)
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return p.session.View(), nil
}

func (s *planService) plan(namespace string) (*plan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[namespace]
	return p, ok
}

// recompute runs the balance pass for one customer against the merged saved
// plus pending values and folds the result into the running aggregates.
func (s *planService) recompute(sess *session.EditSession, customer string) {
	group := sess.GroupFor(customer)
	if group == nil {
		return
	}
	catalog := s.catalog.Current()

	merged, version := sess.MergedFor(customer)
	artifacts, balances := balance.Calculate(catalog,
		[]domain.CustomerGroup{*group},
		domain.ArtifactValues{customer: {Value: merged, Version: version}},
	)

	sess.SetDisplay(customer, artifacts[customer], balances[customer], balance.Merge)
}

// fetchSnapshot loads and decodes the persisted values, chunking the key set
// and fetching the chunks concurrently.
func (s *planService) fetchSnapshot(ctx context.Context, namespace string, keys []string, chunkSize int) (domain.ArtifactValues, error) {
	if chunkSize <= 0 {
		chunkSize = field.DefaultLimits().FetchChunkSize
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		records  []storedomain.Record
	)
	for _, chunk := range chunkKeys(keys, chunkSize) {
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			recs, err := s.store.Fetch(ctx, namespace, keys)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			records = append(records, recs...)
		}(chunk)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	snapshot := domain.ArtifactValues{}
	for _, rec := range records {
		snapshot[rec.Key] = domain.ArtifactEntry{
			Value:   s.codec.Decode(rec.Value),
			Version: rec.Version,
		}
	}
	return snapshot, nil
}

func chunkKeys(keys []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}

// normalizeValues coerces edited number fields so rendered strings like
// "1,000" compute as numbers.
func normalizeValues(catalog field.Catalog, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for name, v := range values {
		f, ok := catalog.EditableByName(name)
		if ok && f.Kind == field.KindNumber {
			out[name] = domain.AsFloat(v)
			continue
		}
		out[name] = v
	}
	return out
}

func saveResult(err error) string {
	if errors.Is(err, storedomain.ErrVersionConflict) {
		return "conflict"
	}
	return "error"
}
