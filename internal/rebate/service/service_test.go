package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	storedomain "github.com/smallbiznis/rebateplan/internal/artifactstore/domain"
	"github.com/smallbiznis/rebateplan/internal/clock"
	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

type storeStub struct {
	mu         sync.Mutex
	records    map[string]map[string]storedomain.Record
	fetchCalls int
	fetchErr   error
	writeErr   error
}

func newStoreStub() *storeStub {
	return &storeStub{records: map[string]map[string]storedomain.Record{}}
}

func (s *storeStub) Fetch(ctx context.Context, namespace string, keys []string) ([]storedomain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []storedomain.Record
	for _, key := range keys {
		if rec, ok := s.records[namespace][key]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *storeStub) Write(ctx context.Context, namespace string, requests []storedomain.WriteRequest) ([]storedomain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	if s.records[namespace] == nil {
		s.records[namespace] = map[string]storedomain.Record{}
	}
	var out []storedomain.Record
	for _, req := range requests {
		stored, ok := s.records[namespace][req.Key]
		if ok && stored.Version != req.Version {
			return nil, storedomain.ErrVersionConflict
		}
		rec := storedomain.Record{Key: req.Key, Value: req.Value, Version: req.Version + 1}
		s.records[namespace][req.Key] = rec
		out = append(out, rec)
	}
	return out, nil
}

func (s *storeStub) FetchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

func setupPlanService(t *testing.T, store storedomain.Service, clk clock.Clock) domain.Service {
	t.Helper()
	holder, err := field.NewCatalogHolder(zap.NewNop())
	assert.NoError(t, err)
	return NewService(ServiceParam{
		Log:     zap.NewNop(),
		Store:   store,
		Catalog: holder,
		Clock:   clk,
	})
}

func planFields() []field.Field {
	return []field.Field{
		{Name: field.HostCustomer, Label: "Customer"},
		{Name: field.HostEntitlement, Label: "W/O Rebate"},
		{Name: field.HostCategory, Label: "Category"},
		{Name: field.HostSKU, Label: field.SKULabel},
		{Name: field.HostRecommendedAmt, Label: "Recommended Amt"},
		{Name: field.HostOutstandingSplit, Label: "Outstanding Split"},
		{Name: field.HostOutstandingAll, Label: "Outstanding All"},
	}
}

func planRow(customer, category, sku string, entitlement, recommended, split, all float64) domain.QueryRow {
	return domain.QueryRow{
		field.HostCustomer:         {Value: customer},
		field.HostCategory:         {Value: category},
		field.HostSKU:              {Value: sku},
		field.HostEntitlement:      {Value: entitlement},
		field.HostRecommendedAmt:   {Value: recommended},
		field.HostOutstandingSplit: {Value: split},
		field.HostOutstandingAll:   {Value: all},
	}
}

func TestRefreshBuildsPlan(t *testing.T) {
	svc := setupPlanService(t, newStoreStub(), clock.NewFakeClock(time.Now()))

	view, err := svc.Refresh(context.Background(), "ns", []domain.QueryRow{
		planRow("A", "DM", "S1", 1000, 50, 600, 900),
		planRow("A", "OTC", "S2", 1000, 20, 300, 900),
	}, planFields(), nil)

	assert.NoError(t, err)
	assert.Len(t, view.Customers, 1)
	assert.Equal(t, "unsaved", view.SaveState)

	s1 := view.Artifacts["A"].Value["S1_00"]
	assert.Equal(t, float64(50), s1[field.RebateAmt])
	assert.Equal(t, float64(950), s1[field.Balance])
	assert.Equal(t, float64(70), view.CheckBalance[domain.AllCustomersKey].Total.Used)
}

func TestRefreshRequiresRows(t *testing.T) {
	svc := setupPlanService(t, newStoreStub(), clock.NewFakeClock(time.Now()))

	_, err := svc.Refresh(context.Background(), "ns", nil, planFields(), nil)
	assert.ErrorIs(t, err, domain.ErrNoHostRows)
}

func TestRefreshPropagatesFetchError(t *testing.T) {
	store := newStoreStub()
	store.fetchErr = errors.New("store down")
	svc := setupPlanService(t, store, clock.NewFakeClock(time.Now()))

	_, err := svc.Refresh(context.Background(), "ns", []domain.QueryRow{
		planRow("A", "DM", "S1", 100, 0, 0, 0),
	}, planFields(), nil)
	assert.EqualError(t, err, "store down")
}

func TestRefreshChunksFetches(t *testing.T) {
	store := newStoreStub()
	svc := setupPlanService(t, store, clock.NewFakeClock(time.Now()))

	var rows []domain.QueryRow
	for i := 0; i < 25; i++ {
		customer := fmt.Sprintf("C%02d", i)
		rows = append(rows, planRow(customer, "DM", "S1", 100, 0, 0, 0))
	}

	_, err := svc.Refresh(context.Background(), "ns", rows, planFields(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, store.FetchCalls())
}

func TestApplyEditDebouncesRecompute(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	svc := setupPlanService(t, newStoreStub(), clk)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "ns", []domain.QueryRow{
		planRow("A", "DM", "S1", 1000, 50, 600, 900),
	}, planFields(), nil)
	assert.NoError(t, err)

	_, err = svc.ApplyEdit(ctx, "ns", "A", "S1_00", map[string]any{
		field.RebateType: field.RebateTypeCashDiscount,
		field.QtyOrAmt:   float64(100),
	})
	assert.NoError(t, err)

	// Display still shows the pre-edit value until the debounce fires.
	view, err := svc.View(ctx, "ns")
	assert.NoError(t, err)
	assert.Equal(t, float64(50), view.Artifacts["A"].Value["S1_00"][field.RebateAmt])

	clk.Advance(500 * time.Millisecond)

	view, err = svc.View(ctx, "ns")
	assert.NoError(t, err)
	assert.Equal(t, float64(100), view.Artifacts["A"].Value["S1_00"][field.RebateAmt])
	assert.Equal(t, float64(900), view.Artifacts["A"].Value["S1_00"][field.Balance])
	assert.Equal(t, float64(100), view.CheckBalance["A"].DM.Used)
	assert.Equal(t, float64(100), view.CheckBalance[domain.AllCustomersKey].Total.Used)
}

func TestApplyEditCoalescesBursts(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	svc := setupPlanService(t, newStoreStub(), clk)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "ns", []domain.QueryRow{
		planRow("A", "DM", "S1", 1000, 50, 600, 900),
	}, planFields(), nil)
	assert.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err = svc.ApplyEdit(ctx, "ns", "A", "S1_00", map[string]any{
			field.RebateType: field.RebateTypeCashDiscount,
			field.QtyOrAmt:   float64(i * 11),
		})
		assert.NoError(t, err)
		clk.Advance(100 * time.Millisecond)
	}

	// Only the last edit's recompute runs.
	clk.Advance(500 * time.Millisecond)
	view, err := svc.View(ctx, "ns")
	assert.NoError(t, err)
	assert.Equal(t, float64(55), view.Artifacts["A"].Value["S1_00"][field.RebateAmt])
}

func TestApplyEditUnknownTargets(t *testing.T) {
	svc := setupPlanService(t, newStoreStub(), clock.NewFakeClock(time.Now()))
	ctx := context.Background()

	_, err := svc.ApplyEdit(ctx, "nope", "A", "S1_00", map[string]any{field.QtyOrAmt: 1})
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	_, err = svc.Refresh(ctx, "ns", []domain.QueryRow{
		planRow("A", "DM", "S1", 100, 0, 0, 0),
	}, planFields(), nil)
	assert.NoError(t, err)

	_, err = svc.ApplyEdit(ctx, "ns", "Z", "S1_00", map[string]any{field.QtyOrAmt: 1})
	assert.ErrorIs(t, err, domain.ErrCustomerUnknown)

	_, err = svc.ApplyEdit(ctx, "ns", "A", "S9_00", map[string]any{field.QtyOrAmt: 1})
	assert.ErrorIs(t, err, domain.ErrSkuUnknown)
}

func TestSavePersistsAndRoundTrips(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	store := newStoreStub()
	svc := setupPlanService(t, store, clk)
	ctx := context.Background()

	rows := []domain.QueryRow{
		planRow("A", "DM", "S1", 1000, 50, 600, 900),
	}
	_, err := svc.Refresh(ctx, "ns", rows, planFields(), nil)
	assert.NoError(t, err)

	_, err = svc.ApplyEdit(ctx, "ns", "A", "S1_00", map[string]any{
		field.RebateType: field.RebateTypeCashDiscount,
		field.QtyOrAmt:   float64(250),
	})
	assert.NoError(t, err)

	view, err := svc.Save(ctx, "ns")
	assert.NoError(t, err)
	assert.Equal(t, "saved", view.SaveState)
	assert.Equal(t, float64(250), view.Artifacts["A"].Value["S1_00"][field.RebateAmt])

	// Saved badge drops back after the reset window.
	clk.Advance(3 * time.Second)
	view, err = svc.View(ctx, "ns")
	assert.NoError(t, err)
	assert.Equal(t, "unsaved", view.SaveState)

	// A fresh plan over the same namespace sees the persisted values.
	view, err = svc.Refresh(ctx, "ns", rows, planFields(), nil)
	assert.NoError(t, err)
	assert.Equal(t, float64(250), domain.AsFloat(view.Artifacts["A"].Value["S1_00"][field.QtyOrAmt]))
	assert.Equal(t, int64(1), view.Artifacts["A"].Version)
}

func TestSaveWithoutEditsWritesNothing(t *testing.T) {
	store := newStoreStub()
	svc := setupPlanService(t, store, clock.NewFakeClock(time.Now()))
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "ns", []domain.QueryRow{
		planRow("A", "DM", "S1", 100, 0, 0, 0),
	}, planFields(), nil)
	assert.NoError(t, err)

	view, err := svc.Save(ctx, "ns")
	assert.NoError(t, err)
	assert.Equal(t, "unsaved", view.SaveState)
	assert.Empty(t, store.records["ns"])
}

func TestSaveFailureKeepsPending(t *testing.T) {
	store := newStoreStub()
	svc := setupPlanService(t, store, clock.NewFakeClock(time.Now()))
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "ns", []domain.QueryRow{
		planRow("A", "DM", "S1", 1000, 50, 600, 900),
	}, planFields(), nil)
	assert.NoError(t, err)

	_, err = svc.ApplyEdit(ctx, "ns", "A", "S1_00", map[string]any{
		field.RebateType: field.RebateTypeCashDiscount,
		field.QtyOrAmt:   float64(77),
	})
	assert.NoError(t, err)

	store.writeErr = errors.New("write refused")
	_, err = svc.Save(ctx, "ns")
	assert.EqualError(t, err, "write refused")

	view, err := svc.View(ctx, "ns")
	assert.NoError(t, err)
	assert.Equal(t, "unsaved", view.SaveState)

	// The staged edit survives and saves once the store recovers.
	store.writeErr = nil
	view, err = svc.Save(ctx, "ns")
	assert.NoError(t, err)
	assert.Equal(t, "saved", view.SaveState)
	assert.Equal(t, float64(77), view.Artifacts["A"].Value["S1_00"][field.RebateAmt])
}

func TestSaveUnknownPlan(t *testing.T) {
	svc := setupPlanService(t, newStoreStub(), clock.NewFakeClock(time.Now()))

	_, err := svc.Save(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}
