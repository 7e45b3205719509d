package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/rebateplan/internal/field"
)

// PlanView is the rendered state of one planning namespace.
type PlanView struct {
	Fields       []field.Field   `json:"fields"`
	Customers    []CustomerGroup `json:"customers"`
	Artifacts    ArtifactValues  `json:"artifacts"`
	CheckBalance CheckBalanceAll `json:"check_balance"`
	SaveState    string          `json:"save_state"`
}

// Service is the planning orchestrator: one logical table per namespace.
type Service interface {
	// Refresh rebuilds the grouped view from a fresh query result and
	// re-seeds it from the persisted store.
	Refresh(ctx context.Context, namespace string, rows []QueryRow, hostFields []field.Field, filters map[string]any) (*PlanView, error)

	// ApplyEdit stages an edit immediately and schedules the debounced
	// display recompute for the affected customer.
	ApplyEdit(ctx context.Context, namespace, customer, uidKey string, values map[string]any) (*PlanView, error)

	// Save flushes staged edits as one optimistic-version batch write.
	Save(ctx context.Context, namespace string) (*PlanView, error)

	// View returns the current state without recomputing.
	View(ctx context.Context, namespace string) (*PlanView, error)
}

var (
	ErrPlanNotFound    = errors.New("plan_not_found")
	ErrCustomerUnknown = errors.New("customer_unknown")
	ErrSkuUnknown      = errors.New("sku_unknown")
	ErrSaveInFlight    = errors.New("save_in_flight")
	ErrNoHostRows      = errors.New("no_host_rows")
)
