package http

import (
	"context"

	"evintel/internal/services"
	"evintel/pkg/contracts"
	"evintel/pkg/contracts/domain"
)

// DataServiceInterface is the read-only query surface the data handler
// depends on. *services.DataService satisfies it; tests substitute mocks.
type DataServiceInterface interface {
	GetEnriched(ctx context.Context, q services.EnrichedQuery) (*services.EnrichedPage, error)
	GetColumns(ctx context.Context) (*services.ColumnsReport, error)
	GetStates(ctx context.Context) ([]domain.StateSnapshot, error)
	GetStateDetail(ctx context.Context, state string) (*services.StateDetail, error)
	GetRegions(ctx context.Context) ([]services.RegionSummary, error)
	GetInsights(ctx context.Context) (*domain.MarketInsights, error)
}

// HealthServiceInterface is the health surface the health handler uses.
type HealthServiceInterface interface {
	Check(ctx context.Context) *services.HealthStatus
	VersionInfo() contracts.VersionInfo
}
