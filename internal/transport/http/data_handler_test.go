package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apierrors "evintel/internal/errors"
	"evintel/internal/services"
	"evintel/pkg/contracts/domain"
)

// MockDataService is a mock implementation of DataServiceInterface
type MockDataService struct {
	mock.Mock
}

func (m *MockDataService) GetEnriched(ctx context.Context, q services.EnrichedQuery) (*services.EnrichedPage, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.EnrichedPage), args.Error(1)
}

func (m *MockDataService) GetColumns(ctx context.Context) (*services.ColumnsReport, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ColumnsReport), args.Error(1)
}

func (m *MockDataService) GetStates(ctx context.Context) ([]domain.StateSnapshot, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StateSnapshot), args.Error(1)
}

func (m *MockDataService) GetStateDetail(ctx context.Context, state string) (*services.StateDetail, error) {
	args := m.Called(state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.StateDetail), args.Error(1)
}

func (m *MockDataService) GetRegions(ctx context.Context) ([]services.RegionSummary, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.RegionSummary), args.Error(1)
}

func (m *MockDataService) GetInsights(ctx context.Context) (*domain.MarketInsights, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MarketInsights), args.Error(1)
}

func newTestDataHandler(service DataServiceInterface) *DataHandler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return NewDataHandler(service, logger, errorHandler)
}

func TestDataHandler_GetEnriched(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		setupMock      func(*MockDataService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "successful query with defaults",
			target: "/api/enriched",
			setupMock: func(m *MockDataService) {
				page := &services.EnrichedPage{
					Columns: []string{domain.ColState, domain.ColDate},
					Total:   1,
					Limit:   1000,
					Records: []map[string]string{
						{domain.ColState: "Goa", domain.ColDate: "2023-06-01"},
					},
				}
				m.On("GetEnriched", services.EnrichedQuery{Limit: 1000}).Return(page, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"success"`,
		},
		{
			name:   "filters forwarded to the service",
			target: "/api/enriched?state=Goa&category=2-Wheelers&limit=10&offset=5",
			setupMock: func(m *MockDataService) {
				expected := services.EnrichedQuery{
					State:    "Goa",
					Category: "2-Wheelers",
					Limit:    10,
					Offset:   5,
				}
				m.On("GetEnriched", expected).Return(&services.EnrichedPage{Total: 0}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"success"`,
		},
		{
			name:           "invalid category rejected",
			target:         "/api/enriched?category=3-Wheelers",
			setupMock:      func(m *MockDataService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid region rejected",
			target:         "/api/enriched?region=Middle",
			setupMock:      func(m *MockDataService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid limit rejected",
			target:         "/api/enriched?limit=abc",
			setupMock:      func(m *MockDataService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid from date rejected",
			target:         "/api/enriched?from=june-2023",
			setupMock:      func(m *MockDataService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "missing artifact maps to 503 problem",
			target: "/api/enriched",
			setupMock: func(m *MockDataService) {
				m.On("GetEnriched", services.EnrichedQuery{Limit: 1000}).
					Return(nil, apierrors.ErrNoEnrichedTable)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `artifact-unavailable`,
		},
		{
			name:   "internal error",
			target: "/api/enriched",
			setupMock: func(m *MockDataService) {
				m.On("GetEnriched", services.EnrichedQuery{Limit: 1000}).
					Return(nil, errors.New("disk error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `Internal Server Error`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDataService)
			tt.setupMock(mockService)
			handler := newTestDataHandler(mockService)

			req := httptest.NewRequest("GET", tt.target, nil)
			rec := httptest.NewRecorder()
			handler.GetEnriched(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestDataHandler_GetEnrichedDateRange(t *testing.T) {
	mockService := new(MockDataService)
	from := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
	mockService.On("GetEnriched", services.EnrichedQuery{From: from, To: to, Limit: 1000}).
		Return(&services.EnrichedPage{}, nil)

	handler := newTestDataHandler(mockService)
	req := httptest.NewRequest("GET", "/api/enriched?from=2023-06-01&to=2023-12-31", nil)
	rec := httptest.NewRecorder()
	handler.GetEnriched(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockService.AssertExpectations(t)
}

func TestDataHandler_GetColumns(t *testing.T) {
	mockService := new(MockDataService)
	mockService.On("GetColumns").Return(&services.ColumnsReport{
		Available: []string{domain.ColState, domain.ColDate},
		Missing:   []string{domain.ColAdoptionVelocity},
	}, nil)

	handler := newTestDataHandler(mockService)
	req := httptest.NewRequest("GET", "/api/enriched/columns", nil)
	rec := httptest.NewRecorder()
	handler.GetColumns(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ColAdoptionVelocity)
	mockService.AssertExpectations(t)
}

func TestDataHandler_GetStates(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockDataService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful get states",
			setupMock: func(m *MockDataService) {
				pen := 25.0
				snaps := []domain.StateSnapshot{
					{State: "Goa", VehicleCategory: domain.CategoryTwoWheeler, EVPenetration: &pen, Stage: domain.StageAdvanced},
				}
				m.On("GetStates").Return(snaps, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"count":1`,
		},
		{
			name: "missing artifact",
			setupMock: func(m *MockDataService) {
				m.On("GetStates").Return(nil, apierrors.ErrNoEnrichedTable)
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDataService)
			tt.setupMock(mockService)
			handler := newTestDataHandler(mockService)

			req := httptest.NewRequest("GET", "/api/states", nil)
			rec := httptest.NewRecorder()
			handler.GetStates(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestDataHandler_GetStateDetail(t *testing.T) {
	tests := []struct {
		name           string
		state          string
		setupMock      func(*MockDataService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "known state",
			state: "Goa",
			setupMock: func(m *MockDataService) {
				m.On("GetStateDetail", "Goa").Return(&services.StateDetail{
					State:  "Goa",
					Region: domain.RegionWest,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"state":"Goa"`,
		},
		{
			name:  "unknown state",
			state: "Atlantis",
			setupMock: func(m *MockDataService) {
				m.On("GetStateDetail", "Atlantis").Return(nil, services.ErrStateNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `NOT_FOUND`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDataService)
			tt.setupMock(mockService)
			handler := newTestDataHandler(mockService)

			req := httptest.NewRequest("GET", "/api/states/"+tt.state, nil)
			routeCtx := chi.NewRouteContext()
			routeCtx.URLParams.Add("state", tt.state)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
			rec := httptest.NewRecorder()
			handler.GetStateDetail(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestDataHandler_GetRegions(t *testing.T) {
	mockService := new(MockDataService)
	avg := 17.5
	mockService.On("GetRegions").Return([]services.RegionSummary{
		{Region: domain.RegionWest, StateCount: 2, AvgPenetration: &avg},
	}, nil)

	handler := newTestDataHandler(mockService)
	req := httptest.NewRequest("GET", "/api/regions", nil)
	rec := httptest.NewRecorder()
	handler.GetRegions(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"West"`)
	mockService.AssertExpectations(t)
}

func TestDataHandler_GetInsights(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockDataService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "insights available",
			setupMock: func(m *MockDataService) {
				m.On("GetInsights").Return(&domain.MarketInsights{
					RecordCount: 96,
					StateCount:  4,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"record_count":96`,
		},
		{
			name: "insights not exported yet",
			setupMock: func(m *MockDataService) {
				m.On("GetInsights").Return(nil, services.ErrInsightsUnavailable)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDataService)
			tt.setupMock(mockService)
			handler := newTestDataHandler(mockService)

			req := httptest.NewRequest("GET", "/api/insights", nil)
			rec := httptest.NewRecorder()
			handler.GetInsights(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestDataHandler_Routes(t *testing.T) {
	mockService := new(MockDataService)
	mockService.On("GetColumns").Return(&services.ColumnsReport{}, nil)

	handler := newTestDataHandler(mockService)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/enriched/columns")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}
