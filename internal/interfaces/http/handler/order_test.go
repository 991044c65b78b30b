package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/application/reconciliation"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) order(args mock.Arguments) (*reconciliation.OrderResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.OrderResponse), args.Error(1)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, actor reconciliation.ActorContext, req reconciliation.CreateOrderRequest) (*reconciliation.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, req))
}

func (m *mockOrderService) GetOrder(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, includeDeleted bool) (*reconciliation.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, includeDeleted))
}

func (m *mockOrderService) ListOrderEvents(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID) ([]reconciliation.OrderEventResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.OrderEventResponse), args.Error(1)
}

func (m *mockOrderService) EditOrder(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, req reconciliation.EditOrderRequest) (*reconciliation.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) CancelOrder(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID) (*reconciliation.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id))
}

func (m *mockOrderService) ExportReadiness(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID) (*reconciliation.ExportReadinessResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.ExportReadinessResponse), args.Error(1)
}

func (m *mockOrderService) MarkExported(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, req reconciliation.MarkExportedRequest) (*reconciliation.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) SuggestLines(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, name string) ([]reconciliation.LineSuggestionResponse, error) {
	args := m.Called(ctx, actor, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.LineSuggestionResponse), args.Error(1)
}

func setupOrderHandler() (*mockOrderService, *gin.Engine) {
	svc := new(mockOrderService)
	h := NewOrderHandler(svc)
	return svc, newAPIRouter(h.RegisterRoutes)
}

func TestOrderHandler_Create(t *testing.T) {
	svc, r := setupOrderHandler()
	svc.On("CreateOrder", mock.Anything, reviewer(), mock.MatchedBy(func(req reconciliation.CreateOrderRequest) bool {
		return req.CustomerName == "Blue Hill" && len(req.Lines) == 2
	})).Return(&reconciliation.OrderResponse{ID: uuid.New(), Status: "needs_review"}, nil)

	w := apiRequest(r, http.MethodPost, "/api/v1/orders",
		`{"customer_name":"Blue Hill","lines":[{"product_name":"Micro Basil","quantity":2},{"product_name":"Pea Shoots","quantity":1}]}`, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestOrderHandler_Create_ZeroQuantity(t *testing.T) {
	svc, r := setupOrderHandler()

	w := apiRequest(r, http.MethodPost, "/api/v1/orders",
		`{"lines":[{"product_name":"Micro Basil","quantity":0}]}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreateOrder")
}

func TestOrderHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		includeDeleted bool
	}{
		{"active lines only", "", false},
		{"with deleted lines", "?include_deleted=true", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, r := setupOrderHandler()
			id := uuid.New()
			svc.On("GetOrder", mock.Anything, reviewer(), id, tt.includeDeleted).
				Return(&reconciliation.OrderResponse{ID: id}, nil)

			w := apiRequest(r, http.MethodGet, "/api/v1/orders/"+id.String()+tt.query, "", nil)

			assert.Equal(t, http.StatusOK, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Get_BadIncludeDeleted(t *testing.T) {
	svc, r := setupOrderHandler()

	w := apiRequest(r, http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"?include_deleted=maybe", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetOrder")
}

func TestOrderHandler_Events(t *testing.T) {
	svc, r := setupOrderHandler()
	id := uuid.New()
	svc.On("ListOrderEvents", mock.Anything, reviewer(), id).Return([]reconciliation.OrderEventResponse{
		{ID: uuid.New(), Type: "created"},
		{ID: uuid.New(), Type: "change_accepted"},
	}, nil)

	w := apiRequest(r, http.MethodGet, "/api/v1/orders/"+id.String()+"/events", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var events []reconciliation.OrderEventResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &events))
	assert.Len(t, events, 2)
}

func TestOrderHandler_EditLines(t *testing.T) {
	svc, r := setupOrderHandler()
	id := uuid.New()
	lineID := uuid.New()
	svc.On("EditOrder", mock.Anything, reviewer(), id, mock.MatchedBy(func(req reconciliation.EditOrderRequest) bool {
		return len(req.Actions) == 1 && req.Actions[0].Action == "remove" && *req.Actions[0].LineID == lineID
	})).Return(&reconciliation.OrderResponse{ID: id}, nil)

	w := apiRequest(r, http.MethodPatch, "/api/v1/orders/"+id.String()+"/lines",
		`{"actions":[{"action":"remove","line_id":"`+lineID.String()+`"}]}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestOrderHandler_EditLines_UnknownAction(t *testing.T) {
	svc, r := setupOrderHandler()

	w := apiRequest(r, http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/lines",
		`{"actions":[{"action":"merge"}]}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "EditOrder")
}

func TestOrderHandler_Cancel_InvalidState(t *testing.T) {
	svc, r := setupOrderHandler()
	id := uuid.New()
	svc.On("CancelOrder", mock.Anything, reviewer(), id).
		Return(nil, shared.NewDomainError(shared.CodeInvalidState, "Order has already been exported"))

	w := apiRequest(r, http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel", "", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, shared.CodeInvalidState, decodeEnvelope(t, w).Error.Code)
}

func TestOrderHandler_ExportReadiness(t *testing.T) {
	svc, r := setupOrderHandler()
	id := uuid.New()
	svc.On("ExportReadiness", mock.Anything, reviewer(), id).Return(&reconciliation.ExportReadinessResponse{
		OrderID:          id,
		PendingProposals: 1,
		Reason:           "order has pending change proposals",
	}, nil)

	w := apiRequest(r, http.MethodGet, "/api/v1/orders/"+id.String()+"/export-readiness", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got reconciliation.ExportReadinessResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	assert.False(t, got.CanExport)
	assert.Equal(t, int64(1), got.PendingProposals)
}

func TestOrderHandler_MarkExported_DestinationFromHeader(t *testing.T) {
	svc, r := setupOrderHandler()
	id := uuid.New()
	actor := reviewer()
	actor.ExportDestination = "netsuite"
	svc.On("MarkExported", mock.Anything, actor, id, reconciliation.MarkExportedRequest{Destination: "netsuite"}).
		Return(&reconciliation.OrderResponse{ID: id, Status: "pushed_to_erp"}, nil)

	w := apiRequest(r, http.MethodPost, "/api/v1/orders/"+id.String()+"/export", "",
		map[string]string{middleware.ExportDestinationHeader: "netsuite"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestOrderHandler_MarkExported_BodyWins(t *testing.T) {
	svc, r := setupOrderHandler()
	id := uuid.New()
	actor := reviewer()
	actor.ExportDestination = "netsuite"
	svc.On("MarkExported", mock.Anything, actor, id, reconciliation.MarkExportedRequest{Destination: "quickbooks"}).
		Return(&reconciliation.OrderResponse{ID: id, Status: "pushed_to_erp"}, nil)

	w := apiRequest(r, http.MethodPost, "/api/v1/orders/"+id.String()+"/export", `{"destination":"quickbooks"}`,
		map[string]string{middleware.ExportDestinationHeader: "netsuite"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestOrderHandler_LineSuggestions(t *testing.T) {
	svc, r := setupOrderHandler()
	id := uuid.New()
	svc.On("SuggestLines", mock.Anything, reviewer(), id, "basil").Return([]reconciliation.LineSuggestionResponse{
		{LineID: uuid.New(), LineNumber: 1, ProductName: "Micro Basil", Quantity: 2, Advisory: true},
	}, nil)

	w := apiRequest(r, http.MethodGet, "/api/v1/orders/"+id.String()+"/line-suggestions?name=basil", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []reconciliation.LineSuggestionResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	require.Len(t, got, 1)
	assert.True(t, got[0].Advisory)
}

func TestOrderHandler_LineSuggestions_NameRequired(t *testing.T) {
	svc, r := setupOrderHandler()

	w := apiRequest(r, http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/line-suggestions", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "SuggestLines")
}
