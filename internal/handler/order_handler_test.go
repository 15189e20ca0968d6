package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storeadmin/internal/model"
	"storeadmin/internal/service/activation"
	"storeadmin/internal/service/client"
	"storeadmin/pkg/utils"
)

// MockOrderService is a mock implementation of order.OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Fulfill(ctx context.Context, orderNo string) (*model.Order, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) PreviewActivation(ctx context.Context, orderNo string) (*activation.Decision, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*activation.Decision), args.Error(1)
}

func (m *MockOrderService) SendActivation(ctx context.Context, orderNo string, keys map[uint64]string) (*model.Order, error) {
	args := m.Called(ctx, orderNo, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) Complete(ctx context.Context, orderNo string) (*model.Order, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) Finish(ctx context.Context, orderNo string) (*model.Order, *client.LinkResult, error) {
	args := m.Called(ctx, orderNo)
	var order *model.Order
	if args.Get(0) != nil {
		order = args.Get(0).(*model.Order)
	}
	var link *client.LinkResult
	if args.Get(1) != nil {
		link = args.Get(1).(*client.LinkResult)
	}
	return order, link, args.Error(2)
}

func (m *MockOrderService) Cancel(ctx context.Context, orderNo string, reason string) (*model.Order, error) {
	args := m.Called(ctx, orderNo, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context, status int8, page, pageSize int) ([]*model.Order, int64, error) {
	args := m.Called(ctx, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Order), args.Get(1).(int64), args.Error(2)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var resp utils.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestOrderHandler_GetOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful get order", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService)

		expectedOrder := &model.Order{
			ID:      1,
			OrderNo: "SA1001",
			Status:  model.OrderStatusProcessing,
		}
		mockService.On("GetByOrderNo", mock.Anything, "SA1001").Return(expectedOrder, nil)

		router := gin.New()
		router.GET("/orders/:order_no", handler.GetOrder)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/orders/SA1001", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, utils.CodeSuccess, resp.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("order not found", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService)

		mockService.On("GetByOrderNo", mock.Anything, "NOPE").Return(nil, utils.ErrOrderNotFound)

		router := gin.New()
		router.GET("/orders/:order_no", handler.GetOrder)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/orders/NOPE", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, utils.CodeNotFound, resp.Code)
	})
}

func TestOrderHandler_SendActivation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("manual keys forwarded from body", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService)

		keys := map[uint64]string{7: "KEY-123"}
		sent := &model.Order{OrderNo: "SA1001", Status: model.OrderStatusProcessing, ActivationSent: true}
		mockService.On("SendActivation", mock.Anything, "SA1001", keys).Return(sent, nil)

		router := gin.New()
		router.POST("/orders/:order_no/activation", handler.SendActivation)

		body, _ := json.Marshal(gin.H{"keys": map[string]string{"7": "KEY-123"}})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/orders/SA1001/activation", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, utils.CodeSuccess, resp.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("missing key stays HTTP 200 with business code", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService)

		mockService.On("SendActivation", mock.Anything, "SA1001", map[uint64]string(nil)).
			Return(nil, utils.NewMissingActivationKey("Pro License"))

		router := gin.New()
		router.POST("/orders/:order_no/activation", handler.SendActivation)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/orders/SA1001/activation", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, utils.CodeMissingActivationKey, resp.Code)
	})
}

func TestOrderHandler_Cancel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("cancel with reason", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService)

		cancelled := &model.Order{OrderNo: "SA1001", Status: model.OrderStatusCancelled}
		mockService.On("Cancel", mock.Anything, "SA1001", "buyer asked").Return(cancelled, nil)

		router := gin.New()
		router.POST("/orders/:order_no/cancel", handler.Cancel)

		body, _ := json.Marshal(gin.H{"reason": "buyer asked"})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/orders/SA1001/cancel", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("illegal transition surfaces business code", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService)

		mockService.On("Cancel", mock.Anything, "SA1001", "").
			Return(nil, utils.NewIllegalTransition("completed", "cancelled", "cancellable only before completion"))

		router := gin.New()
		router.POST("/orders/:order_no/cancel", handler.Cancel)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/orders/SA1001/cancel", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, utils.CodeIllegalTransition, resp.Code)
	})
}

func TestOrderHandler_FinishReportsLinkOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockOrderService)
	handler := NewOrderHandler(mockService)

	finished := &model.Order{OrderNo: "SA1001", Status: model.OrderStatusFinished}
	mockService.On("Finish", mock.Anything, "SA1001").
		Return(finished, &client.LinkResult{Outcome: client.OutcomeNeedsEmail}, nil)

	router := gin.New()
	router.POST("/orders/:order_no/finish", handler.Finish)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/orders/SA1001/finish", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code utils.ResponseCode `json:"code"`
		Data struct {
			Link *client.LinkResult `json:"link"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, utils.CodeSuccess, resp.Code)
	assert.NotNil(t, resp.Data.Link)
	assert.Equal(t, client.OutcomeNeedsEmail, resp.Data.Link.Outcome)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_ListOrders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockOrderService)
	handler := NewOrderHandler(mockService)

	orders := []*model.Order{{OrderNo: "SA1"}, {OrderNo: "SA2"}}
	mockService.On("List", mock.Anything, int8(model.OrderStatusProcessing), 1, 20).
		Return(orders, int64(2), nil)

	router := gin.New()
	router.GET("/orders", handler.ListOrders)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/orders?status=2", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}
