package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos_service/internal/domain"
	"pos_service/internal/repository"
	"pos_service/internal/session"
	"pos_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router *gin.Engine
	store  *repository.MemoryStore
	users  usecase.UserUseCase
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := repository.NewMemoryStore(logger)
	sessions := session.NewMemoryStore()

	productUC := usecase.NewProductUseCase(store.Products(), store.Categories(), logger)
	categoryUC := usecase.NewCategoryUseCase(store.Categories(), logger)
	checkoutUC := usecase.NewCheckoutUseCase(store.Products(), store, logger)
	saleUC := usecase.NewSaleUseCase(store.Sales(), logger)
	reportUC := usecase.NewReportUseCase(store.Sales(), store.Products(), logger)
	userUC := usecase.NewUserUseCase(store.Users(), logger, bcrypt.MinCost)
	authUC := usecase.NewAuthUseCase(store.Users(), sessions, time.Hour, logger)

	router := NewRouter(Handlers{
		Products:   NewProductHandler(productUC, logger),
		Categories: NewCategoryHandler(categoryUC, logger),
		Sales:      NewSaleHandler(checkoutUC, saleUC, logger),
		Users:      NewUserHandler(userUC, logger),
		Auth:       NewAuthHandler(authUC, userUC, logger),
		Reports:    NewReportHandler(reportUC, logger),
		Health:     NewHealthHandler(map[string]Pinger{"store": store, "sessions": sessions}, logger),
	}, authUC, logger)

	return &testServer{router: router, store: store, users: userUC}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (s *testServer) login(t *testing.T, username string, role domain.Role) string {
	t.Helper()
	_, err := s.users.CreateUser(context.Background(), username, "Secur3Pass", role)
	require.NoError(t, err)

	w, resp := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": "Secur3Pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := resp.Data.(map[string]interface{})
	return data["token"].(string)
}

func (s *testServer) createProduct(t *testing.T, token string, body gin.H) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/products", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return resp.Data.(map[string]interface{})["id"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Success", resp.Status)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, err := s.users.CreateUser(context.Background(), "alice", "Secur3Pass", domain.RoleSales)
	require.NoError(t, err)
	w, resp := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Fail", resp.Status)

	w, resp = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "Secur3Pass"})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	token := data["token"].(string)
	assert.NotEmpty(t, data["expires_at"])
	assert.NotContains(t, w.Body.String(), "password")

	w, resp = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", resp.Data.(map[string]interface{})["username"])

	w, _ = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	clerk := s.login(t, "clerk", domain.RoleSales)
	manager := s.login(t, "manager", domain.RoleManager)

	w, _ := s.do(t, http.MethodPost, "/api/products", clerk, gin.H{"name": "Pen", "sku": "PEN-1", "price": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/reports/summary", clerk, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/users", manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/reports/summary", manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckoutEndpoint(t *testing.T) {
	s := newTestServer(t)
	manager := s.login(t, "manager", domain.RoleManager)
	clerk := s.login(t, "clerk", domain.RoleSales)

	productID := s.createProduct(t, manager, gin.H{"name": "Notebook", "sku": "NB-1", "price": 9.99, "quantity": 5})

	cart := gin.H{
		"sale":  gin.H{"total": 19.98, "customerName": "Asha", "paymentMode": "Cash"},
		"items": []gin.H{{"productId": productID, "quantity": 2, "price": 9.99}},
	}

	w, resp := s.do(t, http.MethodPost, "/api/sales/validate", clerk, gin.H{"items": cart["items"]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 19.98, resp.Data.(map[string]interface{})["total"])

	w, resp = s.do(t, http.MethodPost, "/api/sales", clerk, cart)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := resp.Data.(map[string]interface{})
	assert.Equal(t, 19.98, sale["total"])
	assert.NotEmpty(t, sale["createdBy"])
	saleID := sale["id"].(string)

	w, resp = s.do(t, http.MethodGet, "/api/products/"+productID, clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), resp.Data.(map[string]interface{})["quantity"])

	w, resp = s.do(t, http.MethodGet, "/api/sales/"+saleID, clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data.(map[string]interface{})["items"], 1)

	tooMany := gin.H{"items": []gin.H{{"productId": productID, "quantity": 4, "price": 9.99}}}
	w, resp = s.do(t, http.MethodPost, "/api/sales", clerk, tooMany)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Message, "insufficient stock for product 'Notebook': requested 4, available 3")

	w, _ = s.do(t, http.MethodPost, "/api/sales", clerk, gin.H{"items": []gin.H{{"productId": "ghost", "quantity": 1, "price": 1}}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/sales", clerk, gin.H{"items": []gin.H{{"productId": productID, "quantity": 1.5, "price": 9.99}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/products/"+productID, manager, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProductCRUD(t *testing.T) {
	s := newTestServer(t)
	manager := s.login(t, "manager", domain.RoleManager)

	w, resp := s.do(t, http.MethodPost, "/api/categories", manager, gin.H{"name": "Stationery"})
	require.Equal(t, http.StatusCreated, w.Code)
	categoryID := resp.Data.(map[string]interface{})["id"].(string)

	productID := s.createProduct(t, manager, gin.H{"name": "Pen", "sku": "PEN-1", "price": 1.5, "quantity": 2, "categoryId": categoryID})

	w, _ = s.do(t, http.MethodPost, "/api/products", manager, gin.H{"name": "Pen 2", "sku": "PEN-1", "price": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = s.do(t, http.MethodPatch, "/api/products/"+productID, manager, gin.H{"quantity": 20, "price": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(20), resp.Data.(map[string]interface{})["quantity"])

	w, _ = s.do(t, http.MethodPatch, "/api/products/"+productID, manager, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = s.do(t, http.MethodGet, "/api/products?category_id="+categoryID, manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)

	w, _ = s.do(t, http.MethodGet, "/api/products/low-stock", manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/products/"+productID, manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/products/"+productID, manager, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserManagement(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", domain.RoleAdmin)

	w, resp := s.do(t, http.MethodPost, "/api/users", admin, gin.H{"username": "bob", "password": "Secur3Pass", "role": "manager"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bobID := resp.Data.(map[string]interface{})["id"].(string)
	assert.NotContains(t, w.Body.String(), "Secur3Pass")

	w, _ = s.do(t, http.MethodPost, "/api/users", admin, gin.H{"username": "weak", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = s.do(t, http.MethodPatch, "/api/users/"+bobID, admin, gin.H{"role": "sales"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sales", resp.Data.(map[string]interface{})["role"])

	w, resp = s.do(t, http.MethodGet, "/api/auth/me", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	adminID := resp.Data.(map[string]interface{})["id"].(string)
	w, _ = s.do(t, http.MethodDelete, "/api/users/"+adminID, admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/users/"+bobID, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrProductNotFound, http.StatusNotFound},
		{&domain.StockError{ProductID: "p1", Requested: 2, Available: 1}, http.StatusBadRequest},
		{domain.NewValidationError("name", "cannot be empty"), http.StatusBadRequest},
		{domain.ErrDuplicateSKU, http.StatusConflict},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{&domain.PersistenceError{Stage: "applying stock", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapErrorToStatus(tt.err), tt.err.Error())
	}
}

func TestPersistenceErrorHidesDriverDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	failWith(c, "Failed to complete sale", &domain.PersistenceError{Stage: "applying stock", Err: errors.New("pq: connection refused")})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "applying stock")
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestSessionFollowsUserRecord(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", domain.RoleAdmin)
	manager := s.login(t, "manager", domain.RoleManager)

	w, resp := s.do(t, http.MethodGet, "/api/auth/me", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	managerID := resp.Data.(map[string]interface{})["id"].(string)

	w, _ = s.do(t, http.MethodPatch, "/api/users/"+managerID, admin, gin.H{"role": "sales"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodPost, "/api/products", manager, gin.H{"name": "Pen", "sku": "PEN-1", "price": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/products", manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/users/"+managerID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/products", manager, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/sales", manager, gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
