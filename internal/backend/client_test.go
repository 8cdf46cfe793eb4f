package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jogardn/flashfood-datagen/internal/circuitbreaker"
	"github.com/jogardn/flashfood-datagen/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writeEnvelope(w http.ResponseWriter, status, ec int, em string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"EC": ec, "EM": em, "data": data})
}

func TestListDecodesEnvelopeData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/food-categories", r.URL.Path)
		writeEnvelope(w, http.StatusOK, 0, "ok", []models.FoodCategory{
			{ID: "c1", Name: "Thai"},
			{ID: "c2", Name: "Sushi"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())

	var categories []models.FoodCategory
	require.NoError(t, client.List(context.Background(), models.CollectionFoodCategories, &categories))
	require.Len(t, categories, 2)
	assert.Equal(t, "Sushi", categories[1].Name)
}

func TestListNullDataLeavesOutEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 0, "ok", nil)
	}))
	defer srv.Close()

	var users []models.User
	require.NoError(t, NewClient(srv.URL, testLogger()).List(context.Background(), models.CollectionUsers, &users))
	assert.Empty(t, users)
}

func TestDomainFailureBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 2, "user_id does not reference an existing user", nil)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, testLogger()).Create(context.Background(), models.CollectionCustomers, models.Customer{}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 2, apiErr.Code)
	assert.Equal(t, http.MethodPost, apiErr.Method)
	assert.Contains(t, apiErr.Message, "user_id")
	assert.Contains(t, apiErr.Body, "EM")
	assert.True(t, IsDomainError(err))
	assert.False(t, IsTransportError(err))
}

func TestNonEnvelopeResponseIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html><body>502 Bad Gateway</body></html>"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, testLogger()).List(context.Background(), models.CollectionOrders, nil)
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "502")
	assert.True(t, IsTransportError(err))
	assert.False(t, IsDomainError(err))
}

func TestTruncatedEnvelopeIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"EC":0,"EM":"ok","data":[{"id":`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, testLogger()).List(context.Background(), models.CollectionUsers, nil)
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.True(t, IsTransportError(err))
}

func TestBreakerOpensOnProxyErrorPages(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	manager := circuitbreaker.NewManager(BreakerConfig(2, time.Minute), testLogger())
	client := NewClient(srv.URL, testLogger(), WithBreakers(manager))

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, client.List(context.Background(), models.CollectionMenuItems, nil), ErrMalformedResponse)
	}
	err := client.List(context.Background(), models.CollectionMenuItems, nil)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, circuitbreaker.StateOpen, manager.Get(models.CollectionMenuItems).State())
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, testLogger()).List(context.Background(), models.CollectionUsers, nil)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsDomainError(err))
}

func TestCreateSendsJSONAndDecodesCreatedRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var user models.User
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&user))
		user.ID = "u-42"
		writeEnvelope(w, http.StatusCreated, 0, "created", user)
	}))
	defer srv.Close()

	var created models.User
	err := NewClient(srv.URL, testLogger()).Create(context.Background(), models.CollectionUsers,
		models.User{FirstName: "Ada", UserType: []models.UserType{models.UserTypeCustomer}}, &created)
	require.NoError(t, err)
	assert.Equal(t, "u-42", created.ID)
	assert.Equal(t, "Ada", created.FirstName)
}

func TestListPageQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Empty(t, r.URL.Query().Get("offset"))
		writeEnvelope(w, http.StatusOK, 0, "ok", map[string]interface{}{
			"items":       []models.Driver{{ID: "d6"}},
			"totalItems":  6,
			"totalPages":  2,
			"currentPage": 2,
		})
	}))
	defer srv.Close()

	var drivers []models.Driver
	page, err := NewClient(srv.URL, testLogger()).ListPage(context.Background(), models.CollectionDrivers,
		PageQuery{Limit: 5, Offset: 99, Page: 2}, &drivers)
	require.NoError(t, err)
	assert.Equal(t, 6, page.TotalItems)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, drivers, 1)
	assert.Equal(t, "d6", drivers[0].ID)
}

func TestBreakerOpensOnTransportFailuresOnly(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeEnvelope(w, http.StatusOK, 1, "duplicate email", nil)
	}))
	defer srv.Close()

	manager := circuitbreaker.NewManager(BreakerConfig(2, time.Minute), testLogger())
	client := NewClient(srv.URL, testLogger(), WithBreakers(manager))

	for i := 0; i < 5; i++ {
		err := client.Create(context.Background(), models.CollectionUsers, models.User{}, nil)
		assert.True(t, IsDomainError(err))
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
	assert.Equal(t, circuitbreaker.StateClosed, manager.Get(models.CollectionUsers).State())

	dead := NewClient("http://127.0.0.1:1", testLogger(), WithBreakers(manager), WithTimeout(200*time.Millisecond))
	dead.List(context.Background(), models.CollectionOrders, nil)
	dead.List(context.Background(), models.CollectionOrders, nil)
	err := dead.List(context.Background(), models.CollectionOrders, nil)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
	assert.True(t, IsTransportError(err))
}
