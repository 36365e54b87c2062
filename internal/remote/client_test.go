package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/TemirB/orders-enrichment/internal/domain"
)

func TestProductsFetch(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantStatus int
		transport  bool
	}{
		{
			name:   "ok",
			status: http.StatusOK,
			body:   `{"productID":"P1","productName":"Widget","category":"tools","unitPrice":"9.50","quantityInStock":3}`,
		},
		{name: "not found", status: http.StatusNotFound, wantErr: domain.ErrNotFound},
		{name: "bad request", status: http.StatusBadRequest, wantErr: domain.ErrCallerFault},
		{name: "server error", status: http.StatusServiceUnavailable, transport: true, wantStatus: 503},
		{name: "redirect-like status", status: http.StatusNotModified, transport: true, wantStatus: 304},
		{name: "garbage body", status: http.StatusOK, body: `{"productID":`, transport: true, wantStatus: 200},
		{name: "null body", status: http.StatusOK, body: `null`, transport: true, wantStatus: 200},
		{name: "empty body", status: http.StatusOK, transport: true, wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/products/P1", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewProducts(srv.URL+"/", srv.Client())
			p, err := c.Fetch(context.Background(), "P1")

			switch {
			case tt.transport:
				var te *TransportError
				require.ErrorAs(t, err, &te)
				require.Equal(t, tt.wantStatus, te.Status)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				require.Equal(t, "Widget", p.Name)
				require.True(t, decimal.RequireFromString("9.5").Equal(p.UnitPrice))
				require.Equal(t, 3, p.QuantityInStock)
				require.False(t, p.Degraded)
			}
		})
	}
}

func TestUsersFetchEscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"userID":"a/b","email":"x@y.z","personName":"Ann","gender":"f"}`))
	}))
	defer srv.Close()

	u, err := NewUsers(srv.URL, srv.Client()).Fetch(context.Background(), "a/b")
	require.NoError(t, err)
	require.Equal(t, "Ann", u.PersonName)
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewUsers(url, nil).Fetch(context.Background(), "U1")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Zero(t, te.Status)
}

func TestFetchReturnsContextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewProducts(srv.URL, srv.Client()).Fetch(ctx, "P1")
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	var te *TransportError
	require.False(t, errors.As(err, &te))
}
