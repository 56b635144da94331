package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewClient(Config{BaseURL: ts.URL, ProductTTL: time.Minute})
}

func TestUserOrders_SendsTokenAndHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/user-orders", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get(TokenHeader))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "br", r.Header.Get("Accept-Encoding"))
		w.Write([]byte(`{"user":{"id":1,"nombre":"Ana"},"orders":[{"id":5,"estado":"activo","detalles":[{"producto_id":2,"cantidad":1}]}]}`))
	})

	orders, err := c.UserOrders(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(5), orders[0].ID)
	assert.Len(t, orders[0].Items, 1)
}

func TestOrdersByStatus_QueryParams(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.String()
		w.Write([]byte(`[]`))
	})

	from, _ := model.ParseTimestamp("2024-01-01")
	to, _ := model.ParseTimestamp("2024-02-01")

	_, err := c.OrdersByStatus(context.Background(), "tok", model.OrderQuery{Status: model.OrderApproved, Sort: "desc", From: from})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/orders-by-status/Aprobado?sortByDate=desc", got)

	_, err = c.OrdersByStatus(context.Background(), "tok", model.OrderQuery{Status: model.OrderApproved, From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/orders-by-status/Aprobado?endDate=2024-02-01&startDate=2024-01-01", got)
}

func TestUpdateOrderStatus_Body(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/orders/update-status/9", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Completado", body["estado"])
		w.Write([]byte(`{"id":9,"estado":"Completado"}`))
	})

	o, err := c.UpdateOrderStatus(context.Background(), "tok", 9, model.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, o.Status)
}

func TestAPIError_Variants(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"error":"Reserva duplicada"}`, "Reserva duplicada"},
		{`{"message":"No autorizado"}`, "No autorizado"},
		{`plain failure`, "plain failure"},
		{``, "Internal Server Error"},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(tc.body))
		})
		_, err := c.DeleteOrder(context.Background(), "tok", 1)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), tc.body)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, tc.want, apiErr.Message)
	}
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`invalid-json`))
	})
	_, err := c.UserOrders(context.Background(), "tok")
	assert.ErrorContains(t, err, "decode response")
}

func TestBrotliResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		bw.Write([]byte(`{"id":3,"nombre":"Ovillo","precio":"12.5","stock":7}`))
		bw.Close()
	})

	p, err := c.Product(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Ovillo", p.Name)
	assert.Equal(t, 7, p.Stock)
	assert.True(t, decimal.RequireFromString("12.5").Equal(p.Price))
}

func TestProduct_CacheAndForget(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"id":1,"stock":2}`))
	})
	ctx := context.Background()

	_, err := c.Product(ctx, 1)
	require.NoError(t, err)
	_, err = c.Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	c.ForgetProduct(1)
	_, err = c.Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestProducts_FanOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/productos/3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/productos/")
		w.Write([]byte(`{"id":` + id + `,"stock":1}`))
	})

	ps, err := c.Products(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ps[0].ID)
	assert.Equal(t, int64(2), ps[1].ID)

	_, err = c.Products(context.Background(), []int64{1, 3})
	assert.ErrorContains(t, err, "failed to fetch product 3")
}

func TestUploadOrderProof_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/4/comprobante", r.URL.Path)
		f, hdr, err := r.FormFile("comprobante")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "receipt.pdf", hdr.Filename)
		assert.Equal(t, "%PDF", string(b))
		w.Write([]byte(`{"comprobanteURL":"/uploads/receipt.pdf"}`))
	})

	u, err := c.UploadOrderProof(context.Background(), "tok", 4, "receipt.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/receipt.pdf", u)
}
