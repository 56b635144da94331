package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-storefront/internal/model"
)

type userOrdersResponse struct {
	User   model.User    `json:"user"`
	Orders []model.Order `json:"orders"`
}

func (c *Client) UserOrders(ctx context.Context, token string) ([]model.Order, error) {
	var resp userOrdersResponse
	if err := c.call(ctx, http.MethodGet, "/api/orders/user-orders", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) OrdersByStatus(ctx context.Context, token string, q model.OrderQuery) ([]model.Order, error) {
	path := "/api/orders/orders-by-status/" + url.PathEscape(string(q.Status))
	params := url.Values{}
	if q.Sort != "" {
		params.Set("sortByDate", q.Sort)
	}
	if from, to, ok := q.DateRange(); ok {
		params.Set("startDate", from)
		params.Set("endDate", to)
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var orders []model.Order
	if err := c.call(ctx, http.MethodGet, path, token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, token string, id int64, status model.OrderStatus) (model.Order, error) {
	var o model.Order
	body := map[string]string{"estado": string(status)}
	err := c.call(ctx, http.MethodPut, fmt.Sprintf("/api/orders/update-status/%d", id), token, body, &o)
	return o, err
}

func (c *Client) DeleteOrder(ctx context.Context, token string, id int64) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/orders/order/%d", id), token, nil, &resp)
	return resp.Message, err
}

// UploadOrderProof sends a payment receipt and returns its stored URL.
func (c *Client) UploadOrderProof(ctx context.Context, token string, id int64, name string, r io.Reader) (string, error) {
	var resp proofResponse
	err := c.upload(ctx, fmt.Sprintf("/api/orders/%d/comprobante", id), token, "comprobante", name, r, &resp)
	return resp.URL(), err
}
