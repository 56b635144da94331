package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	Registry *app.Registry
	Products cart.ProductSource
}

type addItemReq struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"cantidad"`
}

type stockReq struct {
	Stock *int `json:"stock"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(RequireSession(h.Registry))
		r.Get("/", h.get)
		r.Delete("/", h.clear)
		r.Post("/items", h.add)
		r.Delete("/items/{id}", h.itemOp((*cart.Cart).Remove))
		r.Post("/items/{id}/increment", h.itemOp((*cart.Cart).Increment))
		r.Post("/items/{id}/decrement", h.itemOp((*cart.Cart).Decrement))
		r.Put("/items/{id}/stock", h.setStock)
		r.Post("/reconcile", h.reconcile)
		r.Post("/purchased", h.purchased)
	})
}

func cartView(c *cart.Cart) map[string]any {
	return map[string]any{
		"items": c.Items(),
		"total": c.Total(),
		"count": c.Count(),
	}
}

// respondCart answers with the cart after a mutation. The mutation itself
// always applies; a save failure is only reported.
func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, c *cart.Cart, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cartView(sessionFrom(r).Cart))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r).Cart
	h.respondCart(w, r, c, c.Clear(r.Context()))
}

// add looks the product up on the backend so price and stock come from the
// server, not the caller.
func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(r, &req); err != nil || req.ProductID <= 0 {
		badRequest(w, "product id required")
		return
	}
	p, err := h.Products.Product(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	it := cart.FromProduct(p)
	if req.Quantity > 0 {
		it.Quantity = req.Quantity
	}
	c := sessionFrom(r).Cart
	h.respondCart(w, r, c, c.Add(r.Context(), it))
}

func (h *CartHandler) itemOp(op func(c *cart.Cart, ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			badRequest(w, "invalid item id")
			return
		}
		c := sessionFrom(r).Cart
		h.respondCart(w, r, c, op(c, r.Context(), id))
	}
}

func (h *CartHandler) setStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid item id")
		return
	}
	var req stockReq
	if err := decodeJSON(r, &req); err != nil || req.Stock == nil {
		badRequest(w, "stock required")
		return
	}
	c := sessionFrom(r).Cart
	h.respondCart(w, r, c, c.SetStock(r.Context(), id, *req.Stock))
}

// reconcile refreshes every item from the backend. Items whose product could
// not be fetched are kept as they were and listed in "error".
func (h *CartHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r).Cart
	err := c.Reconcile(r.Context(), h.Products)
	view := cartView(c)
	if err != nil {
		view["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, view)
}

// purchased takes the lines of a paid order off the cart stock.
func (h *CartHandler) purchased(w http.ResponseWriter, r *http.Request) {
	var lines []model.LineItem
	if err := decodeJSON(r, &lines); err != nil {
		badRequest(w, "order lines required")
		return
	}
	c := sessionFrom(r).Cart
	h.respondCart(w, r, c, c.ApplyCompletedOrder(r.Context(), lines))
}
