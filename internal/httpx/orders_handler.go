package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	Registry      *app.Registry
	ProofMaxWidth uint
}

type statusReq struct {
	Status string `json:"estado"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(RequireSession(h.Registry))
		r.Get("/", h.list)
		r.Get("/status/{status}", h.byStatus)
		r.Get("/new", h.newCount)
		r.Delete("/new", h.resetNew)
		r.Put("/{id}/status", h.changeStatus)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/proof", h.proof)
	})
}

func ordersView(s *orders.Store, list []model.Order) map[string]any {
	return map[string]any{
		"orders":    list,
		"newOrders": s.NewCount(),
	}
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	store := sessionFrom(r).Orders
	list, err := store.FetchOwn(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersView(store, list))
}

// byStatus is the admin listing; sort is asc|desc and the date range is only
// used when both from and to are given.
func (h *OrdersHandler) byStatus(w http.ResponseWriter, r *http.Request) {
	status, err := model.ParseOrderStatus(chi.URLParam(r, "status"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	q := model.OrderQuery{Status: status, Sort: r.URL.Query().Get("sort")}
	if q.Sort != "" && q.Sort != "asc" && q.Sort != "desc" {
		badRequest(w, "sort must be asc or desc")
		return
	}
	for name, dst := range map[string]*model.Timestamp{"from": &q.From, "to": &q.To} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		ts, err := model.ParseTimestamp(v)
		if err != nil {
			badRequest(w, "invalid "+name+" date")
			return
		}
		*dst = ts
	}

	store := sessionFrom(r).Orders
	list, err := store.FetchByStatus(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersView(store, list))
}

func (h *OrdersHandler) newCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"newOrders": sessionFrom(r).Orders.NewCount()})
}

func (h *OrdersHandler) resetNew(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Orders.ResetNew()
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	o, err := sessionFrom(r).Orders.ChangeStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	msg, err := sessionFrom(r).Orders.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (h *OrdersHandler) proof(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	f, err := formFile(w, r, "comprobante", h.ProofMaxWidth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := sessionFrom(r).Orders.AttachProof(r.Context(), id, f.Name, f.Reader())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"comprobante_pago": url})
}
