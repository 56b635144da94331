package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/booking"
	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type BookingsHandler struct {
	Registry      *app.Registry
	ProofMaxWidth uint
}

func (h *BookingsHandler) Register(r *chi.Mux) {
	r.Route("/bookings/{kind}", func(r chi.Router) {
		r.Use(RequireSession(h.Registry))
		r.Get("/reservations", h.reservations)
		r.Post("/reservations", h.createReservation)
		r.Put("/reservations/{id}/status", h.reservationStatus)
		r.Delete("/reservations/{id}", h.deleteReservation)
		r.Post("/reservations/{id}/proof", h.reservationProof)

		r.Get("/{subject}", h.course)
		r.Put("/{subject}/price", h.coursePrice)
		r.Post("/{subject}/images", h.addCourseImage)
		r.Delete("/{subject}/images/{image}", h.deleteCourseImage)
		r.Put("/{subject}/description", h.serviceDescription)
		r.Put("/{subject}/links", h.serviceLinks)

		r.Get("/{subject}/slots", h.slots)
		r.Post("/{subject}/slots", h.addSlots)
		r.Put("/{subject}/slots/{slot}", h.slotStatus)
		r.Delete("/{subject}/slots/{slot}", h.deleteSlot)
		r.Get("/{subject}/slots/{slot}/count", h.slotCount)
		r.Post("/{subject}/slots/{slot}/schedules", h.addSchedules)
	})
}

func (h *BookingsHandler) store(w http.ResponseWriter, r *http.Request) (*booking.Store, bool) {
	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		badRequest(w, err.Error())
		return nil, false
	}
	b, err := sessionFrom(r).Bookings(kind)
	if err != nil {
		badRequest(w, err.Error())
		return nil, false
	}
	return b, true
}

func queryID(r *http.Request, name string) (int64, bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	return id, true, err
}

// reservations loads by userId, assistantId or subjectId (courseId and
// serviceId are accepted too), or everything when none is given. The result
// can be narrowed with estado and ordered with sort=asc|desc.
func (h *BookingsHandler) reservations(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var fetch func() ([]model.Reservation, error)
	for _, p := range []struct {
		name string
		fn   func(int64) ([]model.Reservation, error)
	}{
		{"userId", func(id int64) ([]model.Reservation, error) { return b.FetchForUser(ctx, id) }},
		{"assistantId", func(id int64) ([]model.Reservation, error) { return b.FetchForAssistant(ctx, id) }},
		{"subjectId", func(id int64) ([]model.Reservation, error) { return b.FetchForSubject(ctx, id) }},
		{"courseId", func(id int64) ([]model.Reservation, error) { return b.FetchForSubject(ctx, id) }},
		{"serviceId", func(id int64) ([]model.Reservation, error) { return b.FetchForSubject(ctx, id) }},
	} {
		id, set, err := queryID(r, p.name)
		if err != nil {
			badRequest(w, "invalid "+p.name)
			return
		}
		if set {
			fn := p.fn
			fetch = func() ([]model.Reservation, error) { return fn(id) }
			break
		}
	}
	if fetch == nil {
		fetch = func() ([]model.Reservation, error) { return b.FetchAll(ctx) }
	}
	if _, err := fetch(); err != nil {
		writeError(w, r, err)
		return
	}

	var status model.ReservationStatus
	if v := r.URL.Query().Get("estado"); v != "" {
		s, err := model.ParseReservationStatus(v)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		status = s
	}
	desc := r.URL.Query().Get("sort") == "desc"
	writeJSON(w, http.StatusOK, b.ByStatus(status, desc))
}

func (h *BookingsHandler) createReservation(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	var req model.Reservation
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	created, err := b.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *BookingsHandler) reservationStatus(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid reservation id")
		return
	}
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	status, err := model.ParseReservationStatus(req.Status)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := b.ChangeStatus(r.Context(), id, status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "estado": status})
}

func (h *BookingsHandler) deleteReservation(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid reservation id")
		return
	}
	if err := b.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingsHandler) reservationProof(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		badRequest(w, "invalid reservation id")
		return
	}
	f, err := formFile(w, r, "comprobante", h.ProofMaxWidth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := b.AttachProof(r.Context(), id, f.Name, f.Reader())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url_comprobante": url})
}

func (h *BookingsHandler) course(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "subject")
	if !ok {
		badRequest(w, "invalid course id")
		return
	}
	c, err := b.FetchCourse(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *BookingsHandler) coursePrice(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "subject")
	if !ok {
		badRequest(w, "invalid course id")
		return
	}
	var req struct {
		Price *decimal.Decimal `json:"precio"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Price == nil {
		badRequest(w, "precio required")
		return
	}
	if err := b.UpdateCoursePrice(r.Context(), id, *req.Price); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "precio": req.Price})
}

func (h *BookingsHandler) addCourseImage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "subject")
	if !ok {
		badRequest(w, "invalid course id")
		return
	}
	f, err := formFile(w, r, "imagen", h.ProofMaxWidth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	img, err := b.AddCourseImage(r.Context(), id, f.Name, f.Reader())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func (h *BookingsHandler) deleteCourseImage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok1 := idParam(r, "subject")
	imageID, ok2 := idParam(r, "image")
	if !ok1 || !ok2 {
		badRequest(w, "invalid id")
		return
	}
	if err := b.DeleteCourseImage(r.Context(), id, imageID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingsHandler) serviceDescription(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "subject")
	if !ok {
		badRequest(w, "invalid service id")
		return
	}
	var req struct {
		Description string `json:"modal_description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if err := b.UpdateServiceDescription(r.Context(), id, req.Description); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "modal_description": req.Description})
}

func (h *BookingsHandler) serviceLinks(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "subject")
	if !ok {
		badRequest(w, "invalid service id")
		return
	}
	var svc model.Service
	if err := decodeJSON(r, &svc); err != nil {
		badRequest(w, "invalid json")
		return
	}
	svc.ID = id
	if err := b.UpdateServiceLinks(r.Context(), svc); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// slots lists a subject's availability; view=calendar returns calendar
// entries instead of raw slots.
func (h *BookingsHandler) slots(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	subject, ok := idParam(r, "subject")
	if !ok {
		badRequest(w, "invalid subject id")
		return
	}
	var f model.SlotFilter
	if v := r.URL.Query().Get("estado"); v != "" {
		s, err := model.ParseSlotStatus(v)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		f.Status = s
	}
	if v := r.URL.Query().Get("limite"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "invalid limite")
			return
		}
		f.Limit = n
	}
	slots, err := b.FetchSlots(r.Context(), subject, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("view") == "calendar" {
		writeJSON(w, http.StatusOK, b.CalendarEvents())
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// addSlots accepts one slot object or an array from a calendar selection.
func (h *BookingsHandler) addSlots(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	subject, ok := idParam(r, "subject")
	if !ok {
		badRequest(w, "invalid subject id")
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, "invalid body")
		return
	}
	raw = bytes.TrimSpace(raw)

	if len(raw) > 0 && raw[0] == '[' {
		var slots []model.Slot
		if err := json.Unmarshal(raw, &slots); err != nil || len(slots) == 0 {
			badRequest(w, "invalid slots")
			return
		}
		n, err := b.AddSlots(r.Context(), subject, slots)
		resp := map[string]any{"created": n, "slots": b.Slots()}
		if err != nil {
			if n == 0 {
				writeError(w, r, err)
				return
			}
			resp["error"] = err.Error()
		}
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	var slot model.Slot
	if err := json.Unmarshal(raw, &slot); err != nil {
		badRequest(w, "invalid slot")
		return
	}
	created, err := b.AddSlot(r.Context(), subject, slot)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *BookingsHandler) slotStatus(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	subject, ok1 := idParam(r, "subject")
	slot, ok2 := idParam(r, "slot")
	if !ok1 || !ok2 {
		badRequest(w, "invalid id")
		return
	}
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	status, err := model.ParseSlotStatus(req.Status)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := b.UpdateSlotStatus(r.Context(), subject, slot, status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": slot, "estado": status})
}

func (h *BookingsHandler) deleteSlot(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	slot, ok := idParam(r, "slot")
	if !ok {
		badRequest(w, "invalid slot id")
		return
	}
	if err := b.DeleteSlot(r.Context(), slot); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingsHandler) slotCount(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	slot, ok := idParam(r, "slot")
	if !ok {
		badRequest(w, "invalid slot id")
		return
	}
	n, err := b.RefreshSlotCount(r.Context(), slot)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reservasActuales": n})
}

func (h *BookingsHandler) addSchedules(w http.ResponseWriter, r *http.Request) {
	b, ok := h.store(w, r)
	if !ok {
		return
	}
	slot, ok := idParam(r, "slot")
	if !ok {
		badRequest(w, "invalid slot id")
		return
	}
	var req struct {
		Schedules []model.Schedule `json:"horarios"`
	}
	if err := decodeJSON(r, &req); err != nil || len(req.Schedules) == 0 {
		badRequest(w, "horarios required")
		return
	}
	if err := b.AddSchedules(r.Context(), slot, req.Schedules); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
