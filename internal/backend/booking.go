package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/shopspring/decimal"
)

// bookingPaths holds the fmt templates of one booking kind. An empty
// template means the backend has no such endpoint for that kind.
type bookingPaths struct {
	slots         string // subject id
	slotStatus    string // subject id, slot id
	create        string
	status        string // reservation id
	delete        string // reservation id
	proof         string // reservation id
	byUser        string // user id
	byAssistant   string // assistant id
	all           string
	bySubject     string // subject id
	slotBookings  string // slot id
	slotSchedules string // slot id
	slotDelete    string // slot id
}

var pathsByKind = map[model.Kind]bookingPaths{
	model.KindCourse: {
		slots:         "/api/cursos/%d/disponibilidades",
		slotStatus:    "/api/cursos/%d/disponibilidades/%d",
		create:        "/api/reservas",
		status:        "/api/reservas/cursos/%d/estado",
		delete:        "/api/reservas/cursos/%d",
		proof:         "/api/reservas/%d/comprobante",
		byUser:        "/api/cursos/usuarios/%d/reservas",
		all:           "/api/reservas/todas",
		bySubject:     "/api/cursos/%d/reservas/admin",
		slotBookings:  "/api/reservas/verificar/%d",
		slotSchedules: "/api/disponibilidades/%d/horarios",
		slotDelete:    "/api/disponibilidades/%d",
	},
	model.KindService: {
		slots:         "/api/servicios/%d/disponibilidades",
		slotStatus:    "/api/servicios/%d/disponibilidades/%d",
		create:        "/api/servicios/reservas",
		status:        "/api/servicios/reservas/%d/estado",
		delete:        "/api/servicios/reservas/%d",
		proof:         "/api/servicios/reservas/%d/comprobante",
		byUser:        "/api/servicios/reservas/usuario/%d",
		byAssistant:   "/api/servicios/reservas/asistente/%d",
		all:           "/api/servicios/reservas/todas",
		bySubject:     "/api/servicios/%d/reservas",
		slotSchedules: "/api/disponibilidades/%d/horarios",
		slotDelete:    "/api/disponibilidades/%d",
	},
}

func pathFor(kind model.Kind, pick func(bookingPaths) string, args ...any) (string, error) {
	p, ok := pathsByKind[kind]
	if !ok {
		return "", fmt.Errorf("booking kind %q: %w", kind, ErrUnsupported)
	}
	tmpl := pick(p)
	if tmpl == "" {
		return "", fmt.Errorf("booking kind %q: %w", kind, ErrUnsupported)
	}
	return fmt.Sprintf(tmpl, args...), nil
}

func (c *Client) listReservations(ctx context.Context, token, path string) ([]model.Reservation, error) {
	var out []model.Reservation
	if err := c.call(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ReservationsForUser(ctx context.Context, kind model.Kind, token string, userID int64) ([]model.Reservation, error) {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.byUser }, userID)
	if err != nil {
		return nil, err
	}
	return c.listReservations(ctx, token, path)
}

func (c *Client) ReservationsForAssistant(ctx context.Context, kind model.Kind, token string, assistantID int64) ([]model.Reservation, error) {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.byAssistant }, assistantID)
	if err != nil {
		return nil, err
	}
	return c.listReservations(ctx, token, path)
}

func (c *Client) AllReservations(ctx context.Context, kind model.Kind, token string) ([]model.Reservation, error) {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.all })
	if err != nil {
		return nil, err
	}
	return c.listReservations(ctx, token, path)
}

func (c *Client) ReservationsForSubject(ctx context.Context, kind model.Kind, token string, subjectID int64) ([]model.Reservation, error) {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.bySubject }, subjectID)
	if err != nil {
		return nil, err
	}
	return c.listReservations(ctx, token, path)
}

func (c *Client) CreateReservation(ctx context.Context, kind model.Kind, token string, r model.Reservation) (model.Reservation, error) {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.create })
	if err != nil {
		return model.Reservation{}, err
	}
	var out model.Reservation
	err = c.call(ctx, http.MethodPost, path, token, r, &out)
	return out, err
}

func (c *Client) UpdateReservationStatus(ctx context.Context, kind model.Kind, token string, id int64, status model.ReservationStatus) error {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.status }, id)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPut, path, token, map[string]string{"estado": string(status)}, nil)
}

func (c *Client) DeleteReservation(ctx context.Context, kind model.Kind, token string, id int64) error {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.delete }, id)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodDelete, path, token, nil, nil)
}

func (c *Client) UploadReservationProof(ctx context.Context, kind model.Kind, token string, id int64, name string, r io.Reader) (string, error) {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.proof }, id)
	if err != nil {
		return "", err
	}
	var resp proofResponse
	err = c.upload(ctx, path, token, "comprobante", name, r, &resp)
	return resp.URL(), err
}

func (c *Client) Slots(ctx context.Context, kind model.Kind, subjectID int64, f model.SlotFilter) ([]model.Slot, error) {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.slots }, subjectID)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	if f.Status != "" {
		params.Set("estado", string(f.Status))
	}
	if f.Limit > 0 {
		params.Set("limite", strconv.Itoa(f.Limit))
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out []model.Slot
	if err := c.call(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type newSlot struct {
	Start    model.Timestamp `json:"fecha_inicio"`
	End      model.Timestamp `json:"fecha_fin"`
	Capacity int             `json:"max_reservas,omitempty"`
}

func (c *Client) CreateSlot(ctx context.Context, kind model.Kind, token string, subjectID int64, s model.Slot) (model.Slot, error) {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.slots }, subjectID)
	if err != nil {
		return model.Slot{}, err
	}
	var out model.Slot
	err = c.call(ctx, http.MethodPost, path, token, newSlot{Start: s.Start, End: s.End, Capacity: s.Capacity}, &out)
	return out, err
}

func (c *Client) DeleteSlot(ctx context.Context, kind model.Kind, token string, slotID int64) error {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.slotDelete }, slotID)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodDelete, path, token, nil, nil)
}

func (c *Client) UpdateSlotStatus(ctx context.Context, kind model.Kind, token string, subjectID, slotID int64, status model.SlotStatus) error {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.slotStatus }, subjectID, slotID)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPut, path, token, map[string]string{"nuevoEstado": string(status)}, nil)
}

// SlotBookingCount asks how many reservations a slot currently holds.
func (c *Client) SlotBookingCount(ctx context.Context, kind model.Kind, slotID int64) (int, error) {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.slotBookings }, slotID)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Count int `json:"reservasActuales"`
	}
	err = c.call(ctx, http.MethodGet, path, "", nil, &resp)
	return resp.Count, err
}

func (c *Client) AddSchedules(ctx context.Context, kind model.Kind, token string, slotID int64, schedules []model.Schedule) error {
	path, err := pathFor(kind, func(p bookingPaths) string { return p.slotSchedules }, slotID)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPost, path, token, map[string]any{"horarios": schedules}, nil)
}

func (c *Client) Course(ctx context.Context, id int64) (model.Course, error) {
	var out model.Course
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/cursos/%d/completo", id), "", nil, &out)
	return out, err
}

func (c *Client) UpdateCoursePrice(ctx context.Context, token string, id int64, price decimal.Decimal) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/api/cursos/%d/precio", id), token, map[string]any{"precio": price}, nil)
}

func (c *Client) AddCourseImage(ctx context.Context, token string, courseID int64, name string, r io.Reader) (model.Image, error) {
	var out model.Image
	err := c.upload(ctx, fmt.Sprintf("/api/cursos/%d/imagenes", courseID), token, "imagen", name, r, &out)
	return out, err
}

func (c *Client) DeleteCourseImage(ctx context.Context, token string, courseID, imageID int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/cursos/%d/imagenes/%d", courseID, imageID), token, nil, nil)
}

func (c *Client) UpdateServiceDescription(ctx context.Context, token string, serviceID int64, description string) error {
	body := map[string]string{"modal_description": description}
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/api/servicios/%d/descripcion", serviceID), token, body, nil)
}

func (c *Client) UpdateServiceLinks(ctx context.Context, token string, s model.Service) error {
	body := map[string]string{
		"facebook_url":  s.FacebookURL,
		"whatsapp_url":  s.WhatsappURL,
		"instagram_url": s.InstagramURL,
	}
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/api/servicios/%d/redes", s.ID), token, body, nil)
}
