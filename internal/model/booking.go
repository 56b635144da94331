package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind selects the bookable subject family: courses or services.
type Kind string

const (
	KindCourse  Kind = "course"
	KindService Kind = "service"
)

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "course", "courses", "curso", "cursos":
		return KindCourse, nil
	case "service", "services", "servicio", "servicios":
		return KindService, nil
	}
	return "", fmt.Errorf("unknown booking kind %q", s)
}

type Schedule struct {
	Weekday string `json:"dia_semana"`
	From    string `json:"hora_inicio"`
	To      string `json:"hora_fin"`
}

type Reservation struct {
	ID          int64             `json:"id"`
	SlotID      int64             `json:"disponibilidad_id"`
	UserID      int64             `json:"usuario_id"`
	Status      ReservationStatus `json:"estado"`
	BookedAt    Timestamp         `json:"fecha_reserva"`
	CourseName  string            `json:"curso_nombre,omitempty"`
	ServiceName string            `json:"servicio_nombre,omitempty"`
	Schedules   []Schedule        `json:"horarios,omitempty"`
	UserName    string            `json:"nombre_usuario,omitempty"`
	UserEmail   string            `json:"correo_usuario,omitempty"`
	UserPhone   string            `json:"telefono_usuario,omitempty"`
	ProofURL    string            `json:"url_comprobante,omitempty"`
	Start       Timestamp         `json:"fecha_inicio"`
	End         Timestamp         `json:"fecha_fin"`
}

type Slot struct {
	ID        int64      `json:"id"`
	CourseID  int64      `json:"curso_id,omitempty"`
	ServiceID int64      `json:"servicio_id,omitempty"`
	Start     Timestamp  `json:"fecha_inicio"`
	End       Timestamp  `json:"fecha_fin"`
	Capacity  int        `json:"max_reservas,omitempty"`
	Schedules []Schedule `json:"horarios,omitempty"`
	Booked    int        `json:"reservasActuales"`
	Status    SlotStatus `json:"estado"`
}

// SlotFilter narrows a slot listing; zero values are not sent.
type SlotFilter struct {
	Status SlotStatus
	Limit  int
}

// Full reports whether the slot has reached capacity. Slots without a
// capacity never fill up.
func (s Slot) Full() bool {
	return s.Capacity > 0 && s.Booked >= s.Capacity
}

type Image struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

type Course struct {
	ID          int64           `json:"id"`
	Name        string          `json:"nombre"`
	Description string          `json:"descripcion,omitempty"`
	Price       decimal.Decimal `json:"precio"`
	Images      []Image         `json:"imagenes,omitempty"`
	Slots       []Slot          `json:"disponibilidades,omitempty"`
}

type Service struct {
	ID           int64  `json:"id"`
	Name         string `json:"nombre"`
	Description  string `json:"modal_description,omitempty"`
	FacebookURL  string `json:"facebook_url,omitempty"`
	WhatsappURL  string `json:"whatsapp_url,omitempty"`
	InstagramURL string `json:"instagram_url,omitempty"`
}

// CalendarEvent is a slot projected for a calendar view.
type CalendarEvent struct {
	ID     int64      `json:"id"`
	Title  string     `json:"title"`
	Start  Timestamp  `json:"start"`
	End    Timestamp  `json:"end"`
	AllDay bool       `json:"allDay"`
	Status SlotStatus `json:"estado"`
}

func (s Slot) CalendarEvent() CalendarEvent {
	status := s.Status
	if status == "" {
		status = SlotAvailable
	}
	title := "Disponible"
	if status == SlotBooked {
		title = "Reservado"
	}
	return CalendarEvent{ID: s.ID, Title: title, Start: s.Start, End: s.End, Status: status}
}
