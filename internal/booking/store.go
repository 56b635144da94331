package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrSlotFull     = errors.New("availability slot is full")
	ErrInvalidSlot  = errors.New("slot must end after it starts")
	ErrWrongKind    = errors.New("operation not available for this booking kind")
	ErrMissingSlot  = errors.New("reservation needs an availability slot")
	ErrInvalidPrice = errors.New("price must not be negative")
)

type Backend interface {
	ReservationsForUser(ctx context.Context, kind model.Kind, token string, userID int64) ([]model.Reservation, error)
	ReservationsForAssistant(ctx context.Context, kind model.Kind, token string, assistantID int64) ([]model.Reservation, error)
	AllReservations(ctx context.Context, kind model.Kind, token string) ([]model.Reservation, error)
	ReservationsForSubject(ctx context.Context, kind model.Kind, token string, subjectID int64) ([]model.Reservation, error)
	CreateReservation(ctx context.Context, kind model.Kind, token string, r model.Reservation) (model.Reservation, error)
	UpdateReservationStatus(ctx context.Context, kind model.Kind, token string, id int64, status model.ReservationStatus) error
	DeleteReservation(ctx context.Context, kind model.Kind, token string, id int64) error
	UploadReservationProof(ctx context.Context, kind model.Kind, token string, id int64, name string, r io.Reader) (string, error)

	Slots(ctx context.Context, kind model.Kind, subjectID int64, f model.SlotFilter) ([]model.Slot, error)
	CreateSlot(ctx context.Context, kind model.Kind, token string, subjectID int64, s model.Slot) (model.Slot, error)
	DeleteSlot(ctx context.Context, kind model.Kind, token string, slotID int64) error
	UpdateSlotStatus(ctx context.Context, kind model.Kind, token string, subjectID, slotID int64, status model.SlotStatus) error
	SlotBookingCount(ctx context.Context, kind model.Kind, slotID int64) (int, error)
	AddSchedules(ctx context.Context, kind model.Kind, token string, slotID int64, schedules []model.Schedule) error

	Course(ctx context.Context, id int64) (model.Course, error)
	UpdateCoursePrice(ctx context.Context, token string, id int64, price decimal.Decimal) error
	AddCourseImage(ctx context.Context, token string, courseID int64, name string, r io.Reader) (model.Image, error)
	DeleteCourseImage(ctx context.Context, token string, courseID, imageID int64) error
	UpdateServiceDescription(ctx context.Context, token string, serviceID int64, description string) error
	UpdateServiceLinks(ctx context.Context, token string, s model.Service) error
}

type TokenSource interface {
	Token() (string, error)
	Optional() string
}

type Publisher interface {
	PublishEvent(ctx context.Context, key []byte, env events.Envelope) error
}

// Store keeps the reservations and availability of one booking kind for a
// session. Reads go out with whatever token the session has; changes need one.
type Store struct {
	mu           sync.RWMutex
	kind         model.Kind
	reservations []model.Reservation
	subject      int64
	slots        []model.Slot
	course       *model.Course
	descriptions map[int64]string
	errMsg       string

	backend  Backend
	tokens   TokenSource
	pub      Publisher
	producer string
	log      *slog.Logger
}

type Option func(*Store)

func WithPublisher(p Publisher, producer string) Option {
	return func(s *Store) {
		s.pub = p
		s.producer = producer
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(kind model.Kind, b Backend, tokens TokenSource, opts ...Option) *Store {
	s := &Store{
		kind:         kind,
		descriptions: make(map[int64]string),
		backend:      b,
		tokens:       tokens,
		log:          slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Kind() model.Kind { return s.kind }

func (s *Store) token() (string, error) {
	t, err := s.tokens.Token()
	if err != nil {
		s.fail(err)
		return "", err
	}
	return t, nil
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	s.errMsg = err.Error()
	s.mu.Unlock()
}

func (s *Store) ok() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) setReservations(rs []model.Reservation) {
	s.mu.Lock()
	s.reservations = append([]model.Reservation(nil), rs...)
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) fetch(op string, call func(tok string) ([]model.Reservation, error)) ([]model.Reservation, error) {
	rs, err := call(s.tokens.Optional())
	if err != nil {
		s.fail(err)
		return nil, fmt.Errorf("%s %s reservations: %w", op, s.kind, err)
	}
	s.setReservations(rs)
	return rs, nil
}

func (s *Store) FetchForUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return s.fetch("fetch user", func(tok string) ([]model.Reservation, error) {
		return s.backend.ReservationsForUser(ctx, s.kind, tok, userID)
	})
}

func (s *Store) FetchForAssistant(ctx context.Context, assistantID int64) ([]model.Reservation, error) {
	return s.fetch("fetch assistant", func(tok string) ([]model.Reservation, error) {
		return s.backend.ReservationsForAssistant(ctx, s.kind, tok, assistantID)
	})
}

func (s *Store) FetchAll(ctx context.Context) ([]model.Reservation, error) {
	return s.fetch("fetch all", func(tok string) ([]model.Reservation, error) {
		return s.backend.AllReservations(ctx, s.kind, tok)
	})
}

func (s *Store) FetchForSubject(ctx context.Context, subjectID int64) ([]model.Reservation, error) {
	return s.fetch("fetch subject", func(tok string) ([]model.Reservation, error) {
		return s.backend.ReservationsForSubject(ctx, s.kind, tok, subjectID)
	})
}

// ByStatus filters the loaded reservations by status (empty keeps all) and
// orders them by booking date. Undated reservations keep their relative
// order at the end.
func (s *Store) ByStatus(status model.ReservationStatus, desc bool) []model.Reservation {
	s.mu.RLock()
	out := make([]model.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].BookedAt, out[j].BookedAt
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		if desc {
			return a.After(b.Time)
		}
		return a.Before(b.Time)
	})
	return out
}

// Create books a reservation. A slot already known to be full is refused
// without a backend call.
func (s *Store) Create(ctx context.Context, r model.Reservation) (model.Reservation, error) {
	if r.SlotID == 0 {
		s.fail(ErrMissingSlot)
		return model.Reservation{}, ErrMissingSlot
	}
	s.mu.RLock()
	i := s.slotIndex(r.SlotID)
	full := i >= 0 && s.slots[i].Full()
	s.mu.RUnlock()
	if full {
		s.fail(ErrSlotFull)
		return model.Reservation{}, fmt.Errorf("slot %d: %w", r.SlotID, ErrSlotFull)
	}

	created, err := s.backend.CreateReservation(ctx, s.kind, s.tokens.Optional(), r)
	if err != nil {
		s.fail(err)
		return model.Reservation{}, fmt.Errorf("create %s reservation: %w", s.kind, err)
	}
	if created.SlotID == 0 {
		created.SlotID = r.SlotID
	}
	if created.Status == "" {
		created.Status = model.ReservationPending
	}

	s.mu.Lock()
	s.reservations = append(s.reservations, created)
	if i := s.slotIndex(created.SlotID); i >= 0 {
		s.slots[i].Booked++
	}
	s.errMsg = ""
	s.mu.Unlock()
	return created, nil
}

func (s *Store) ChangeStatus(ctx context.Context, id int64, status model.ReservationStatus) error {
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.backend.UpdateReservationStatus(ctx, s.kind, tok, id, status); err != nil {
		s.fail(err)
		return fmt.Errorf("change %s reservation %d status: %w", s.kind, id, err)
	}
	s.ApplyReservationStatus(id, status)
	s.ok()

	key := strconv.FormatInt(id, 10)
	s.publish(ctx, events.EventReservationStatusChanged, "reservation", key, events.ReservationStatusChangedPayload{
		Kind:          s.kind,
		ReservationID: events.FlexInt(id),
		NewStatus:     string(status),
	})
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.backend.DeleteReservation(ctx, s.kind, tok, id); err != nil {
		s.fail(err)
		return fmt.Errorf("delete %s reservation %d: %w", s.kind, id, err)
	}
	s.mu.Lock()
	if i := s.reservationIndex(id); i >= 0 {
		s.reservations = append(s.reservations[:i], s.reservations[i+1:]...)
	}
	s.errMsg = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) AttachProof(ctx context.Context, id int64, name string, r io.Reader) (string, error) {
	tok, err := s.token()
	if err != nil {
		return "", err
	}
	url, err := s.backend.UploadReservationProof(ctx, s.kind, tok, id, name, r)
	if err != nil {
		s.fail(err)
		return "", fmt.Errorf("upload proof for %s reservation %d: %w", s.kind, id, err)
	}
	s.mu.Lock()
	if i := s.reservationIndex(id); i >= 0 {
		s.reservations[i].ProofURL = url
	}
	s.errMsg = ""
	s.mu.Unlock()
	return url, nil
}

// FetchSlots loads the availability of one course or service.
func (s *Store) FetchSlots(ctx context.Context, subjectID int64, f model.SlotFilter) ([]model.Slot, error) {
	slots, err := s.backend.Slots(ctx, s.kind, subjectID, f)
	if err != nil {
		s.fail(err)
		return nil, fmt.Errorf("fetch %s %d slots: %w", s.kind, subjectID, err)
	}
	s.mu.Lock()
	s.subject = subjectID
	s.slots = append([]model.Slot(nil), slots...)
	s.errMsg = ""
	s.mu.Unlock()
	return slots, nil
}

func validSlot(sl model.Slot) error {
	if sl.Start.IsZero() || sl.End.IsZero() || !sl.End.After(sl.Start.Time) {
		return ErrInvalidSlot
	}
	return nil
}

func (s *Store) AddSlot(ctx context.Context, subjectID int64, sl model.Slot) (model.Slot, error) {
	if err := validSlot(sl); err != nil {
		s.fail(err)
		return model.Slot{}, err
	}
	tok, err := s.token()
	if err != nil {
		return model.Slot{}, err
	}
	created, err := s.backend.CreateSlot(ctx, s.kind, tok, subjectID, sl)
	if err != nil {
		s.fail(err)
		return model.Slot{}, fmt.Errorf("add %s %d slot: %w", s.kind, subjectID, err)
	}
	if created.Start.IsZero() {
		created.Start, created.End, created.Capacity = sl.Start, sl.End, sl.Capacity
	}
	if created.Status == "" {
		created.Status = model.SlotAvailable
	}
	s.mu.Lock()
	if s.subject == subjectID {
		s.slots = append(s.slots, created)
	}
	s.errMsg = ""
	s.mu.Unlock()
	return created, nil
}

// AddSlots creates every slot of a calendar selection and reloads the
// subject's availability once at the end. Slots that fail are reported
// together; the others stay created.
func (s *Store) AddSlots(ctx context.Context, subjectID int64, slots []model.Slot) (int, error) {
	tok, err := s.token()
	if err != nil {
		return 0, err
	}
	var (
		created int
		errs    []error
	)
	for _, sl := range slots {
		if err := validSlot(sl); err != nil {
			errs = append(errs, fmt.Errorf("slot %s: %w", sl.Start.Format("2006-01-02 15:04"), err))
			continue
		}
		if _, err := s.backend.CreateSlot(ctx, s.kind, tok, subjectID, sl); err != nil {
			errs = append(errs, fmt.Errorf("slot %s: %w", sl.Start.Format("2006-01-02 15:04"), err))
			continue
		}
		created++
	}
	if created > 0 {
		if _, err := s.FetchSlots(ctx, subjectID, model.SlotFilter{}); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.fail(err)
		return created, err
	}
	return created, nil
}

func (s *Store) DeleteSlot(ctx context.Context, slotID int64) error {
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.backend.DeleteSlot(ctx, s.kind, tok, slotID); err != nil {
		s.fail(err)
		return fmt.Errorf("delete slot %d: %w", slotID, err)
	}
	s.mu.Lock()
	if i := s.slotIndex(slotID); i >= 0 {
		s.slots = append(s.slots[:i], s.slots[i+1:]...)
	}
	s.errMsg = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) UpdateSlotStatus(ctx context.Context, subjectID, slotID int64, status model.SlotStatus) error {
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.backend.UpdateSlotStatus(ctx, s.kind, tok, subjectID, slotID, status); err != nil {
		s.fail(err)
		return fmt.Errorf("change slot %d status: %w", slotID, err)
	}
	s.ApplySlotStatus(slotID, status)
	s.ok()

	key := strconv.FormatInt(slotID, 10)
	s.publish(ctx, events.EventAvailabilityChanged, "slot", key, events.AvailabilityChangedPayload{
		AvailabilityID: events.FlexInt(slotID),
		NewStatus:      string(status),
	})
	return nil
}

// RefreshSlotCount reloads how many reservations a slot holds.
func (s *Store) RefreshSlotCount(ctx context.Context, slotID int64) (int, error) {
	n, err := s.backend.SlotBookingCount(ctx, s.kind, slotID)
	if err != nil {
		s.fail(err)
		return 0, fmt.Errorf("count slot %d bookings: %w", slotID, err)
	}
	s.mu.Lock()
	if i := s.slotIndex(slotID); i >= 0 {
		s.slots[i].Booked = n
	}
	s.errMsg = ""
	s.mu.Unlock()
	return n, nil
}

func (s *Store) AddSchedules(ctx context.Context, slotID int64, schedules []model.Schedule) error {
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.backend.AddSchedules(ctx, s.kind, tok, slotID, schedules); err != nil {
		s.fail(err)
		return fmt.Errorf("add schedules to slot %d: %w", slotID, err)
	}
	s.mu.Lock()
	if i := s.slotIndex(slotID); i >= 0 {
		s.slots[i].Schedules = append(s.slots[i].Schedules, schedules...)
	}
	s.errMsg = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) requireKind(k model.Kind) error {
	if s.kind != k {
		s.fail(ErrWrongKind)
		return fmt.Errorf("%s: %w", s.kind, ErrWrongKind)
	}
	return nil
}

func (s *Store) FetchCourse(ctx context.Context, id int64) (model.Course, error) {
	if err := s.requireKind(model.KindCourse); err != nil {
		return model.Course{}, err
	}
	c, err := s.backend.Course(ctx, id)
	if err != nil {
		s.fail(err)
		return model.Course{}, fmt.Errorf("fetch course %d: %w", id, err)
	}
	s.mu.Lock()
	s.course = &c
	if len(c.Slots) > 0 {
		s.subject = id
		s.slots = append([]model.Slot(nil), c.Slots...)
	}
	s.errMsg = ""
	s.mu.Unlock()
	return c, nil
}

func (s *Store) UpdateCoursePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	if err := s.requireKind(model.KindCourse); err != nil {
		return err
	}
	if price.IsNegative() {
		s.fail(ErrInvalidPrice)
		return ErrInvalidPrice
	}
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.backend.UpdateCoursePrice(ctx, tok, id, price); err != nil {
		s.fail(err)
		return fmt.Errorf("update course %d price: %w", id, err)
	}
	s.withCourse(id, func(c *model.Course) { c.Price = price })
	return nil
}

func (s *Store) AddCourseImage(ctx context.Context, courseID int64, name string, r io.Reader) (model.Image, error) {
	if err := s.requireKind(model.KindCourse); err != nil {
		return model.Image{}, err
	}
	tok, err := s.token()
	if err != nil {
		return model.Image{}, err
	}
	img, err := s.backend.AddCourseImage(ctx, tok, courseID, name, r)
	if err != nil {
		s.fail(err)
		return model.Image{}, fmt.Errorf("add course %d image: %w", courseID, err)
	}
	s.withCourse(courseID, func(c *model.Course) { c.Images = append(c.Images, img) })
	return img, nil
}

func (s *Store) DeleteCourseImage(ctx context.Context, courseID, imageID int64) error {
	if err := s.requireKind(model.KindCourse); err != nil {
		return err
	}
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.backend.DeleteCourseImage(ctx, tok, courseID, imageID); err != nil {
		s.fail(err)
		return fmt.Errorf("delete course %d image %d: %w", courseID, imageID, err)
	}
	s.withCourse(courseID, func(c *model.Course) {
		for i := range c.Images {
			if c.Images[i].ID == imageID {
				c.Images = append(c.Images[:i], c.Images[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *Store) withCourse(id int64, fn func(*model.Course)) {
	s.mu.Lock()
	if s.course != nil && s.course.ID == id {
		fn(s.course)
	}
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) UpdateServiceDescription(ctx context.Context, serviceID int64, description string) error {
	if err := s.requireKind(model.KindService); err != nil {
		return err
	}
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.backend.UpdateServiceDescription(ctx, tok, serviceID, description); err != nil {
		s.fail(err)
		return fmt.Errorf("update service %d description: %w", serviceID, err)
	}
	s.ApplyDescription(serviceID, description)
	s.ok()

	key := strconv.FormatInt(serviceID, 10)
	s.publish(ctx, events.EventServiceDescriptionChanged, "service", key, events.ServiceDescriptionChangedPayload{
		ServiceID:      events.FlexInt(serviceID),
		NewDescription: description,
	})
	return nil
}

func (s *Store) UpdateServiceLinks(ctx context.Context, svc model.Service) error {
	if err := s.requireKind(model.KindService); err != nil {
		return err
	}
	tok, err := s.token()
	if err != nil {
		return err
	}
	if err := s.backend.UpdateServiceLinks(ctx, tok, svc); err != nil {
		s.fail(err)
		return fmt.Errorf("update service %d links: %w", svc.ID, err)
	}
	s.ok()
	return nil
}

func (s *Store) publish(ctx context.Context, eventType, entity, key string, payload any) {
	if s.pub == nil {
		return
	}
	env, err := events.New(eventType, s.producer, key, payload)
	if err == nil {
		err = s.pub.PublishEvent(ctx, events.PartitionKey(entity, key), env)
	}
	if err != nil {
		s.log.Error("publish booking event", "event_type", eventType, "kind", s.kind, "id", key, "error", err)
	}
}

func (s *Store) reservationIndex(id int64) int {
	for i := range s.reservations {
		if s.reservations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) slotIndex(id int64) int {
	for i := range s.slots {
		if s.slots[i].ID == id {
			return i
		}
	}
	return -1
}
