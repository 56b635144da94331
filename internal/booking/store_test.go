package booking

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu           sync.Mutex
	reservations []model.Reservation
	slots        []model.Slot
	err          error
	failStart    time.Time
	created      []model.Slot
	slotFetches  int
	tokens       []string
	count        int
	course       model.Course
}

func (f *fakeBackend) list(tok string) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, tok)
	return f.reservations, f.err
}

func (f *fakeBackend) ReservationsForUser(_ context.Context, _ model.Kind, tok string, _ int64) ([]model.Reservation, error) {
	return f.list(tok)
}

func (f *fakeBackend) ReservationsForAssistant(_ context.Context, _ model.Kind, tok string, _ int64) ([]model.Reservation, error) {
	return f.list(tok)
}

func (f *fakeBackend) AllReservations(_ context.Context, _ model.Kind, tok string) ([]model.Reservation, error) {
	return f.list(tok)
}

func (f *fakeBackend) ReservationsForSubject(_ context.Context, _ model.Kind, tok string, _ int64) ([]model.Reservation, error) {
	return f.list(tok)
}

func (f *fakeBackend) CreateReservation(_ context.Context, _ model.Kind, tok string, r model.Reservation) (model.Reservation, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, tok)
	f.mu.Unlock()
	r.ID = 99
	return r, f.err
}

func (f *fakeBackend) UpdateReservationStatus(context.Context, model.Kind, string, int64, model.ReservationStatus) error {
	return f.err
}

func (f *fakeBackend) DeleteReservation(context.Context, model.Kind, string, int64) error {
	return f.err
}

func (f *fakeBackend) UploadReservationProof(_ context.Context, _ model.Kind, _ string, _ int64, name string, _ io.Reader) (string, error) {
	return "/uploads/" + name, f.err
}

func (f *fakeBackend) Slots(context.Context, model.Kind, int64, model.SlotFilter) ([]model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slotFetches++
	return append(f.slots, f.created...), f.err
}

func (f *fakeBackend) CreateSlot(_ context.Context, _ model.Kind, _ string, _ int64, s model.Slot) (model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.Start.Equal(f.failStart) {
		return model.Slot{}, errors.New("slot overlaps")
	}
	s.ID = int64(100 + len(f.created))
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeBackend) DeleteSlot(context.Context, model.Kind, string, int64) error { return f.err }

func (f *fakeBackend) UpdateSlotStatus(context.Context, model.Kind, string, int64, int64, model.SlotStatus) error {
	return f.err
}

func (f *fakeBackend) SlotBookingCount(context.Context, model.Kind, int64) (int, error) {
	return f.count, f.err
}

func (f *fakeBackend) AddSchedules(context.Context, model.Kind, string, int64, []model.Schedule) error {
	return f.err
}

func (f *fakeBackend) Course(context.Context, int64) (model.Course, error) { return f.course, f.err }

func (f *fakeBackend) UpdateCoursePrice(context.Context, string, int64, decimal.Decimal) error {
	return f.err
}

func (f *fakeBackend) AddCourseImage(_ context.Context, _ string, _ int64, name string, _ io.Reader) (model.Image, error) {
	return model.Image{ID: 7, URL: "/img/" + name}, f.err
}

func (f *fakeBackend) DeleteCourseImage(context.Context, string, int64, int64) error { return f.err }

func (f *fakeBackend) UpdateServiceDescription(context.Context, string, int64, string) error {
	return f.err
}

func (f *fakeBackend) UpdateServiceLinks(context.Context, string, model.Service) error { return f.err }

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	envs []events.Envelope
}

func (p *recordingPublisher) PublishEvent(_ context.Context, key []byte, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, string(key))
	p.envs = append(p.envs, env)
	return nil
}

func signedIn() *auth.TokenStore {
	ts := auth.NewTokenStore()
	ts.Set("opaque-token")
	return ts
}

func at(t *testing.T, s string) model.Timestamp {
	t.Helper()
	ts, err := model.ParseTimestamp(s)
	require.NoError(t, err)
	return ts
}

func TestFetch_ReadsWithoutToken(t *testing.T) {
	b := &fakeBackend{reservations: []model.Reservation{{ID: 1}, {ID: 2}}}
	s := NewStore(model.KindCourse, b, auth.NewTokenStore())

	rs, err := s.FetchForUser(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, rs, 2)
	assert.Equal(t, []string{""}, b.tokens)
	assert.Len(t, s.Reservations(), 2)
}

func TestFetch_ErrorIsKept(t *testing.T) {
	b := &fakeBackend{err: errors.New("boom")}
	s := NewStore(model.KindService, b, signedIn())

	_, err := s.FetchAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, "boom", s.Err())

	b.err = nil
	_, err = s.FetchForAssistant(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, s.Err())
}

func TestByStatus_FiltersAndSorts(t *testing.T) {
	b := &fakeBackend{reservations: []model.Reservation{
		{ID: 1, Status: model.ReservationPending, BookedAt: at(t, "2024-03-02")},
		{ID: 2, Status: model.ReservationCompleted, BookedAt: at(t, "2024-03-01")},
		{ID: 3, Status: model.ReservationPending},
		{ID: 4, Status: model.ReservationPending, BookedAt: at(t, "2024-01-15")},
	}}
	s := NewStore(model.KindCourse, b, signedIn())
	_, err := s.FetchForSubject(context.Background(), 1)
	require.NoError(t, err)

	ids := func(rs []model.Reservation) []int64 {
		var out []int64
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []int64{4, 1, 3}, ids(s.ByStatus(model.ReservationPending, false)))
	assert.Equal(t, []int64{1, 4, 3}, ids(s.ByStatus(model.ReservationPending, true)))
	assert.Equal(t, []int64{1, 2, 4, 3}, ids(s.ByStatus("", true)))
}

func TestCreate_RefusesFullSlot(t *testing.T) {
	b := &fakeBackend{slots: []model.Slot{
		{ID: 5, Capacity: 2, Booked: 2},
		{ID: 6, Capacity: 2, Booked: 1},
	}}
	s := NewStore(model.KindCourse, b, signedIn())
	ctx := context.Background()
	_, err := s.FetchSlots(ctx, 1, model.SlotFilter{})
	require.NoError(t, err)

	_, err = s.Create(ctx, model.Reservation{SlotID: 5})
	assert.ErrorIs(t, err, ErrSlotFull)

	_, err = s.Create(ctx, model.Reservation{})
	assert.ErrorIs(t, err, ErrMissingSlot)

	r, err := s.Create(ctx, model.Reservation{SlotID: 6, UserID: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(99), r.ID)
	assert.Equal(t, model.ReservationPending, r.Status)
	assert.True(t, s.Slots()[1].Full(), "booking count follows the new reservation")
}

func TestCreate_WorksSignedOut(t *testing.T) {
	b := &fakeBackend{}
	s := NewStore(model.KindService, b, auth.NewTokenStore())

	r, err := s.Create(context.Background(), model.Reservation{SlotID: 3, UserID: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(99), r.ID)
	assert.Equal(t, []string{""}, b.tokens, "created without a token")

	_, err = s.Create(context.Background(), model.Reservation{SlotID: 3})
	require.NoError(t, err)
	s2 := NewStore(model.KindService, b, signedIn())
	_, err = s2.Create(context.Background(), model.Reservation{SlotID: 3})
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", b.tokens[2], "the token is sent when there is one")
}

func TestChangeStatus_RequiresTokenAndPublishes(t *testing.T) {
	b := &fakeBackend{reservations: []model.Reservation{{ID: 1, Status: model.ReservationPending}}}
	pub := &recordingPublisher{}
	ctx := context.Background()

	anon := NewStore(model.KindService, b, auth.NewTokenStore())
	assert.ErrorIs(t, anon.ChangeStatus(ctx, 1, model.ReservationCompleted), auth.ErrMissingToken)

	s := NewStore(model.KindService, b, signedIn(), WithPublisher(pub, "test"))
	_, err := s.FetchAll(ctx)
	require.NoError(t, err)
	require.NoError(t, s.ChangeStatus(ctx, 1, model.ReservationCompleted))

	got, ok := s.Reservation(1)
	require.True(t, ok)
	assert.Equal(t, model.ReservationCompleted, got.Status)

	require.Len(t, pub.envs, 1)
	assert.Equal(t, events.EventReservationStatusChanged, pub.envs[0].EventType)
	assert.Equal(t, "reservation:1", pub.keys[0])
	p, err := events.Decode[events.ReservationStatusChangedPayload](pub.envs[0])
	require.NoError(t, err)
	assert.Equal(t, model.KindService, p.Kind)
}

func TestDeleteAndProof(t *testing.T) {
	b := &fakeBackend{reservations: []model.Reservation{{ID: 1}, {ID: 2}}}
	s := NewStore(model.KindCourse, b, signedIn())
	ctx := context.Background()
	_, _ = s.FetchAll(ctx)

	url, err := s.AttachProof(ctx, 2, "pago.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/pago.jpg", url)
	got, _ := s.Reservation(2)
	assert.Equal(t, url, got.ProofURL)

	require.NoError(t, s.Delete(ctx, 1))
	assert.Len(t, s.Reservations(), 1)
}

func TestAddSlot_Validates(t *testing.T) {
	s := NewStore(model.KindCourse, &fakeBackend{}, signedIn())
	ctx := context.Background()

	_, err := s.AddSlot(ctx, 1, model.Slot{Start: at(t, "2024-06-01T12:00:00Z"), End: at(t, "2024-06-01T10:00:00Z")})
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = s.FetchSlots(ctx, 1, model.SlotFilter{})
	require.NoError(t, err)
	sl, err := s.AddSlot(ctx, 1, model.Slot{Start: at(t, "2024-06-01T10:00:00Z"), End: at(t, "2024-06-01T12:00:00Z"), Capacity: 3})
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, sl.Status)
	assert.Len(t, s.Slots(), 1)
}

func TestAddSlots_PartialFailureRefetchesOnce(t *testing.T) {
	bad := at(t, "2024-06-02T10:00:00Z")
	b := &fakeBackend{failStart: bad.Time}
	s := NewStore(model.KindService, b, signedIn())

	n, err := s.AddSlots(context.Background(), 3, []model.Slot{
		{Start: at(t, "2024-06-01T10:00:00Z"), End: at(t, "2024-06-01T11:00:00Z")},
		{Start: bad, End: at(t, "2024-06-02T11:00:00Z")},
		{Start: at(t, "2024-06-03T10:00:00Z"), End: at(t, "2024-06-03T11:00:00Z")},
	})
	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slot overlaps")
	assert.Equal(t, 1, b.slotFetches)
	assert.Len(t, s.Slots(), 2)
	assert.NotEmpty(t, s.Err())
}

func TestSlotStatusCountAndCalendar(t *testing.T) {
	b := &fakeBackend{count: 3, slots: []model.Slot{
		{ID: 1, Start: at(t, "2024-06-01T10:00:00Z"), End: at(t, "2024-06-01T11:00:00Z")},
		{ID: 2, Start: at(t, "2024-06-02T10:00:00Z"), End: at(t, "2024-06-02T11:00:00Z"), Status: model.SlotAvailable},
	}}
	pub := &recordingPublisher{}
	s := NewStore(model.KindCourse, b, signedIn(), WithPublisher(pub, "test"))
	ctx := context.Background()
	_, _ = s.FetchSlots(ctx, 1, model.SlotFilter{})

	require.NoError(t, s.UpdateSlotStatus(ctx, 1, 2, model.SlotBooked))
	n, err := s.RefreshSlotCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, s.AddSchedules(ctx, 1, []model.Schedule{{Weekday: "lunes", From: "10:00", To: "11:00"}}))

	ev := s.CalendarEvents()
	require.Len(t, ev, 2)
	assert.Equal(t, "Disponible", ev[0].Title)
	assert.Equal(t, "Reservado", ev[1].Title)
	assert.Equal(t, 3, s.Slots()[0].Booked)
	assert.Len(t, s.Slots()[0].Schedules, 1)

	require.Len(t, pub.envs, 1)
	assert.Equal(t, events.EventAvailabilityChanged, pub.envs[0].EventType)

	require.NoError(t, s.DeleteSlot(ctx, 1))
	assert.Len(t, s.Slots(), 1)
}

func TestCourseOperations(t *testing.T) {
	b := &fakeBackend{course: model.Course{ID: 4, Name: "Amigurumi", Price: decimal.NewFromInt(20),
		Slots: []model.Slot{{ID: 8}}}}
	s := NewStore(model.KindCourse, b, signedIn())
	ctx := context.Background()

	c, err := s.FetchCourse(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Amigurumi", c.Name)
	assert.Len(t, s.Slots(), 1)

	assert.ErrorIs(t, s.UpdateCoursePrice(ctx, 4, decimal.NewFromInt(-1)), ErrInvalidPrice)
	require.NoError(t, s.UpdateCoursePrice(ctx, 4, decimal.RequireFromString("25.50")))
	img, err := s.AddCourseImage(ctx, 4, "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)

	got, ok := s.Course()
	require.True(t, ok)
	assert.Equal(t, "25.5", got.Price.String())
	require.Len(t, got.Images, 1)

	require.NoError(t, s.DeleteCourseImage(ctx, 4, img.ID))
	got, _ = s.Course()
	assert.Empty(t, got.Images)
}

func TestKindGuards(t *testing.T) {
	ctx := context.Background()
	services := NewStore(model.KindService, &fakeBackend{}, signedIn())
	_, err := services.FetchCourse(ctx, 1)
	assert.ErrorIs(t, err, ErrWrongKind)

	courses := NewStore(model.KindCourse, &fakeBackend{}, signedIn())
	assert.ErrorIs(t, courses.UpdateServiceDescription(ctx, 1, "x"), ErrWrongKind)
}

func TestServiceDescription(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewStore(model.KindService, &fakeBackend{}, signedIn(), WithPublisher(pub, "test"))
	ctx := context.Background()

	require.NoError(t, s.UpdateServiceDescription(ctx, 2, "Clases de tejido"))
	d, ok := s.Description(2)
	require.True(t, ok)
	assert.Equal(t, "Clases de tejido", d)
	require.Len(t, pub.envs, 1)
	assert.Equal(t, events.EventServiceDescriptionChanged, pub.envs[0].EventType)

	require.NoError(t, s.UpdateServiceLinks(ctx, model.Service{ID: 2, WhatsappURL: "https://wa.me/1"}))
}

func TestPushReducers(t *testing.T) {
	b := &fakeBackend{
		reservations: []model.Reservation{{ID: 1, Status: model.ReservationPending}},
		slots:        []model.Slot{{ID: 3, Status: model.SlotAvailable}},
	}
	s := NewStore(model.KindCourse, b, signedIn())
	ctx := context.Background()
	_, _ = s.FetchAll(ctx)
	_, _ = s.FetchSlots(ctx, 1, model.SlotFilter{})

	assert.True(t, s.ApplySlotStatus(3, model.SlotBooked))
	assert.False(t, s.ApplySlotStatus(4, model.SlotBooked))
	assert.True(t, s.ApplyReservationStatus(1, model.ReservationCompleted))
	assert.False(t, s.ApplyReservationStatus(2, model.ReservationCompleted))
	s.ApplyDescription(9, "nueva")

	assert.Equal(t, model.SlotBooked, s.Slots()[0].Status)
	got, _ := s.Reservation(1)
	assert.Equal(t, model.ReservationCompleted, got.Status)
	d, _ := s.Description(9)
	assert.Equal(t, "nueva", d)

	s.Reset()
	assert.Empty(t, s.Reservations())
	assert.Empty(t, s.Slots())
}
