package booking

import "github.com/ariefcatur/go-storefront/internal/model"

func (s *Store) Reservations() []model.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reservation, len(s.reservations))
	copy(out, s.reservations)
	return out
}

func (s *Store) Reservation(id int64) (model.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.reservationIndex(id); i >= 0 {
		return s.reservations[i], true
	}
	return model.Reservation{}, false
}

func (s *Store) Slots() []model.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Course returns the last course loaded with FetchCourse.
func (s *Store) Course() (model.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.course == nil {
		return model.Course{}, false
	}
	return *s.course, true
}

func (s *Store) Description(serviceID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.descriptions[serviceID]
	return d, ok
}

func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// CalendarEvents projects the loaded slots for a calendar view.
func (s *Store) CalendarEvents() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CalendarEvent, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, sl.CalendarEvent())
	}
	return out
}

func (s *Store) ApplySlotStatus(slotID int64, status model.SlotStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.slotIndex(slotID)
	if i < 0 {
		return false
	}
	s.slots[i].Status = status
	return true
}

func (s *Store) ApplyReservationStatus(id int64, status model.ReservationStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.reservationIndex(id)
	if i < 0 {
		return false
	}
	s.reservations[i].Status = status
	return true
}

// ApplyDescription records a service description. Descriptions are kept even
// for services not loaded yet so a later view shows the latest text.
func (s *Store) ApplyDescription(serviceID int64, description string) {
	s.mu.Lock()
	s.descriptions[serviceID] = description
	s.mu.Unlock()
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.reservations = nil
	s.slots = nil
	s.subject = 0
	s.course = nil
	s.errMsg = ""
	s.mu.Unlock()
}
