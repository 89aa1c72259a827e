package booking

import (
	"context"

	"github.com/nekogravitycat/resort-booking-backend/internal/audit"
	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/notify"
)

// effects collects side effects inside a unit of work. They run only after
// commit, and a retried attempt starts from an empty set.
type effects struct {
	notes   []notify.Message
	audits  []audit.Entry
	touched map[availability.Kind]map[string]struct{}
}

func (e *effects) notify(msg notify.Message) {
	e.notes = append(e.notes, msg)
}

func (e *effects) audit(entry audit.Entry) {
	e.audits = append(e.audits, entry)
}

// touch marks the capacity resources of lines as changed.
func (e *effects) touch(lines Lines) {
	if e.touched == nil {
		e.touched = make(map[availability.Kind]map[string]struct{})
	}
	add := func(kind availability.Kind, id string) {
		if e.touched[kind] == nil {
			e.touched[kind] = make(map[string]struct{})
		}
		e.touched[kind][id] = struct{}{}
	}
	for _, r := range lines.Rooms {
		add(availability.KindRoom, r.RoomID)
	}
	for _, c := range lines.Cottages {
		add(availability.KindCottage, c.CottageID)
	}
}

func (s *service) flush(ctx context.Context, e *effects) {
	for _, entry := range e.audits {
		audit.Safe(ctx, s.audit, s.log, entry)
	}
	for _, msg := range e.notes {
		notify.Safe(ctx, s.notifier, s.log, msg)
	}
	if s.cache == nil {
		return
	}
	for kind, ids := range e.touched {
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		if err := s.cache.Invalidate(ctx, kind, list...); err != nil {
			s.log.WithError(err).WithField("kind", kind).Warn("availability cache invalidation failed")
		}
	}
}
