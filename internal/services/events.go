package services

import (
	"context"

	"github.com/dmitrijs2005/safekeeper/internal/models"
)

// Archiver stores a batch of events off-device and returns the batch ID.
type Archiver interface {
	Archive(ctx context.Context, evs []models.Event) (string, error)
}

// LogEvent appends an event, overwriting the oldest entry when the log is
// full.
func (c *SecurityContext) LogEvent(ctx context.Context, t models.EventType, userIndex uint8) error {
	if _, err := c.events.Append(t, userIndex); err != nil {
		c.log.Error(ctx, "event log append failed", "event", t.String(), "error", err)
		return err
	}
	return nil
}

// ClearEventLog wipes the log. The clear itself is not logged.
func (c *SecurityContext) ClearEventLog(ctx context.Context) error {
	s, err := c.authorize(models.PermClearLog)
	if err != nil {
		return err
	}
	if err := c.events.Clear(); err != nil {
		return err
	}
	c.log.Info(ctx, "event log cleared", "slot", s.Slot)
	return nil
}

// GetLastEvent returns the type of the newest entry, or EventNone.
func (c *SecurityContext) GetLastEvent() (models.EventType, error) {
	ev, ok, err := c.events.Last()
	if err != nil || !ok {
		return models.EventNone, err
	}
	return ev.Type, nil
}

// Events returns the log oldest first. Needs a session with read rights.
func (c *SecurityContext) Events() ([]models.Event, error) {
	if _, err := c.authorize(models.PermRead); err != nil {
		return nil, err
	}
	return c.events.List()
}

// ArchiveEvents copies the current log to a. The device log is left as is.
func (c *SecurityContext) ArchiveEvents(ctx context.Context, a Archiver) (string, int, error) {
	if _, err := c.authorize(models.PermRead); err != nil {
		return "", 0, err
	}
	evs, err := c.events.List()
	if err != nil {
		return "", 0, err
	}
	batch, err := a.Archive(ctx, evs)
	if err != nil {
		return "", 0, err
	}
	c.log.Info(ctx, "events archived", "batch", batch, "count", len(evs))
	return batch, len(evs), nil
}
