// Package events stores the bounded audit log of the persistent map.
package events

import "github.com/dmitrijs2005/safekeeper/internal/models"

// Repository is a fixed-capacity log. When full, appending overwrites the
// oldest entry.
type Repository interface {
	Append(t models.EventType, userIndex uint8) (models.Event, error)
	Last() (models.Event, bool, error)
	List() ([]models.Event, error)
	Clear() error
	Capacity() int
}
