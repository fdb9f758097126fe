// Package users is the credential store: the fixed-capacity user table of
// the persistent map.
package users

import "github.com/dmitrijs2005/safekeeper/internal/models"

// Repository gives slot-level access to the user table. Occupied slots are
// always [0, Count()); deleting a slot compacts the table.
type Repository interface {
	Count() (int, error)
	Capacity() int
	Get(slot int) (*models.User, error)
	List() ([]models.User, error)
	FindByName(name []byte) (*models.User, error)
	Exists(name []byte) (bool, error)
	Create(u models.User) (*models.User, error)
	Update(u models.User) error
	Delete(slot int) error
	Root() (*models.User, error)
}
