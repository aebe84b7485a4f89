package repository

import (
	"github.com/andefred/eldsal/app/models"
	"gorm.io/gorm"
)

// MemberRepository defines the interface for member-related database operations
type MemberRepository interface {
	GetBySubject(subject string) (*models.Member, error)
	// Provision creates the member on first sight and refreshes identity fields afterwards.
	Provision(member *models.Member) error
	ListByConnection(connection string) ([]models.Member, error)
	UpdateProfile(subject string, update *models.ProfileUpdate) (*models.Member, error)
	// MergeAppMetadata replaces only the given top-level keys, inside a row lock.
	MergeAppMetadata(subject string, set map[string]any, unset []string) (*models.Member, error)
	FindByAppMetadata(key, value string) (*models.Member, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Member MemberRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Member: NewMemberRepository(db),
	}
}
