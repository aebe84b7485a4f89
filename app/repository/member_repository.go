package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andefred/eldsal/app/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// memberRepository implements the MemberRepository interface
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository instance
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// GetBySubject retrieves a member by the identity provider subject
func (r *memberRepository) GetBySubject(subject string) (*models.Member, error) {
	var member models.Member
	err := r.db.Where("subject = ?", subject).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) Provision(member *models.Member) error {
	if strings.TrimSpace(member.Subject) == "" {
		return fmt.Errorf("provision member: subject is required")
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "subject"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"connection",
			"email",
			"picture",
			"last_login_at",
			"updated_at",
		}),
	}).Create(member).Error; err != nil {
		return fmt.Errorf("provision member %s: %w", member.Subject, err)
	}

	return r.db.Where("subject = ?", member.Subject).First(member).Error
}

// ListByConnection returns the members of one identity connection sorted by
// display name, ignoring case.
func (r *memberRepository) ListByConnection(connection string) ([]models.Member, error) {
	var members []models.Member
	if err := r.db.Where("`connection` = ?", connection).Find(&members).Error; err != nil {
		return nil, err
	}
	SortByName(members)
	return members, nil
}

// UpdateProfile stores a validated profile update for the member
func (r *memberRepository) UpdateProfile(subject string, update *models.ProfileUpdate) (*models.Member, error) {
	member, err := r.GetBySubject(subject)
	if err != nil {
		return nil, err
	}
	update.Apply(member)

	err = r.db.Model(member).Select(
		"name", "given_name", "family_name", "birth_date", "phone_number",
		"address_line1", "address_line2", "postal_code", "city", "country",
	).Updates(member).Error
	if err != nil {
		return nil, fmt.Errorf("update profile %s: %w", subject, err)
	}
	return member, nil
}

func (r *memberRepository) MergeAppMetadata(subject string, set map[string]any, unset []string) (*models.Member, error) {
	var member models.Member
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("subject = ?", subject).
			First(&member).Error; err != nil {
			return err
		}

		merged := datatypes.JSONMap{}
		for k, v := range member.AppMetadata {
			merged[k] = v
		}
		for _, k := range unset {
			delete(merged, k)
		}
		for k, v := range set {
			merged[k] = v
		}
		member.AppMetadata = merged

		return tx.Model(&member).Update("app_metadata", merged).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByAppMetadata finds the member whose app metadata holds value under key
func (r *memberRepository) FindByAppMetadata(key, value string) (*models.Member, error) {
	var member models.Member
	err := r.db.Where(datatypes.JSONQuery("app_metadata").Equals(value, key)).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// SortByName orders members by display name, case-insensitively. Members
// without a name sort first.
func SortByName(members []models.Member) {
	sort.SliceStable(members, func(i, j int) bool {
		return strings.ToUpper(members[i].DisplayName()) < strings.ToUpper(members[j].DisplayName())
	})
}
