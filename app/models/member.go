package models

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

const (
	ROLE_ADMIN     = "admin"
	ROLE_DEVELOPER = "dev"
)

// Member mirrors one account of the identity provider. Payment records and
// checkout links live in AppMetadata, keyed per fee flavour.
type Member struct {
	ID           uint              `gorm:"primaryKey" json:"-"`
	Subject      string            `gorm:"type:varchar(191);not null;uniqueIndex" json:"user_id"`
	Connection   string            `gorm:"type:varchar(100);not null;default:'';index" json:"-"`
	Name         string            `gorm:"type:varchar(255);default:''" json:"name"`
	GivenName    string            `gorm:"type:varchar(150);default:''" json:"given_name"`
	FamilyName   string            `gorm:"type:varchar(150);default:''" json:"family_name"`
	Email        string            `gorm:"type:varchar(200);default:'';index" json:"email"`
	Picture      string            `gorm:"type:varchar(500);default:''" json:"picture"`
	BirthDate    string            `gorm:"type:varchar(10);default:''" json:"birth_date"`
	PhoneNumber  string            `gorm:"type:varchar(50);default:''" json:"phone_number"`
	AddressLine1 string            `gorm:"type:varchar(255);default:''" json:"address_line_1"`
	AddressLine2 string            `gorm:"type:varchar(255);default:''" json:"address_line_2"`
	PostalCode   string            `gorm:"type:varchar(20);default:''" json:"postal_code"`
	City         string            `gorm:"type:varchar(100);default:''" json:"city"`
	Country      string            `gorm:"type:varchar(100);default:''" json:"country"`
	Roles        string            `gorm:"type:varchar(255);default:''" json:"roles"`
	AppMetadata  datatypes.JSONMap `gorm:"type:json" json:"-"`
	LastLoginAt  *time.Time        `gorm:"type:timestamp;default:null" json:"-"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"-"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"-"`
}

// DisplayName falls back to the given and family name when no name is set.
func (m *Member) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	if m.GivenName == "" && m.FamilyName == "" {
		return ""
	}
	return strings.TrimSpace(m.GivenName + " " + m.FamilyName)
}

// RoleList splits the comma separated role string, ignoring blanks.
func (m *Member) RoleList() []string {
	parts := strings.Split(strings.ReplaceAll(m.Roles, " ", ""), ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

func (m *Member) HasRole(role string) bool {
	for _, r := range m.RoleList() {
		if r == role {
			return true
		}
	}
	return false
}

func (m *Member) IsAdmin() bool { return m.HasRole(ROLE_ADMIN) }

func (m *Member) IsDeveloper() bool { return m.HasRole(ROLE_DEVELOPER) }

// Metadata returns the app metadata as a plain map, never nil.
func (m *Member) Metadata() map[string]any {
	if m.AppMetadata == nil {
		return map[string]any{}
	}
	return map[string]any(m.AppMetadata)
}

// ProfileUpdate is the set of fields a member may change about themselves.
type ProfileUpdate struct {
	GivenName    string `json:"given_name" validate:"required,max=150"`
	FamilyName   string `json:"family_name" validate:"required,max=150"`
	BirthDate    string `json:"birth_date" validate:"required,max=10"`
	PhoneNumber  string `json:"phone_number" validate:"required,max=50"`
	AddressLine1 string `json:"address_line_1" validate:"required,max=255"`
	AddressLine2 string `json:"address_line_2" validate:"max=255"`
	PostalCode   string `json:"postal_code" validate:"required,max=20"`
	City         string `json:"city" validate:"required,max=100"`
	Country      string `json:"country" validate:"required,max=100"`
}

var profileMessages = map[string]string{
	"GivenName":    "First name",
	"FamilyName":   "Surname",
	"BirthDate":    "Birth date",
	"PhoneNumber":  "Phone number",
	"AddressLine1": "Address",
	"AddressLine2": "Address (line 2)",
	"PostalCode":   "Postal code",
	"City":         "City",
	"Country":      "Country",
}

// Validate returns an error whose message names the first invalid field.
func (p *ProfileUpdate) Validate() error {
	v := validator.New()

	err := v.Struct(p)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	label := profileMessages[verrs[0].StructField()]
	if verrs[0].Tag() == "required" {
		return errors.New(label + " is required")
	}
	return errors.New(label + " is too long")
}

// Apply copies the update onto the member and recomputes the display name.
func (p *ProfileUpdate) Apply(m *Member) {
	m.GivenName = p.GivenName
	m.FamilyName = p.FamilyName
	m.Name = p.GivenName + " " + p.FamilyName
	m.BirthDate = p.BirthDate
	m.PhoneNumber = p.PhoneNumber
	m.AddressLine1 = p.AddressLine1
	m.AddressLine2 = p.AddressLine2
	m.PostalCode = p.PostalCode
	m.City = p.City
	m.Country = p.Country
}
