package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestMemberRoles(t *testing.T) {
	m := &Member{Roles: "dev, admin ,,"}

	assert.Equal(t, []string{"dev", "admin"}, m.RoleList())
	assert.True(t, m.IsAdmin())
	assert.True(t, m.IsDeveloper())

	m.Roles = "administrator"
	assert.False(t, m.IsAdmin())

	m.Roles = ""
	assert.Empty(t, m.RoleList())
	assert.False(t, m.IsDeveloper())
}

func TestMemberDisplayName(t *testing.T) {
	assert.Equal(t, "Ada L", (&Member{Name: "Ada L", GivenName: "X"}).DisplayName())
	assert.Equal(t, "Ada Lovelace", (&Member{GivenName: "Ada", FamilyName: "Lovelace"}).DisplayName())
	assert.Equal(t, "Ada", (&Member{GivenName: "Ada"}).DisplayName())
	assert.Equal(t, "", (&Member{}).DisplayName())
}

func TestMemberMetadataNeverNil(t *testing.T) {
	m := &Member{}
	assert.NotNil(t, m.Metadata())

	m.AppMetadata = datatypes.JSONMap{"roles": "admin"}
	assert.Equal(t, "admin", m.Metadata()["roles"])
}

func validProfile() ProfileUpdate {
	return ProfileUpdate{
		GivenName:    "Ada",
		FamilyName:   "Lovelace",
		BirthDate:    "1815-12-10",
		PhoneNumber:  "070-123 45 67",
		AddressLine1: "Storgatan 1",
		PostalCode:   "111 22",
		City:         "Stockholm",
		Country:      "Sweden",
	}
}

func TestProfileUpdateValidate(t *testing.T) {
	p := validProfile()
	require.NoError(t, p.Validate())

	tests := []struct {
		edit func(p *ProfileUpdate)
		want string
	}{
		{func(p *ProfileUpdate) { p.GivenName = "" }, "First name is required"},
		{func(p *ProfileUpdate) { p.FamilyName = "" }, "Surname is required"},
		{func(p *ProfileUpdate) { p.BirthDate = "" }, "Birth date is required"},
		{func(p *ProfileUpdate) { p.PhoneNumber = "" }, "Phone number is required"},
		{func(p *ProfileUpdate) { p.AddressLine1 = "" }, "Address is required"},
		{func(p *ProfileUpdate) { p.PostalCode = "" }, "Postal code is required"},
		{func(p *ProfileUpdate) { p.City = "" }, "City is required"},
		{func(p *ProfileUpdate) { p.Country = "" }, "Country is required"},
		{func(p *ProfileUpdate) { p.GivenName = ""; p.Country = "" }, "First name is required"},
	}

	for _, tt := range tests {
		p := validProfile()
		tt.edit(&p)
		err := p.Validate()
		if err == nil || err.Error() != tt.want {
			t.Fatalf("Validate() = %v, want %q", err, tt.want)
		}
	}
}

func TestProfileUpdateApply(t *testing.T) {
	p := validProfile()
	p.AddressLine2 = "c/o Babbage"
	m := &Member{Name: "old"}

	p.Apply(m)

	assert.Equal(t, "Ada Lovelace", m.Name)
	assert.Equal(t, "c/o Babbage", m.AddressLine2)
	assert.Equal(t, "Sweden", m.Country)
}
