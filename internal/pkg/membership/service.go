package membership

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/andefred/eldsal/app/models"
	"github.com/andefred/eldsal/app/repository"
	"github.com/andefred/eldsal/internal/pkg/fees"
	"github.com/andefred/eldsal/internal/pkg/metrics/counter"
	"github.com/andefred/eldsal/internal/pkg/roster"
)

// ClientObject is the member as served to the web client.
type ClientObject struct {
	UserID       string        `json:"user_id"`
	Picture      string        `json:"picture"`
	Name         string        `json:"name"`
	GivenName    string        `json:"given_name"`
	FamilyName   string        `json:"family_name"`
	Email        string        `json:"email"`
	BirthDate    string        `json:"birth_date"`
	PhoneNumber  string        `json:"phone_number"`
	AddressLine1 string        `json:"address_line_1"`
	AddressLine2 string        `json:"address_line_2"`
	PostalCode   string        `json:"postal_code"`
	City         string        `json:"city"`
	Country      string        `json:"country"`
	Roles        []string      `json:"roles"`
	Admin        bool          `json:"admin"`
	Developer    bool          `json:"developer"`
	Payments     fees.Payments `json:"payments"`
}

// ClientObjectOf builds the client object with fee states derived at now.
func ClientObjectOf(m *models.Member, now time.Time) ClientObject {
	return ClientObject{
		UserID:       m.Subject,
		Picture:      m.Picture,
		Name:         m.DisplayName(),
		GivenName:    m.GivenName,
		FamilyName:   m.FamilyName,
		Email:        m.Email,
		BirthDate:    m.BirthDate,
		PhoneNumber:  m.PhoneNumber,
		AddressLine1: m.AddressLine1,
		AddressLine2: m.AddressLine2,
		PostalCode:   m.PostalCode,
		City:         m.City,
		Country:      m.Country,
		Roles:        m.RoleList(),
		Admin:        m.IsAdmin(),
		Developer:    m.IsDeveloper(),
		Payments:     fees.DerivePayments(m.Metadata(), now),
	}
}

// Service serves member reads and the admin fee operations.
type Service struct {
	members    repository.MemberRepository
	connection string
	metrics    *counter.Metrics
	now        func() time.Time
}

// NewService creates a membership service. connection limits listings to
// members of one identity connection.
func NewService(members repository.MemberRepository, connection string, metrics *counter.Metrics) *Service {
	return &Service{
		members:    members,
		connection: connection,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (s *Service) clientObject(m *models.Member) ClientObject {
	obj := ClientObjectOf(m, s.now())
	s.metrics.ObserveStates(obj.Payments)
	return obj
}

// Me returns the client object of the member with the given subject.
func (s *Service) Me(subject string) (ClientObject, error) {
	m, err := s.members.GetBySubject(subject)
	if err != nil {
		return ClientObject{}, err
	}
	return s.clientObject(m), nil
}

// UpdateProfile validates and stores a member's own profile change.
func (s *Service) UpdateProfile(subject string, update *models.ProfileUpdate) (ClientObject, error) {
	if err := update.Validate(); err != nil {
		return ClientObject{}, &fees.FieldError{Field: "profile", Message: err.Error()}
	}
	m, err := s.members.UpdateProfile(subject, update)
	if err != nil {
		return ClientObject{}, err
	}
	return s.clientObject(m), nil
}

// List returns the client objects of the connection's members sorted by name.
func (s *Service) List() ([]ClientObject, error) {
	members, err := s.members.ListByConnection(s.connection)
	if err != nil {
		return nil, err
	}
	out := make([]ClientObject, 0, len(members))
	for i := range members {
		out = append(out, s.clientObject(&members[i]))
	}
	return out, nil
}

// ExportRoster writes the roster CSV of the connection's members to w.
func (s *Service) ExportRoster(w io.Writer) error {
	members, err := s.members.ListByConnection(s.connection)
	if err != nil {
		s.metrics.RosterExport("download", "error")
		return err
	}
	if err := roster.WriteCSV(w, members, s.now()); err != nil {
		s.metrics.RosterExport("download", "error")
		return fmt.Errorf("write roster: %w", err)
	}
	s.metrics.RosterExport("download", "ok")
	return nil
}

// SetFee validates an admin fee mutation and applies it to the member's
// flavour. Only the flavour's payment key is written. The returned state is
// derived from the stored record.
func (s *Service) SetFee(subject string, f fees.Flavour, req map[string]any) (fees.FeeState, error) {
	mutation, err := fees.ValidateMutation(req)
	if err != nil {
		s.metrics.FeeMutation(f, "rejected")
		return fees.FeeState{}, err
	}

	var m *models.Member
	outcome := "set"
	if mutation.Clear {
		outcome = "cleared"
		m, err = s.members.MergeAppMetadata(subject, nil, []string{f.PaymentKey()})
	} else {
		m, err = s.members.MergeAppMetadata(subject, map[string]any{f.PaymentKey(): mutation.Fact.Blob()}, nil)
	}
	if err != nil {
		s.metrics.FeeMutation(f, "failed")
		return fees.FeeState{}, err
	}
	s.metrics.FeeMutation(f, outcome)

	return fees.DeriveFlavour(m.Metadata(), f, s.now()), nil
}

// IsInputError reports whether err was caused by invalid client input.
func IsInputError(err error) bool {
	var fe *fees.FieldError
	return errors.As(err, &fe)
}
