package roster

import (
	"bytes"
	"encoding/csv"
	"io"
	"time"

	"github.com/andefred/eldsal/app/models"
	"github.com/andefred/eldsal/internal/pkg/fees"
)

// FileName is the attachment name of a roster download.
const FileName = "EldsalMemberList.csv"

const ContentType = "text/csv; charset=utf-8"

// utf8BOM makes spreadsheet programs read the file as UTF-8.
const utf8BOM = "\ufeff"

// Header is the column row of a roster export.
var Header = []string{
	"First name",
	"Surname",
	"Email",
	"Birth date",
	"Phone number",
	"Address",
	"Address (line 2)",
	"Postal code",
	"City",
	"Country",
	"MS payed",
	"MS period start",
	"MS period end",
	"MS interval",
	"MS amount",
	"MS amount / year",
	"MS currency",
	"MS payment method",
	"HC payed",
	"HC period start",
	"HC period end",
	"HC interval",
	"HC amount",
	"HC amount / month",
	"HC currency",
	"House card payment method",
}

// Row projects one member and their derived fee states onto the roster columns.
func Row(m *models.Member, p fees.Payments) []string {
	row := make([]string, 0, len(Header))
	row = append(row,
		m.GivenName,
		m.FamilyName,
		m.Email,
		m.BirthDate,
		m.PhoneNumber,
		m.AddressLine1,
		m.AddressLine2,
		m.PostalCode,
		m.City,
		m.Country,
	)
	row = append(row, p.Membership.Columns()...)
	row = append(row, p.Housecard.Columns()...)
	return row
}

// WriteCSV writes the roster of members, in the given order, with fee states
// derived at now.
func WriteCSV(w io.Writer, members []models.Member, now time.Time) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for i := range members {
		m := &members[i]
		if err := cw.Write(Row(m, fees.DerivePayments(m.Metadata(), now))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Render returns the complete roster file.
func Render(members []models.Member, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, members, now); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
