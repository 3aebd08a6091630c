package auditlog_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/auditlog"
)

type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

type account struct {
	Timestamps
	ID        int64     `db:"id"`
	Email     string    `json:"email_address,omitempty"`
	Nickname  string    `audit:"nick" db:"nickname"`
	Password  string    `db:"-"`
	BirthDate time.Time `db:"birth_date"`
	LoginIP   string
	internal  string
}

func TestFromStruct(t *testing.T) {
	t.Parallel()

	born := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	a := account{
		Timestamps: Timestamps{CreatedAt: born},
		ID:         1,
		Email:      "a@x",
		Nickname:   "ann",
		Password:   "secret",
		BirthDate:  born,
		LoginIP:    "127.0.0.1",
		internal:   "hidden",
	}

	got, err := auditlog.FromStruct(&a)
	require.NoError(t, err)
	assert.Equal(t, auditlog.Snapshot{
		"created_at":    born,
		"updated_at":    time.Time{},
		"id":            int64(1),
		"email_address": "a@x",
		"nick":          "ann",
		"birth_date":    born,
		"login_ip":      "127.0.0.1",
	}, got)

	byValue, err := auditlog.FromStruct(a)
	require.NoError(t, err)
	assert.Equal(t, got, byValue)
}

type base struct {
	ID      int64 `db:"id"`
	Version int
	secret  string
}

type member struct {
	base
	Name string `db:"name"`
}

func TestFromStruct_UnexportedEmbedded(t *testing.T) {
	t.Parallel()

	got, err := auditlog.FromStruct(member{base: base{ID: 9, Version: 2, secret: "x"}, Name: "ann"})
	require.NoError(t, err)
	assert.Equal(t, auditlog.Snapshot{"id": int64(9), "version": 2, "name": "ann"}, got)
}

func TestFromStruct_Errors(t *testing.T) {
	t.Parallel()

	var nilPtr *account
	for _, in := range []any{nil, nilPtr, 42, map[string]any{"a": 1}} {
		_, err := auditlog.FromStruct(in)
		assert.Error(t, err, "%#v", in)
	}
}

func TestScanRows(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows := sqlmock.NewRows([]string{"id", "name", "settings", "avatar"}).
		AddRow(int64(1), "ann", []byte(`{"theme":"dark"}`), []byte("not json")).
		AddRow(int64(2), "bob", nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(rows)

	rs, err := db.Query("SELECT id, name, settings, avatar FROM users")
	require.NoError(t, err)

	got, err := auditlog.ScanRows(rs)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, auditlog.Snapshot{
		"id":       int64(1),
		"name":     "ann",
		"settings": map[string]any{"theme": "dark"},
		"avatar":   "not json",
	}, got[0])
	assert.Equal(t, auditlog.Snapshot{
		"id":       int64(2),
		"name":     "bob",
		"settings": nil,
		"avatar":   nil,
	}, got[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRows_KeepsNumericText(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows := sqlmock.NewRows([]string{"amount", "flag", "label", "meta"}).
		AddRow([]byte("12345678901234567.89"), []byte("true"), []byte(`"quoted"`), []byte(`{"total":12345678901234567.89,"n":[1,2]}`))
	mock.ExpectQuery("SELECT (.+) FROM invoices").WillReturnRows(rows)

	rs, err := db.Query("SELECT amount, flag, label, meta FROM invoices")
	require.NoError(t, err)

	got, err := auditlog.ScanRows(rs)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, auditlog.Snapshot{
		"amount": "12345678901234567.89",
		"flag":   "true",
		"label":  `"quoted"`,
		"meta": map[string]any{
			"total": json.Number("12345678901234567.89"),
			"n":     []any{json.Number("1"), json.Number("2")},
		},
	}, got[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshot_Clone(t *testing.T) {
	t.Parallel()

	s := auditlog.Snapshot{"a": 1}
	c := s.Clone()
	c["b"] = 2
	assert.Len(t, s, 1)

	var empty auditlog.Snapshot
	assert.NotNil(t, empty.Clone())
}
