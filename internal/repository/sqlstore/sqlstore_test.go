package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/repository/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDialect switches placeholder and id styles for tests
type fakeDialect struct {
	numbered bool
}

func (d fakeDialect) Name() string               { return "fake" }
func (d fakeDialect) NumberedPlaceholders() bool { return d.numbered }
func (d fakeDialect) ReturningID() bool          { return d.numbered }
func (d fakeDialect) Fold(expr string) string    { return "LOWER(" + expr + ")" }
func (d fakeDialect) TranslateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return db.ErrNoRecord
	}
	return err
}

func newMockConn(t *testing.T, numbered bool) (conn, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return conn{db: mockDB, d: fakeDialect{numbered: numbered}}, mock
}

func TestRebind(t *testing.T) {
	c := conn{d: fakeDialect{numbered: true}}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)", c.rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)"))

	c = conn{d: fakeDialect{}}
	assert.Equal(t, "a = ?", c.rebind("a = ?"))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestTableWhere(t *testing.T) {
	tests := []struct {
		name      string
		query     domain.ListQuery
		wantSQL   string
		wantArgs  []any
		wantError error
	}{
		{name: "empty", query: domain.ListQuery{}},
		{
			name:     "filters are sorted",
			query:    domain.ListQuery{Filters: map[string]int64{"type_id": 2, "city_id": 5}},
			wantSQL:  " WHERE e.city_id = ? AND e.establishment_type_id = ?",
			wantArgs: []any{int64(5), int64(2)},
		},
		{
			name:     "search spans columns",
			query:    domain.ListQuery{Q: "  ESP "},
			wantSQL:  " WHERE (LOWER(e.name) LIKE LOWER(?) ESCAPE '!' OR LOWER(e.acronym) LIKE LOWER(?) ESCAPE '!')",
			wantArgs: []any{"%ESP%", "%ESP%"},
		},
		{
			name:     "search wildcards are literal",
			query:    domain.ListQuery{Q: "100%_sure!"},
			wantSQL:  " WHERE (LOWER(e.name) LIKE LOWER(?) ESCAPE '!' OR LOWER(e.acronym) LIKE LOWER(?) ESCAPE '!')",
			wantArgs: []any{"%100!%!_sure!!%", "%100!%!_sure!!%"},
		},
		{
			name:      "unknown filter",
			query:     domain.ListQuery{Filters: map[string]int64{"password": 1}},
			wantError: db.ErrInvalidFilter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := establishmentTable.where(tt.query, fakeDialect{})
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, where)
			if diff := cmp.Diff(tt.wantArgs, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTableOrderBy(t *testing.T) {
	order, err := levelTable.orderBy("")
	require.NoError(t, err)
	assert.Equal(t, "l.sort_order ASC, l.id ASC", order)

	order, err = regionTable.orderBy("-name")
	require.NoError(t, err)
	assert.Equal(t, "r.name DESC, r.id ASC", order)

	order, err = authorizationTable.orderBy("")
	require.NoError(t, err)
	assert.Equal(t, "a.granted_at DESC, a.id ASC", order)

	_, err = regionTable.orderBy("id; DROP TABLE users")
	assert.ErrorIs(t, err, db.ErrInvalidSort)
}

func TestInsertReturningID(t *testing.T) {
	c, mock := newMockConn(t, true)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sectors (name) VALUES ($1) RETURNING id`)).
		WithArgs("Privé").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := c.insert(context.Background(), `INSERT INTO sectors (name) VALUES (?)`, "Privé")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLastInsertID(t *testing.T) {
	c, mock := newMockConn(t, false)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sectors (name) VALUES (?)`)).
		WithArgs("Public").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := c.insert(context.Background(), `INSERT INTO sectors (name) VALUES (?)`, "Public")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecAffectingNoRows(t *testing.T) {
	c, mock := newMockConn(t, false)
	mock.ExpectExec("DELETE FROM regions").WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := c.execAffecting(context.Background(), `DELETE FROM regions WHERE id = ?`, int64(9))
	assert.ErrorIs(t, err, db.ErrNoRecord)
}

func TestCatalogListPropagatesErrors(t *testing.T) {
	c, mock := newMockConn(t, false)
	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT COUNT").WillReturnError(boom)

	repo := newCatalogRepository(c, sectorTable)
	_, _, err := repo.List(context.Background(), domain.ListQuery{})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRejectsUnknownGrouping(t *testing.T) {
	c, _ := newMockConn(t, false)
	repo := &statsRepository{c: c}

	_, err := repo.CountGrouped(context.Background(), "users_per_password")
	assert.ErrorIs(t, err, db.ErrInvalidFilter)
}
