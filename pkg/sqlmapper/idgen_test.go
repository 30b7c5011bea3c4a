package sqlmapper

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialGenerator(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	conn := NewConnection(db, nil)
	tx := beginTx(t, mock, conn)

	mock.ExpectQuery("SELECT last_insert_rowid()").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	g := &SerialGenerator{}
	id, err := g.Generate(context.Background(), nil, tx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(0), g.Empty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSerialGeneratorCustomQuery(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	conn := NewConnection(db, nil)
	tx := beginTx(t, mock, conn)

	mock.ExpectQuery("SELECT lastval()").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	g := &SerialGenerator{Query: "SELECT lastval()"}
	id, err := g.Generate(context.Background(), nil, tx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestSerialGeneratorQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	conn := NewConnection(db, nil)
	tx := beginTx(t, mock, conn)

	mock.ExpectQuery("SELECT last_insert_rowid").WillReturnError(assert.AnError)

	g := &SerialGenerator{}
	_, err = g.Generate(context.Background(), nil, tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read generated id")
}

func TestUUIDGenerator(t *testing.T) {
	g := UUIDGenerator{}

	id, err := g.Generate(context.Background(), nil, nil)
	require.NoError(t, err)

	s, ok := id.(string)
	require.True(t, ok)
	_, err = uuid.Parse(s)
	assert.NoError(t, err)

	other, err := g.Generate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	assert.Equal(t, "", g.Empty())
}
