package contacts

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
)

func setupContactsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS contacts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  city TEXT NOT NULL,
  street TEXT NOT NULL,
  house TEXT,
  structure TEXT,
  building TEXT,
  apartment TEXT,
  phone TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)

	return db
}

func newTestContactsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func sampleInput(city string) CreateContactInput {
	return CreateContactInput{
		City:   city,
		Street: "Lenina",
		House:  "5",
		Phone:  "+7 900 000 00 00",
	}
}

func TestCreateAndListContacts(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newTestContactsService(t, db)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, sampleInput("Moscow"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Moscow", list[0].City)

	other, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCreateContactCap(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newTestContactsService(t, db)
	ctx := context.Background()

	for i := 0; i < maxContactsPerUser; i++ {
		_, err := svc.Create(ctx, 1, sampleInput(fmt.Sprintf("City %d", i)))
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, 1, sampleInput("One Too Many"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	// The cap is per user, another user still has room.
	_, err = svc.Create(ctx, 2, sampleInput("Kazan"))
	require.NoError(t, err)
}

func TestUpdateContactOwnership(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newTestContactsService(t, db)
	ctx := context.Background()

	mine, err := svc.Create(ctx, 1, sampleInput("Moscow"))
	require.NoError(t, err)

	city := "Tver"
	updated, err := svc.Update(ctx, 1, UpdateContactInput{ID: mine.ID, City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Tver", updated.City)
	assert.Equal(t, "Lenina", updated.Street)

	// Another user addressing the same id gets NOT_FOUND, row untouched.
	intruder := "Hacked"
	_, err = svc.Update(ctx, 2, UpdateContactInput{ID: mine.ID, City: &intruder})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Tver", list[0].City)
}

func TestDeleteContactsByIDList(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newTestContactsService(t, db)
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, sampleInput("Moscow"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, 1, sampleInput("Kazan"))
	require.NoError(t, err)
	foreign, err := svc.Create(ctx, 2, sampleInput("Omsk"))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, 1, fmt.Sprintf("%d,abc,%d,%d", first.ID, second.ID, foreign.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
