package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	personstore "intake/internal/registration/store/person"
	"intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/phone"
)

func newPersonsService(store *personstore.MemoryStore, plan phone.Plan) *Persons {
	return NewPersons(store, NewResolver(store, plan))
}

func TestPersonsUpdateContact(t *testing.T) {
	ctx := context.Background()
	plan := phone.DefaultPlan()

	t.Run("updates only the provided fields", func(t *testing.T) {
		store := personstore.NewMemory(plan)
		p := seedPerson(t, store, "Jane", "Doe", "2000-01-01", "jane@example.com", "09171234567")

		updated, err := newPersonsService(store, plan).UpdateContact(ctx, p.ID, ContactUpdate{
			Address:  "12 Mabini St",
			Position: "staff",
		})
		require.NoError(t, err)
		assert.Equal(t, "12 Mabini St", updated.Address)
		assert.Equal(t, "staff", updated.Position)
		assert.Equal(t, "jane@example.com", updated.Email, "untouched field keeps its value")
		assert.Equal(t, "09171234567", updated.Phone)

		stored, err := store.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "12 Mabini St", stored.Address)
	})

	t.Run("normalizes a new email", func(t *testing.T) {
		store := personstore.NewMemory(plan)
		p := seedPerson(t, store, "Jane", "Doe", "2000-01-01", "jane@example.com", "")

		updated, err := newPersonsService(store, plan).UpdateContact(ctx, p.ID, ContactUpdate{
			Email: "  Jane.New@Example.COM ",
		})
		require.NoError(t, err)
		assert.Equal(t, "jane.new@example.com", updated.Email)
	})

	t.Run("keeping your own email is not a collision", func(t *testing.T) {
		store := personstore.NewMemory(plan)
		p := seedPerson(t, store, "Jane", "Doe", "2000-01-01", "jane@example.com", "09171234567")

		updated, err := newPersonsService(store, plan).UpdateContact(ctx, p.ID, ContactUpdate{
			Email: "JANE@example.com",
			Phone: "+639171234567",
		})
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", updated.Email)
	})

	t.Run("colliding with another person is rejected", func(t *testing.T) {
		store := personstore.NewMemory(plan)
		seedPerson(t, store, "Alex", "Reyes", "1995-06-15", "alex@example.com", "09991234567")
		p := seedPerson(t, store, "Jane", "Doe", "2000-01-01", "jane@example.com", "09171234567")

		_, err := newPersonsService(store, plan).UpdateContact(ctx, p.ID, ContactUpdate{
			Phone: "+639991234567",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		stored, findErr := store.FindByID(ctx, p.ID)
		require.NoError(t, findErr)
		assert.Equal(t, "09171234567", stored.Phone, "a rejected update must not persist")
	})

	t.Run("unknown person", func(t *testing.T) {
		store := personstore.NewMemory(plan)
		_, err := newPersonsService(store, plan).UpdateContact(ctx, domain.NewPersonID(), ContactUpdate{Address: "x"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
