package services

import (
	"MediCare/models"
	"MediCare/testfixtures"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	caregiver := testfixtures.CreateUser(t, env.db, "carl@example.com", "Carl", models.RoleCaregiver, "")

	linked, err := env.links.CreateLink(ctx, "  ADA@example.com ", caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, linked.ID)

	// Linking twice is a no-op.
	_, err = env.links.CreateLink(ctx, "ada@example.com", caregiver.ID)
	require.NoError(t, err)

	patients, err := env.links.ListLinkedPatients(ctx, caregiver.ID)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, patient.ID, patients[0].ID)

	caregivers, err := env.links.ListLinkedCaregivers(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, caregivers, 1)
	assert.Equal(t, caregiver.ID, caregivers[0].ID)
	assert.Equal(t, models.RoleCaregiver, caregivers[0].Role.Name)
}

func TestCreateLink_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	caregiver := testfixtures.CreateUser(t, env.db, "carl@example.com", "Carl", models.RoleCaregiver, "")
	other := testfixtures.CreateUser(t, env.db, "cora@example.com", "Cora", models.RoleCaregiver, "")

	_, err := env.links.CreateLink(ctx, "not-an-email", caregiver.ID)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = env.links.CreateLink(ctx, "nobody@example.com", caregiver.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Caregivers cannot be linked as patients.
	_, err = env.links.CreateLink(ctx, other.Email, caregiver.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCanAccessPatientData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patient := testfixtures.CreateUser(t, env.db, "ada@example.com", "Ada", models.RolePatient, "")
	otherPatient := testfixtures.CreateUser(t, env.db, "bob@example.com", "Bob", models.RolePatient, "")
	linked := testfixtures.CreateUser(t, env.db, "carl@example.com", "Carl", models.RoleCaregiver, "")
	stranger := testfixtures.CreateUser(t, env.db, "cora@example.com", "Cora", models.RoleCaregiver, "")
	testfixtures.Link(t, env.db, patient.ID, linked.ID)

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"patient themself", Actor{UserID: patient.ID, Role: models.RolePatient}, true},
		{"linked caregiver", Actor{UserID: linked.ID, Role: models.RoleCaregiver}, true},
		{"unlinked caregiver", Actor{UserID: stranger.ID, Role: models.RoleCaregiver}, false},
		{"another patient", Actor{UserID: otherPatient.ID, Role: models.RolePatient}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := env.links.CanAccessPatientData(ctx, tt.actor, patient.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
