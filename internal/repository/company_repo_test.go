package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/metrics_go_server/internal/testutil"
)

func TestCompanyRepository_GetByOwnerID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCompanyRepository(db)
	user := testutil.TestUser(t, db)
	first := testutil.TestCompany(t, db, user.ID)
	testutil.TestCompany(t, db, user.ID)

	found, err := repo.GetByOwnerID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.GetByOwnerID(user.ID + 100)
	assert.Error(t, err)

	all, err := repo.ListByOwner(user.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
}

func TestCompanyRepository_UpdateStripeSecret(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCompanyRepository(db)
	user := testutil.TestUser(t, db)
	company := testutil.TestCompany(t, db, user.ID)
	assert.False(t, company.HasStripe())

	require.NoError(t, repo.UpdateStripeSecret(company.ID, "ciphertext", time.Now()))

	found, err := repo.GetByID(company.ID)
	require.NoError(t, err)
	assert.True(t, found.HasStripe())
	assert.Equal(t, "ciphertext", found.StripeSecretEnc)
	assert.NotNil(t, found.StripeConnectedAt)
}

func TestCompanyRepository_ListStripeConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCompanyRepository(db)
	user := testutil.TestUser(t, db)
	connected := testutil.TestCompany(t, db, user.ID, testutil.WithStripeSecret("enc"))
	testutil.TestCompany(t, db, user.ID)

	companies, err := repo.ListStripeConnected()
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, connected.ID, companies[0].ID)
}
