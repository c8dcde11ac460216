package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamscao/certledger/internal/db"
	"github.com/adamscao/certledger/internal/models"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))
	return database
}

func TestCertRepository_CreateAndGet(t *testing.T) {
	repo := NewCertRepository(openTestDB(t).DB)

	rec := &models.IssuanceRecord{
		Hash:          "0xaaa",
		RecipientName: "Ada Lovelace",
		CourseName:    "Analytical Engines",
		IPFSURL:       "https://gateway.pinata.cloud/ipfs/QmA",
		HashMode:      "url",
		TxHash:        "0xtx",
		Issuer:        "0x5FbDB2315678afecb367f032d93F642f64180aa3",
	}
	require.NoError(t, repo.Create(rec))
	assert.NotZero(t, rec.ID)

	got, err := repo.GetByHash("0xaaa")
	require.NoError(t, err)
	assert.Equal(t, rec.RecipientName, got.RecipientName)
	assert.Equal(t, rec.IPFSURL, got.IPFSURL)
	assert.Empty(t, got.Salt)

	_, err = repo.GetByHash("0xmissing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, repo.Create(&models.IssuanceRecord{Hash: "0xaaa", HashMode: "url"}), "hash is unique")
}

func TestCertRepository_ListByIPFSURL_NewestFirst(t *testing.T) {
	repo := NewCertRepository(openTestDB(t).DB)
	url := "https://gateway.pinata.cloud/ipfs/QmSame"
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, hash := range []string{"0x01", "0x02"} {
		require.NoError(t, repo.Create(&models.IssuanceRecord{
			Hash:     hash,
			IPFSURL:  url,
			HashMode: "url_timestamp",
			Salt:     hash[2:],
			TxHash:   "0xtx",
			Issuer:   "0xissuer",
			IssuedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.Create(&models.IssuanceRecord{
		Hash: "0x03", IPFSURL: "other", HashMode: "url", TxHash: "0xtx", Issuer: "0xissuer",
	}))

	recs, err := repo.ListByIPFSURL(url)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "0x02", recs[0].Hash)
	assert.Equal(t, "0x01", recs[1].Hash)

	all, err := repo.ListByIssuer("0xissuer", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAuditRepository(t *testing.T) {
	repo := NewAuditRepository(openTestDB(t).DB)
	since := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, repo.Create(&models.AuditLog{
		Action: models.ActionAdminLogin, ClientIP: "10.0.0.1", Success: false, ErrorMsg: "invalid password",
	}))
	require.NoError(t, repo.Create(&models.AuditLog{
		Action: models.ActionAdminLogin, ClientIP: "10.0.0.1", Success: true,
	}))
	require.NoError(t, repo.Create(&models.AuditLog{
		Action: models.ActionCertIssue, Actor: "0xissuer", ClientIP: "10.0.0.2", Success: true, Details: `{"hash":"0x01"}`,
	}))

	failed, err := repo.ListFailedLogins(since, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "invalid password", failed[0].ErrorMsg)

	issued, err := repo.List("0xissuer", "", 10)
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, `{"hash":"0x01"}`, issued[0].Details)

	count, err := repo.CountByAction(models.ActionAdminLogin, since)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	deleted, err := repo.DeleteOld(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
}
