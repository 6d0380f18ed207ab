package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/saudecred/cobranca/internal/boleto/domain"
	"github.com/saudecred/cobranca/internal/status"
	pkgdb "github.com/saudecred/cobranca/pkg/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Boleto{}))
	return db
}

func testBoleto(id, closingID snowflake.ID, document string, sequence int, externalID *string) *domain.Boleto {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &domain.Boleto{
		ID:             id,
		ClosingID:      closingID,
		PatientID:      snowflake.ID(501),
		CompanyID:      snowflake.ID(7),
		DocumentNumber: document,
		Sequence:       sequence,
		ExternalID:     externalID,
		AmountCents:    10000,
		DueDate:        time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Situation:      "Em Aberto",
		Status:         status.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func strPtr(s string) *string { return &s }

func TestInsertEnforcesClosingDocumentUniqueness(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, db, testBoleto(1, 1001, "1001-P1", 1, strPtr("NN-1"))))

	err := repo.Insert(ctx, db, testBoleto(2, 1001, "1001-P1", 1, strPtr("NN-2")))
	require.Error(t, err)
	require.True(t, pkgdb.IsDuplicateKeyErr(err))
}

func TestInsertEnforcesExternalIDUniqueness(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, db, testBoleto(1, 1001, "1001-P1", 1, strPtr("NN-1"))))

	err := repo.Insert(ctx, db, testBoleto(2, 1001, "1001-P2", 2, strPtr("NN-1")))
	require.Error(t, err)
	require.True(t, pkgdb.IsDuplicateKeyErr(err))

	// a null external id never collides
	require.NoError(t, repo.Insert(ctx, db, testBoleto(3, 1001, "1001-P2", 2, nil)))
	require.NoError(t, repo.Insert(ctx, db, testBoleto(4, 1001, "1001-P3", 3, nil)))
}

func TestUpdateIssuedRewritesFailureRecord(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()

	failed := testBoleto(1, 1001, "1001-P1", 1, nil)
	failed.Situation = domain.SituationError
	failed.IssueError = "issuer unavailable"
	require.NoError(t, repo.Insert(ctx, db, failed))

	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	failed.ExternalID = strPtr("NN-1")
	failed.Barcode = "00191234500000100000000000000000000000000000"
	failed.IssuedAt = &now
	failed.Situation = "Em Aberto"
	failed.IssueError = ""
	failed.UpdatedAt = now
	require.NoError(t, repo.UpdateIssued(ctx, db, failed))

	got, err := repo.FindByClosingAndDocument(ctx, db, 1001, "1001-P1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Issued())
	require.Equal(t, "NN-1", *got.ExternalID)
	require.Empty(t, got.IssueError)
}

func TestFindReturnsNilWhenMissing(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()

	got, err := repo.FindByClosingAndDocument(ctx, db, 1001, "nope")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = repo.FindByDocument(ctx, db, "nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestListByClosingOrdersBySequence(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, db, testBoleto(3, 1001, "1001-P3", 3, strPtr("NN-3"))))
	require.NoError(t, repo.Insert(ctx, db, testBoleto(1, 1001, "1001-P1", 1, strPtr("NN-1"))))
	require.NoError(t, repo.Insert(ctx, db, testBoleto(2, 1001, "1001-P2", 2, strPtr("NN-2"))))
	require.NoError(t, repo.Insert(ctx, db, testBoleto(9, 2002, "2002", 1, strPtr("NN-9"))))

	boletos, err := repo.ListByClosing(ctx, db, 1001)
	require.NoError(t, err)
	require.Len(t, boletos, 3)
	for i, b := range boletos {
		require.Equal(t, i+1, b.Sequence)
	}
}

func TestUpdateSituation(t *testing.T) {
	db := openTestDB(t)
	repo := Provide()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, db, testBoleto(1, 1001, "1001-P1", 1, strPtr("NN-1"))))
	require.NoError(t, repo.UpdateSituation(ctx, db, 1, "Liquidado", status.StatusPaid))

	got, err := repo.FindByID(ctx, db, 1)
	require.NoError(t, err)
	require.Equal(t, "Liquidado", got.Situation)
	require.Equal(t, status.StatusPaid, got.Status)
}
