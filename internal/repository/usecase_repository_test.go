package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usecase-tracker-api/internal/models"
)

var useCaseRowColumns = []string{"id", "tenant_id", "name", "description", "status", "deployment_location", "lifecycle_stage", "test_plan_ready", "testing_complete", "version", "created_by", "created_at", "updated_at"}

func TestUseCaseRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUseCaseRepository(db)

	now := time.Now()
	stage := models.LifecycleTesting
	rows := sqlmock.NewRows(useCaseRowColumns).
		AddRow("uc-1", "t-1", "Chatbot", "desc", "DRAFT", "EU", "TESTING", false, false, 1, "u-1", now, now)

	where := " FROM use_cases WHERE tenant_id = $1 AND status IN ($2, $3) AND lifecycle_stage = $4 AND (LOWER(name) LIKE $5 OR LOWER(description) LIKE $5)"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + useCaseColumns + where + " ORDER BY updated_at DESC, id LIMIT 10 OFFSET 10")).
		WithArgs("t-1", models.UseCaseStatusDraft, models.UseCaseStatusApproved, models.LifecycleTesting, "%bot%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)" + where)).
		WithArgs("t-1", models.UseCaseStatusDraft, models.UseCaseStatusApproved, models.LifecycleTesting, "%bot%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	items, total, err := repo.List(context.Background(), models.UseCaseFilter{
		TenantID:       "t-1",
		Statuses:       []models.UseCaseStatus{models.UseCaseStatusDraft, models.UseCaseStatusApproved},
		LifecycleStage: &stage,
		Search:         " BOT ",
		Page:           2,
		PageSize:       10,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 11, total)
	assert.Equal(t, models.LifecycleTesting, items[0].LifecycleStage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUseCaseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUseCaseRepository(db)

	mock.ExpectExec("INSERT INTO use_cases").WillReturnResult(sqlmock.NewResult(1, 1))

	uc := models.NewUseCase("t-1", "u-1", "Chatbot")
	require.NoError(t, repo.Create(context.Background(), uc))
	assert.NotEmpty(t, uc.ID)
	assert.False(t, uc.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUseCaseRepositoryUpdateVersionCheck(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUseCaseRepository(db)

	uc := &models.UseCase{ID: "uc-1", TenantID: "t-1", Name: "n", LifecycleStage: models.LifecyclePilot, Version: 3}

	mock.ExpectExec("UPDATE use_cases SET name").
		WithArgs("n", "", "", models.LifecyclePilot, false, false, sqlmock.AnyArg(), "t-1", "uc-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), uc, 3))
	assert.Equal(t, 4, uc.Version)

	mock.ExpectExec("UPDATE use_cases SET name").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), uc, 3), ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUseCaseRepositoryArchive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUseCaseRepository(db)

	at := time.Now()
	mock.ExpectExec("UPDATE use_cases SET status").
		WithArgs(models.UseCaseStatusArchived, at, "t-1", "uc-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Archive(context.Background(), "t-1", "uc-1", 2, at), ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
