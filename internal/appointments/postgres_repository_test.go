package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var appointmentColumns = []string{"id", "title", "service", "locality", "day", "time", "provider_id", "provider_name", "owner_identity", "selected_by", "created_at"}

func TestPostgresRepositoryInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	created := time.Date(2025, 2, 20, 1, 2, 3, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "Speech Therapy", "Speech Therapy", "Epping", "2025-03-01", "14:00", 1, "Bright Speech", pgxmock.AnyArg(), "heuristic").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	saved, err := repo.Insert(context.Background(), &Appointment{
		Title:        "Speech Therapy",
		Service:      "Speech Therapy",
		Locality:     "Epping",
		Day:          "2025-03-01",
		Time:         "14:00",
		ProviderID:   1,
		ProviderName: "Bright Speech",
		SelectedBy:   "heuristic",
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if saved.ID == "" || !saved.CreatedAt.Equal(created) {
		t.Fatalf("unexpected saved appointment: %#v", saved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryInsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	mock.ExpectQuery("INSERT INTO appointments").WillReturnError(errors.New("deadlock"))

	if _, err := repo.Insert(context.Background(), &Appointment{OwnerIdentity: "sam@example.com"}); err == nil {
		t.Fatal("expected insert error")
	}
}

func TestPostgresRepositoryListScoped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	owner := "sam@example.com"
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	rows := pgxmock.NewRows(appointmentColumns).
		AddRow("8f8c3f4e-0000-4000-8000-000000000001", "OT", "OT", "Epping", day, "09:30", 4, "Epping OT", &owner, "oracle", now)
	mock.ExpectQuery("WHERE owner_identity = \\$1").WithArgs(owner, ListLimit).WillReturnRows(rows)

	got, err := repo.List(context.Background(), owner, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].Day != "2025-03-01" || got[0].OwnerIdentity != owner || got[0].SelectedBy != "oracle" {
		t.Fatalf("unexpected row: %#v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryListUnscoped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	day := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	var noOwner *string
	rows := pgxmock.NewRows(appointmentColumns).
		AddRow("8f8c3f4e-0000-4000-8000-000000000002", "Chat", "Psychology", "", day, "10:00", 3, "Mindful", noOwner, "heuristic", now).
		AddRow("8f8c3f4e-0000-4000-8000-000000000003", "Chat", "Psychology", "", day, "11:00", 3, "Mindful", noOwner, "heuristic", now.Add(-time.Minute))
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT \\$1").WithArgs(25).WillReturnRows(rows)

	got, err := repo.List(context.Background(), "", 25)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 || got[0].OwnerIdentity != "" {
		t.Fatalf("unexpected rows: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
