package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"cloudpico-metobs/internal/db/migrate"
)

const stationTable = "Id;Namn;Latitud;Longitud\n" +
	"98230;Stockholm-Observatoriekullen A;59.3417;18.0549\n" +
	"91;Stockholm;59.33;18.06\n" +
	"97400;Arlanda;59.6;17.9\n" +
	"180940;Överkalix;66.3;22.8\n" +
	"97100;Stockholm-Bromma;59.35;17.95\n"

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	})
	if err := migrate.Run(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func loadedRepo(t *testing.T, table string) StationRepository {
	t.Helper()
	repo := NewRepository(setupTestDB(t))
	if _, err := repo.Load(context.Background(), strings.NewReader(table), "Id", "Namn"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return repo
}

func TestLoad_keepsTableOrder(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	n, err := repo.Load(ctx, strings.NewReader(stationTable), "Id", "Namn")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 5 {
		t.Fatalf("Load = %d stations, want 5", n)
	}

	stations, err := repo.GetStations(ctx)
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	wantIDs := []int{98230, 91, 97400, 180940, 97100}
	if len(stations) != len(wantIDs) {
		t.Fatalf("GetStations = %d stations, want %d", len(stations), len(wantIDs))
	}
	for i, id := range wantIDs {
		if stations[i].ID != id {
			t.Errorf("stations[%d].ID = %d, want %d", i, stations[i].ID, id)
		}
	}
}

func TestLoad_replacesPreviousContent(t *testing.T) {
	repo := loadedRepo(t, stationTable)
	ctx := context.Background()

	if _, err := repo.Load(ctx, strings.NewReader("Id;Namn\n1;Lund\n"), "Id", "Namn"); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	stations, err := repo.GetStations(ctx)
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	if len(stations) != 1 || stations[0].Name != "Lund" {
		t.Fatalf("GetStations = %+v, want only Lund", stations)
	}
}

func TestLoad_headerVariants(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  int
	}{
		{name: "bom and reordered columns", table: "\ufeffNamn;Id\nLund;1\nMalmö;2\n", want: 2},
		{name: "blank and short rows skipped", table: "Id;Namn;X\n1;Lund;a\n;;\n2\n3;Malmö;b\n", want: 2},
		{name: "quoted name", table: "Id;Namn\n1;\"Lund; Sol\"\n", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRepository(setupTestDB(t))
			n, err := repo.Load(context.Background(), strings.NewReader(tt.table), "Id", "Namn")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if n != tt.want {
				t.Errorf("Load = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestLoad_errors(t *testing.T) {
	tests := []struct {
		name  string
		table string
	}{
		{name: "empty", table: ""},
		{name: "missing name column", table: "Id;Name\n1;Lund\n"},
		{name: "non numeric id", table: "Id;Namn\nabc;Lund\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRepository(setupTestDB(t))
			if _, err := repo.Load(context.Background(), strings.NewReader(tt.table), "Id", "Namn"); err == nil {
				t.Fatal("Load error = nil, want non-nil")
			}
		})
	}
}

func TestFindExact(t *testing.T) {
	repo := loadedRepo(t, stationTable)
	ctx := context.Background()

	tests := []struct {
		query  string
		wantID int
		found  bool
	}{
		{query: "Stockholm", wantID: 91, found: true},
		{query: "STOCKHOLM", wantID: 91, found: true},
		{query: "stockholm-bromma", wantID: 97100, found: true},
		{query: "ÖVERKALIX", wantID: 180940, found: true},
		{query: "Stock", found: false},
		{query: "", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok, err := repo.FindExact(ctx, tt.query)
			if err != nil {
				t.Fatalf("FindExact: %v", err)
			}
			if ok != tt.found {
				t.Fatalf("FindExact(%q) found = %v, want %v", tt.query, ok, tt.found)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("FindExact(%q) = %d, want %d", tt.query, got.ID, tt.wantID)
			}
		})
	}
}

func TestFindPrefix_firstInTableOrder(t *testing.T) {
	repo := loadedRepo(t, stationTable)
	ctx := context.Background()

	tests := []struct {
		query  string
		wantID int
		found  bool
	}{
		// Three names start with "stock"; the table lists Observatoriekullen first.
		{query: "stock", wantID: 98230, found: true},
		{query: "arl", wantID: 97400, found: true},
		{query: "över", wantID: 180940, found: true},
		{query: "bromma", found: false},
		{query: "", found: false},
		{query: "%", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok, err := repo.FindPrefix(ctx, tt.query)
			if err != nil {
				t.Fatalf("FindPrefix: %v", err)
			}
			if ok != tt.found {
				t.Fatalf("FindPrefix(%q) found = %v, want %v", tt.query, ok, tt.found)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("FindPrefix(%q) = %d, want %d", tt.query, got.ID, tt.wantID)
			}
		})
	}
}
