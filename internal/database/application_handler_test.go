package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clansite/internal/domain"
)

func newTestApplication(ip, role string, playtime int, at time.Time) domain.Application {
	return domain.Application{
		Nickname:  "player",
		SteamID:   "76561198000000000",
		Playtime:  playtime,
		Discord:   "player#0001",
		Role:      role,
		Message:   "hello",
		IPAddress: ip,
		Timestamp: at,
	}
}

func TestApplicationStoreCooldown(t *testing.T) {
	db := setupStoreTestDB(t)
	store := NewApplicationStore(db)
	ctx := context.Background()

	ok, err := store.CanSubmit(ctx, "10.2.0.1", storeTestBase, time.Hour)
	if err != nil {
		t.Fatalf("CanSubmit: %v", err)
	}
	if !ok {
		t.Fatal("first submission should be allowed")
	}

	id, err := store.Save(ctx, newTestApplication("10.2.0.1", "assault", 1800, storeTestBase))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == 0 {
		t.Fatal("Save returned zero id")
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "within cooldown", at: storeTestBase.Add(59 * time.Minute), want: false},
		{name: "at cooldown", at: storeTestBase.Add(time.Hour), want: true},
		{name: "after cooldown", at: storeTestBase.Add(2 * time.Hour), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.CanSubmit(ctx, "10.2.0.1", tt.at, time.Hour)
			if err != nil {
				t.Fatalf("CanSubmit: %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanSubmit = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := store.Save(ctx, newTestApplication("10.2.0.1", "medic", 2000, storeTestBase.Add(2*time.Hour))); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	var limit domain.ApplicationLimit
	if err := db.First(&limit, "ip_address = ?", "10.2.0.1").Error; err != nil {
		t.Fatalf("load application limit: %v", err)
	}
	if limit.ApplicationCount != 2 {
		t.Fatalf("application count = %d, want 2", limit.ApplicationCount)
	}
	if !limit.LastApplicationTime.Equal(storeTestBase.Add(2 * time.Hour)) {
		t.Fatalf("last application time = %v", limit.LastApplicationTime)
	}
}

func TestApplicationStoreListNewestFirst(t *testing.T) {
	db := setupStoreTestDB(t)
	store := NewApplicationStore(db)
	ctx := context.Background()

	for i, role := range []string{"assault", "sniper", "medic"} {
		if _, err := store.Save(ctx, newTestApplication("10.2.1.1", role, 1500, storeTestBase.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save %s: %v", role, err)
		}
	}

	apps, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(apps) != 3 {
		t.Fatalf("got %d applications, want 3", len(apps))
	}
	if apps[0].Role != "medic" || apps[2].Role != "assault" {
		t.Fatalf("unexpected order: %s, %s, %s", apps[0].Role, apps[1].Role, apps[2].Role)
	}
	if apps[0].Status != domain.ApplicationStatusNew {
		t.Fatalf("status = %q, want %q", apps[0].Status, domain.ApplicationStatusNew)
	}
}

func TestApplicationStoreStatistics(t *testing.T) {
	db := setupStoreTestDB(t)
	store := NewApplicationStore(db)
	ctx := context.Background()

	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	entries := []struct {
		role     string
		playtime int
		at       time.Time
	}{
		{"assault", 1500, now.Add(-30 * time.Minute)},
		{"assault", 2000, now.Add(-3 * time.Hour)},
		{"medic", 1700, now.Add(-20 * time.Hour)},
		{"sniper", 3000, now.Add(-3 * 24 * time.Hour)},
		{"sniper", 1600, now.Add(-10 * 24 * time.Hour)},
	}
	for i, e := range entries {
		if _, err := store.Save(ctx, newTestApplication(fmt.Sprintf("10.3.0.%d", i+1), e.role, e.playtime, e.at)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	stats, err := store.ExtendedStatistics(ctx, now)
	if err != nil {
		t.Fatalf("ExtendedStatistics: %v", err)
	}

	if stats.Total != 5 {
		t.Errorf("total = %d, want 5", stats.Total)
	}
	if stats.Today != 2 {
		t.Errorf("today = %d, want 2", stats.Today)
	}
	if stats.Week != 4 {
		t.Errorf("week = %d, want 4", stats.Week)
	}
	if stats.Hour != 1 {
		t.Errorf("hour = %d, want 1", stats.Hour)
	}
	if stats.Daily != 3 {
		t.Errorf("daily = %d, want 3", stats.Daily)
	}
	if stats.Roles["assault"] != 2 || stats.Roles["sniper"] != 2 || stats.Roles["medic"] != 1 {
		t.Errorf("roles = %v", stats.Roles)
	}
	if stats.Statuses[domain.ApplicationStatusNew] != 5 {
		t.Errorf("statuses = %v", stats.Statuses)
	}
	if stats.AvgPlaytime != 1960 {
		t.Errorf("avg playtime = %v, want 1960", stats.AvgPlaytime)
	}
	if stats.PopularRole != "assault" {
		t.Errorf("popular role = %q, want assault", stats.PopularRole)
	}
}

func TestApplicationStoreStatisticsEmpty(t *testing.T) {
	db := setupStoreTestDB(t)
	store := NewApplicationStore(db)

	stats, err := store.ExtendedStatistics(context.Background(), storeTestBase)
	if err != nil {
		t.Fatalf("ExtendedStatistics: %v", err)
	}
	if stats.Total != 0 || stats.AvgPlaytime != 0 || stats.PopularRole != noPopularRole {
		t.Fatalf("unexpected empty statistics: %+v", stats)
	}
}

func TestVisitStoreStatistics(t *testing.T) {
	db := setupStoreTestDB(t)
	store := NewVisitStore(db)
	ctx := context.Background()

	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	visits := []domain.Visit{
		{IPAddress: "10.4.0.1", Path: "/", Timestamp: now.Add(-time.Hour)},
		{IPAddress: "10.4.0.1", Path: "/zayavka", Timestamp: now.Add(-2 * time.Hour)},
		{IPAddress: "10.4.0.2", Path: "/", Timestamp: now.Add(-48 * time.Hour)},
	}
	for _, visit := range visits {
		if err := store.Record(ctx, visit); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats, err := store.Statistics(ctx, now)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalVisits != 3 || stats.UniqueVisitors != 2 || stats.TodayVisits != 2 {
		t.Fatalf("unexpected visit statistics: %+v", stats)
	}
	if stats.PopularPages["/"] != 2 || stats.PopularPages["/zayavka"] != 1 {
		t.Fatalf("popular pages = %v", stats.PopularPages)
	}
}
