package crawler

import (
	"context"
	"testing"
	"time"

	"lolcrawler/pkg/config"
	"lolcrawler/pkg/persistence"
	"lolcrawler/pkg/queue"
	"lolcrawler/pkg/riot"
)

func testEngineConfig() *config.Config {
	cfg := config.Default()
	cfg.RiotAPIKey = "RGAPI-test-key"
	cfg.Regions = []string{"na1"}
	return &cfg
}

func seedLeague(pids ...string) *riot.LeagueList {
	l := &riot.LeagueList{
		LeagueID: "league-1",
		Tier:     "MASTER",
		Queue:    riot.QueueRankedSolo5x5,
	}
	for _, pid := range pids {
		l.Entries = append(l.Entries, riot.LeagueEntry{PUUID: pid, LeaguePoints: 100})
	}
	return l
}

func liveGames(gameID int64, pids ...string) *riot.FeaturedGames {
	game := riot.FeaturedGameInfo{
		GameID:            gameID,
		GameMode:          "CLASSIC",
		GameType:          "MATCHED_GAME",
		MapID:             11,
		PlatformID:        "NA1",
		GameQueueConfigID: riot.QueueIDRankedSolo,
		GameStartTime:     1700000000000,
	}
	for _, pid := range pids {
		game.Participants = append(game.Participants, riot.FeaturedGameParticipant{
			PUUID:  pid,
			RiotID: "Live " + pid,
		})
	}
	return &riot.FeaturedGames{GameList: []riot.FeaturedGameInfo{game}}
}

func TestSeedPrefersFeaturedGames(t *testing.T) {
	store := createTestStore(t)
	gateway := &stubGateway{featured: liveGames(7, "f1", "f2")}
	engine := NewEngine(testEngineConfig(), gateway, store, nil)

	engine.seed(context.Background())

	high, _, _ := engine.tasks.Size()
	if high != 2 {
		t.Errorf("expected 2 high-priority featured seeds, got %d", high)
	}

	task, ok := engine.tasks.Pop()
	if !ok {
		t.Fatal("expected a seeded task")
	}
	if task.Priority != queue.PriorityHigh {
		t.Errorf("featured seeds must be high priority, got %v", task.Priority)
	}
	if task.DisplayName != "Live f1" {
		t.Errorf("expected live game name, got %q", task.DisplayName)
	}

	games, err := store.CountActiveGames()
	if err != nil || games != 1 {
		t.Errorf("expected 1 stored active game, got %d (err=%v)", games, err)
	}
}

func TestSeedFallsBackToLeagueWhenFeaturedUnavailable(t *testing.T) {
	store := createTestStore(t)
	gateway := &stubGateway{
		featuredErr: &riot.Error{Type: riot.ErrorTypeAuthentication, Status: 403},
		league:      seedLeague("m1"),
	}
	engine := NewEngine(testEngineConfig(), gateway, store, nil)

	engine.seed(context.Background())

	high, _, _ := engine.tasks.Size()
	if high != 1 {
		t.Fatalf("expected 1 league seed after fallback, got %d", high)
	}
	task, _ := engine.tasks.Pop()
	if task.PlayerID != "m1" {
		t.Errorf("expected league entry after fallback, got %q", task.PlayerID)
	}
}

func TestFeaturedSeedSkipsKnownAndBotPlayers(t *testing.T) {
	store := createTestStore(t)
	now := time.Now().UTC()
	err := store.UpsertPlayer(&persistence.Player{
		PID: "known", Region: "na1", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	featured := liveGames(8, "known", "fresh")
	featured.GameList[0].Participants = append(featured.GameList[0].Participants,
		riot.FeaturedGameParticipant{PUUID: "bot-pid", Bot: true})
	gateway := &stubGateway{featured: featured}
	engine := NewEngine(testEngineConfig(), gateway, store, nil)

	if err := engine.ingestFeaturedGames(context.Background(), "na1"); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	high, _, _ := engine.tasks.Size()
	if high != 1 {
		t.Fatalf("expected only the fresh player seeded, got %d", high)
	}
	task, _ := engine.tasks.Pop()
	if task.PlayerID != "fresh" {
		t.Errorf("expected fresh pid, got %q", task.PlayerID)
	}
}

func TestSeedFromLeaguesWhenStoreEmpty(t *testing.T) {
	store := createTestStore(t)
	gateway := &stubGateway{league: seedLeague("m1", "m2", "m3")}
	engine := NewEngine(testEngineConfig(), gateway, store, nil)

	engine.seed(context.Background())

	high, medium, low := engine.tasks.Size()
	if high != 3 {
		t.Errorf("expected 3 high-priority league seeds, got %d", high)
	}
	if medium != 0 || low != 0 {
		t.Errorf("expected empty medium/low bands, got %d/%d", medium, low)
	}

	task, ok := engine.tasks.Pop()
	if !ok {
		t.Fatal("expected a seeded task")
	}
	if task.DisplayName != "Master_m1" {
		t.Errorf("expected synthesized name, got %q", task.DisplayName)
	}
}

func TestSeedSkipsKnownPlayers(t *testing.T) {
	store := createTestStore(t)
	now := time.Now().UTC()
	known := "known-pid"
	err := store.UpsertPlayer(&persistence.Player{
		PID: known, Region: "na1", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	gateway := &stubGateway{league: seedLeague(known, "fresh-pid")}
	engine := NewEngine(testEngineConfig(), gateway, store, nil)

	engine.seed(context.Background())

	// The known player comes back as a Medium refresh seed; only the fresh
	// pid is added from the league.
	high, medium, _ := engine.tasks.Size()
	if medium != 1 {
		t.Errorf("expected 1 refresh seed, got %d", medium)
	}
	if high != 1 {
		t.Errorf("expected 1 league seed, got %d", high)
	}

	task, ok := engine.tasks.Pop()
	if !ok || task.PlayerID != "fresh-pid" {
		t.Errorf("expected fresh pid first (high band), got %+v", task)
	}
}

func TestSeedRefreshUsesMediumPriority(t *testing.T) {
	store := createTestStore(t)
	now := time.Now().UTC()
	for _, pid := range []string{"p1", "p2"} {
		err := store.UpsertPlayer(&persistence.Player{
			PID: pid, Region: "na1", CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	gateway := &stubGateway{league: seedLeague()}
	engine := NewEngine(testEngineConfig(), gateway, store, nil)

	engine.seed(context.Background())

	task, ok := engine.tasks.Pop()
	if !ok {
		t.Fatal("expected a seeded task")
	}
	if task.Priority != queue.PriorityMedium {
		t.Errorf("store seeds must be medium priority, got %v", task.Priority)
	}
}

func TestSeedBackfillEnqueuesUnfetchedParticipants(t *testing.T) {
	store := createTestStore(t)
	if err := store.UpsertMatch(&persistence.Match{MatchID: "NA1_1", Region: "na1", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("match upsert failed: %v", err)
	}
	if err := store.UpsertParticipant(&persistence.Participant{MatchID: "NA1_1", PID: "orphan", TeamID: 100}); err != nil {
		t.Fatalf("participant upsert failed: %v", err)
	}

	gateway := &stubGateway{league: seedLeague()}
	engine := NewEngine(testEngineConfig(), gateway, store, nil)

	engine.seed(context.Background())

	found := false
	for {
		task, ok := engine.tasks.Pop()
		if !ok {
			break
		}
		if task.PlayerID == "orphan" {
			found = true
			if task.Priority != queue.PriorityLow {
				t.Errorf("backfill seeds must be low priority, got %v", task.Priority)
			}
		}
	}
	if !found {
		t.Error("expected orphan participant in backfill seeds")
	}
}

func TestSeedLeagueLimitCapsEntries(t *testing.T) {
	store := createTestStore(t)
	cfg := testEngineConfig()
	cfg.Crawler.SeedLeagueLimit = 2

	gateway := &stubGateway{league: seedLeague("a", "b", "c", "d")}
	engine := NewEngine(cfg, gateway, store, nil)

	engine.seed(context.Background())

	high, _, _ := engine.tasks.Size()
	if high != 2 {
		t.Errorf("expected league seeding capped at 2, got %d", high)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	store := createTestStore(t)
	gateway := &stubGateway{league: seedLeague()}
	cfg := testEngineConfig()
	cfg.Crawler.HealthCheckIntervalSeconds = 1
	cfg.Crawler.StateSaveIntervalSeconds = 1
	engine := NewEngine(cfg, gateway, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)
	if !engine.GetStatus().Running {
		t.Error("engine should report running after Start")
	}

	// Second start is a no-op.
	engine.Start(ctx)

	engine.Stop()
	cancel()
	engine.Wait()

	if engine.GetStatus().Running {
		t.Error("engine should report stopped after Stop")
	}
}
