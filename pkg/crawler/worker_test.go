package crawler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lolcrawler/pkg/persistence"
	"lolcrawler/pkg/queue"
	"lolcrawler/pkg/ratelimit"
	"lolcrawler/pkg/riot"
)

// stubGateway scripts API responses for worker and engine tests.
type stubGateway struct {
	summoners map[string]*riot.Summoner
	matchIDs  []string
	matches   map[string]*riot.MatchDTO
	league    *riot.LeagueList
	featured  *riot.FeaturedGames

	matchIDsErr error
	summonerErr error
	featuredErr error
}

func (g *stubGateway) GetSummonerByPUUID(_ context.Context, _, pid string) (*riot.Summoner, error) {
	if g.summonerErr != nil {
		return nil, g.summonerErr
	}
	if s, ok := g.summoners[pid]; ok {
		return s, nil
	}
	return nil, &riot.Error{Type: riot.ErrorTypeNotFound, Status: 404}
}

func (g *stubGateway) GetMatchIDs(_ context.Context, _, _ string, _, _ *int) ([]string, error) {
	if g.matchIDsErr != nil {
		return nil, g.matchIDsErr
	}
	return g.matchIDs, nil
}

func (g *stubGateway) GetMatch(_ context.Context, _, matchID string) (*riot.MatchDTO, error) {
	if m, ok := g.matches[matchID]; ok {
		return m, nil
	}
	return nil, &riot.Error{Type: riot.ErrorTypeNotFound, Status: 404}
}

func (g *stubGateway) GetFeaturedGames(_ context.Context, _ string) (*riot.FeaturedGames, error) {
	if g.featuredErr != nil {
		return nil, g.featuredErr
	}
	if g.featured != nil {
		return g.featured, nil
	}
	return nil, &riot.Error{Type: riot.ErrorTypeNotFound, Status: 404}
}

func (g *stubGateway) GetMasterLeague(_ context.Context, _, _ string) (*riot.LeagueList, error) {
	if g.league != nil {
		return g.league, nil
	}
	return nil, &riot.Error{Type: riot.ErrorTypeNotFound, Status: 404}
}

func (g *stubGateway) RateLimitStatus() ratelimit.Status {
	return ratelimit.Status{}
}

func createTestStore(t *testing.T) *persistence.Store {
	t.Helper()
	store, err := persistence.Open(filepath.Join(t.TempDir(), "test.db"), "test-session")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func stubMatch(matchID string, pids ...string) *riot.MatchDTO {
	m := &riot.MatchDTO{
		Metadata: riot.MatchMetadata{MatchID: matchID, Participants: pids},
		Info: riot.MatchInfo{
			GameCreation: 1700000000000,
			GameDuration: 1800,
			GameID:       1,
			GameMode:     "CLASSIC",
			GameType:     "MATCHED_GAME",
			GameVersion:  "14.1.1",
			MapID:        11,
			PlatformID:   "NA1",
			QueueID:      riot.QueueIDRankedSolo,
			Teams: []riot.TeamDTO{
				{TeamID: 100, Win: true, Bans: []riot.BanDTO{{ChampionID: 103, PickTurn: 1}, {ChampionID: -1, PickTurn: 2}}},
				{TeamID: 200, Win: false},
			},
		},
	}
	for i, pid := range pids {
		teamID := 100
		if i >= len(pids)/2 {
			teamID = 200
		}
		m.Info.Participants = append(m.Info.Participants, riot.ParticipantDTO{
			PUUID:        pid,
			SummonerName: "Name_" + pid,
			ChampionID:   i + 1,
			ChampionName: "Champ",
			TeamID:       teamID,
			Kills:        i,
		})
	}
	return m
}

func newTask(pid string, p queue.Priority) queue.Task {
	return queue.Task{
		PlayerID:    pid,
		DisplayName: "Player_" + pid,
		Region:      "na1",
		Priority:    p,
		AddedAt:     time.Now(),
	}
}

func TestProcessPlayerIngestsMatchesAndDiscovers(t *testing.T) {
	store := createTestStore(t)
	name := "Tester"
	gateway := &stubGateway{
		summoners: map[string]*riot.Summoner{
			"seed": {PUUID: "seed", Name: &name, ProfileIconID: 1, SummonerLevel: 100},
		},
		matchIDs: []string{"NA1_1"},
		matches:  map[string]*riot.MatchDTO{"NA1_1": stubMatch("NA1_1", "seed", "new-1", "new-2")},
	}
	worker := NewWorker(gateway, store, nil)

	task := newTask("seed", queue.PriorityHigh)
	discoveries, err := worker.ProcessPlayer(context.Background(), &task)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	// seed has a player row now; new-1 and new-2 do not.
	if len(discoveries) != 2 {
		t.Fatalf("expected 2 discoveries, got %d", len(discoveries))
	}
	for _, d := range discoveries {
		if d.Priority != queue.PriorityLow {
			t.Errorf("discoveries must be low priority, got %v", d.Priority)
		}
		if d.Retries != 0 {
			t.Errorf("discoveries must start with 0 retries, got %d", d.Retries)
		}
		if d.Region != "na1" {
			t.Errorf("discoveries inherit the task region, got %q", d.Region)
		}
	}

	exists, err := store.PlayerExists("seed")
	if err != nil || !exists {
		t.Errorf("seed player should be stored (exists=%v, err=%v)", exists, err)
	}
	exists, err = store.MatchExists("NA1_1")
	if err != nil || !exists {
		t.Errorf("match should be stored (exists=%v, err=%v)", exists, err)
	}

	count, err := store.CountParticipants()
	if err != nil || count != 3 {
		t.Errorf("expected 3 participants, got %d (err=%v)", count, err)
	}
}

func TestProcessPlayerSkipsStoredMatches(t *testing.T) {
	store := createTestStore(t)
	gateway := &stubGateway{
		matchIDs: []string{"NA1_1"},
		matches:  map[string]*riot.MatchDTO{"NA1_1": stubMatch("NA1_1", "a", "b")},
	}
	worker := NewWorker(gateway, store, nil)

	task := newTask("seed", queue.PriorityMedium)
	if _, err := worker.ProcessPlayer(context.Background(), &task); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}

	// Second pass sees the match in the store and skips it, so nothing new
	// is discovered.
	discoveries, err := worker.ProcessPlayer(context.Background(), &task)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if len(discoveries) != 0 {
		t.Errorf("expected no discoveries on replay, got %d", len(discoveries))
	}
}

func TestProcessPlayerSurvivesProfileFailure(t *testing.T) {
	store := createTestStore(t)
	gateway := &stubGateway{
		summonerErr: &riot.Error{Type: riot.ErrorTypeNotFound, Status: 404},
		matchIDs:    []string{"NA1_1"},
		matches:     map[string]*riot.MatchDTO{"NA1_1": stubMatch("NA1_1", "x")},
	}
	worker := NewWorker(gateway, store, nil)

	task := newTask("gone", queue.PriorityLow)
	discoveries, err := worker.ProcessPlayer(context.Background(), &task)
	if err != nil {
		t.Fatalf("profile failure must not abort the task: %v", err)
	}
	if len(discoveries) != 1 {
		t.Errorf("expected 1 discovery, got %d", len(discoveries))
	}
}

func TestProcessPlayerFailsWhenMatchListFails(t *testing.T) {
	store := createTestStore(t)
	gateway := &stubGateway{
		matchIDsErr: &riot.Error{Type: riot.ErrorTypeServiceUnavailable, Status: 503},
	}
	worker := NewWorker(gateway, store, nil)

	task := newTask("seed", queue.PriorityHigh)
	if _, err := worker.ProcessPlayer(context.Background(), &task); err == nil {
		t.Error("match-list failure must surface to the engine")
	}
}

func TestProcessPlayerSwallowsPerMatchFailures(t *testing.T) {
	store := createTestStore(t)
	gateway := &stubGateway{
		matchIDs: []string{"NA1_bad", "NA1_good"},
		matches:  map[string]*riot.MatchDTO{"NA1_good": stubMatch("NA1_good", "y")},
	}
	worker := NewWorker(gateway, store, nil)

	task := newTask("seed", queue.PriorityMedium)
	discoveries, err := worker.ProcessPlayer(context.Background(), &task)
	if err != nil {
		t.Fatalf("one bad match must not poison the player: %v", err)
	}
	if len(discoveries) != 1 {
		t.Errorf("expected 1 discovery from the good match, got %d", len(discoveries))
	}

	exists, _ := store.MatchExists("NA1_good")
	if !exists {
		t.Error("good match should be stored")
	}
}

func TestRequeueFailedDemotesToLow(t *testing.T) {
	store := createTestStore(t)
	engine := NewEngine(testEngineConfig(), &stubGateway{}, store, nil)

	task := newTask("flaky", queue.PriorityHigh)
	engine.requeueFailed(task)

	requeued, ok := engine.tasks.Pop()
	if !ok {
		t.Fatal("task should be requeued")
	}
	if requeued.Priority != queue.PriorityLow {
		t.Errorf("requeued task must be demoted to low, got %v", requeued.Priority)
	}
	if requeued.Retries != 1 {
		t.Errorf("expected retries = 1, got %d", requeued.Retries)
	}

	// A second failure lands in Low again with retries = 2.
	engine.requeueFailed(requeued)
	requeued, ok = engine.tasks.Pop()
	if !ok {
		t.Fatal("task should be requeued a second time")
	}
	_, _, low := engine.tasks.Size()
	if low != 0 {
		t.Errorf("expected task to have been popped from low band, %d left", low)
	}
	if requeued.Retries != 2 {
		t.Errorf("expected retries = 2, got %d", requeued.Retries)
	}
}

func TestRequeueFailedDropsAfterMaxRetries(t *testing.T) {
	store := createTestStore(t)
	engine := NewEngine(testEngineConfig(), &stubGateway{}, store, nil)

	task := newTask("doomed", queue.PriorityMedium)
	task.Retries = maxTaskRetries
	engine.requeueFailed(task)

	if !engine.tasks.IsEmpty() {
		t.Error("task at the retry cap must be dropped")
	}
}

