// Package crawler contains the worker that ingests one player at a time and
// the engine that drives the crawl loops.
package crawler

import (
	"context"
	"fmt"
	"time"

	"lolcrawler/pkg/logx"
	"lolcrawler/pkg/metrics"
	"lolcrawler/pkg/persistence"
	"lolcrawler/pkg/queue"
	"lolcrawler/pkg/ratelimit"
	"lolcrawler/pkg/riot"
)

// matchHistoryCount is how many recent match ids are fetched per player.
const matchHistoryCount = 20

// Gateway is the slice of the API client the crawler uses. Satisfied by
// *riot.Client; tests substitute a stub.
type Gateway interface {
	GetSummonerByPUUID(ctx context.Context, region, pid string) (*riot.Summoner, error)
	GetMatchIDs(ctx context.Context, region, pid string, start, count *int) ([]string, error)
	GetMatch(ctx context.Context, region, matchID string) (*riot.MatchDTO, error)
	GetFeaturedGames(ctx context.Context, region string) (*riot.FeaturedGames, error)
	GetMasterLeague(ctx context.Context, region, queue string) (*riot.LeagueList, error)
	RateLimitStatus() ratelimit.Status
}

// Worker turns one dequeued task into stored rows and discovered players.
type Worker struct {
	gateway  Gateway
	store    *persistence.Store
	recorder *metrics.Recorder
	logger   *logx.Logger
}

// NewWorker creates a worker sharing the given gateway and store.
func NewWorker(gateway Gateway, store *persistence.Store, recorder *metrics.Recorder) *Worker {
	return &Worker{
		gateway:  gateway,
		store:    store,
		recorder: recorder,
		logger:   logx.NewLogger("worker"),
	}
}

// ProcessPlayer ingests one player: profile, recent match history, and every
// unseen match in it. It returns tasks for participants not yet in the store.
// The task fails only if the match-id list could not be obtained; per-match
// and per-profile failures are logged and swallowed.
func (w *Worker) ProcessPlayer(ctx context.Context, task *queue.Task) ([]queue.Task, error) {
	w.logger.Info("processing player %s (%s) in region %s", task.DisplayName, task.PlayerID, task.Region)

	if err := w.fetchAndStorePlayer(ctx, task.PlayerID, task.Region); err != nil {
		w.logger.Warn("failed to fetch player %s: %v", task.PlayerID, err)
	}

	start, count := 0, matchHistoryCount
	matchIDs, err := w.gateway.GetMatchIDs(ctx, task.Region, task.PlayerID, &start, &count)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match list for %s: %w", task.PlayerID, err)
	}
	w.logger.Debug("found %d matches for player %s", len(matchIDs), task.PlayerID)

	// pid -> display name, first occurrence wins.
	discovered := make(map[string]string)
	order := make([]string, 0, len(matchIDs)*10)

	for _, matchID := range matchIDs {
		exists, err := w.store.MatchExists(matchID)
		if err != nil {
			w.logger.Warn("failed to check match %s: %v", matchID, err)
			continue
		}
		if exists {
			w.logger.Debug("match %s already stored, skipping", matchID)
			continue
		}

		participants, err := w.fetchAndStoreMatch(ctx, matchID, task.Region)
		if err != nil {
			w.logger.Warn("failed to process match %s: %v", matchID, err)
			continue
		}
		for _, p := range participants {
			if _, seen := discovered[p.pid]; !seen {
				discovered[p.pid] = p.name
				order = append(order, p.pid)
			}
		}
	}

	now := time.Now().UTC()
	var newTasks []queue.Task
	for _, pid := range order {
		exists, err := w.store.PlayerExists(pid)
		if err != nil {
			// Enqueue anyway; the worst case is one redundant fetch.
			w.logger.Warn("failed to check player %s: %v", pid, err)
		} else if exists {
			continue
		}
		newTasks = append(newTasks, queue.Task{
			PlayerID:    pid,
			DisplayName: discovered[pid],
			Region:      task.Region,
			Priority:    queue.PriorityLow,
			AddedAt:     now,
		})
	}

	w.recorder.AddPlayersDiscovered(len(newTasks))
	w.logger.Info("discovered %d new players from processing %s", len(newTasks), task.PlayerID)
	return newTasks, nil
}

func (w *Worker) fetchAndStorePlayer(ctx context.Context, pid, region string) error {
	summoner, err := w.gateway.GetSummonerByPUUID(ctx, region, pid)
	if err != nil {
		return err
	}

	name := summoner.Name
	if name == nil {
		synthesized := "Player_" + shortPID(summoner.PUUID)
		name = &synthesized
	}

	now := time.Now().UTC()
	return w.store.UpsertPlayer(&persistence.Player{
		PID:           summoner.PUUID,
		SummonerID:    summoner.ID,
		AccountID:     summoner.AccountID,
		DisplayName:   name,
		ProfileIconID: summoner.ProfileIconID,
		SummonerLevel: summoner.SummonerLevel,
		Region:        region,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

type participantRef struct {
	pid  string
	name string
}

// fetchAndStoreMatch ingests one match: the match row, each team and its
// bans, and each participant, written in a single transaction so a partial
// match can never be left behind. Returns every participant for discovery.
func (w *Worker) fetchAndStoreMatch(ctx context.Context, matchID, region string) ([]participantRef, error) {
	match, err := w.gateway.GetMatch(ctx, region, matchID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := &persistence.Match{
		MatchID:      match.Metadata.MatchID,
		GameCreation: match.Info.GameCreation,
		GameDuration: match.Info.GameDuration,
		GameID:       match.Info.GameID,
		GameMode:     match.Info.GameMode,
		GameType:     match.Info.GameType,
		GameVersion:  match.Info.GameVersion,
		MapID:        match.Info.MapID,
		PlatformID:   match.Info.PlatformID,
		QueueID:      match.Info.QueueID,
		Region:       region,
		CreatedAt:    now,
	}
	if match.Info.GameName != nil {
		row.GameName = *match.Info.GameName
	}
	if match.Info.GameEndTimestamp != nil {
		row.GameEndTimestamp = *match.Info.GameEndTimestamp
	}
	row.TournamentCode = match.Info.TournamentCode

	teams := make([]persistence.Team, 0, len(match.Info.Teams))
	var bans []persistence.Ban
	for i := range match.Info.Teams {
		team := &match.Info.Teams[i]
		teams = append(teams, persistence.Team{
			MatchID:         match.Metadata.MatchID,
			TeamID:          team.TeamID,
			Win:             team.Win,
			FirstBaron:      team.Objectives.Baron.First,
			FirstDragon:     team.Objectives.Dragon.First,
			FirstInhibitor:  team.Objectives.Inhibitor.First,
			FirstRiftHerald: team.Objectives.RiftHerald.First,
			FirstTower:      team.Objectives.Tower.First,
			BaronKills:      team.Objectives.Baron.Kills,
			DragonKills:     team.Objectives.Dragon.Kills,
			InhibitorKills:  team.Objectives.Inhibitor.Kills,
			RiftHeraldKills: team.Objectives.RiftHerald.Kills,
			TowerKills:      team.Objectives.Tower.Kills,
		})

		for _, ban := range team.Bans {
			// Champion id 0 or -1 means no ban was made.
			if ban.ChampionID <= 0 {
				continue
			}
			bans = append(bans, persistence.Ban{
				MatchID:    match.Metadata.MatchID,
				TeamID:     team.TeamID,
				ChampionID: ban.ChampionID,
				PickTurn:   ban.PickTurn,
			})
		}
	}

	refs := make([]participantRef, 0, len(match.Info.Participants))
	participants := make([]persistence.Participant, 0, len(match.Info.Participants))
	for i := range match.Info.Participants {
		p := &match.Info.Participants[i]
		refs = append(refs, participantRef{pid: p.PUUID, name: p.SummonerName})

		pr := persistence.Participant{
			MatchID:            match.Metadata.MatchID,
			PID:                p.PUUID,
			DisplayName:        p.SummonerName,
			ChampionID:         p.ChampionID,
			ChampionName:       p.ChampionName,
			TeamID:             p.TeamID,
			Position:           p.Lane,
			IndividualPosition: p.IndividualPosition,
			Kills:              p.Kills,
			Deaths:             p.Deaths,
			Assists:            p.Assists,
			TotalDamageDealt:   p.TotalDamageDealt,
			TotalDamageToChamp: p.TotalDamageToChamp,
			TotalDamageTaken:   p.TotalDamageTaken,
			GoldEarned:         p.GoldEarned,
			GoldSpent:          p.GoldSpent,
			TurretKills:        p.TurretKills,
			InhibitorKills:     p.InhibitorKills,
			TotalMinionsKilled: p.TotalMinionsKilled,
			NeutralMinions:     p.NeutralMinions,
			ChampionLevel:      p.ChampLevel,
			Items:              [7]int{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5, p.Item6},
			SummonerSpell1:     p.Summoner1ID,
			SummonerSpell2:     p.Summoner2ID,
			Win:                p.Win,
			FirstBloodKill:     p.FirstBloodKill,
			FirstTowerKill:     p.FirstTowerKill,
		}
		if p.Perks != nil {
			if len(p.Perks.Styles) > 0 {
				pr.PrimaryRuneTree = p.Perks.Styles[0].Style
			}
			if len(p.Perks.Styles) > 1 {
				pr.SecondaryRuneTree = p.Perks.Styles[1].Style
			}
		}
		participants = append(participants, pr)
	}

	if err := w.store.StoreMatch(row, teams, bans, participants); err != nil {
		return nil, err
	}
	return refs, nil
}

// shortPID returns the first 8 characters of a pid for synthesized names.
func shortPID(pid string) string {
	if len(pid) > 8 {
		return pid[:8]
	}
	return pid
}
