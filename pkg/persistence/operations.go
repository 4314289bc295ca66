package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PlayerRef identifies a player for scheduling purposes.
type PlayerRef struct {
	PID    string
	Region string
}

// execer is satisfied by both *sql.DB and *sql.Tx, so the row writers below
// work standalone and inside a transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// UpsertPlayer inserts or replaces a player row keyed on pid.
func (s *Store) UpsertPlayer(p *Player) error {
	query := `
		INSERT OR REPLACE INTO players
			(pid, summoner_id, account_id, display_name, profile_icon_id, summoner_level, region, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		p.PID, p.SummonerID, p.AccountID, p.DisplayName,
		p.ProfileIconID, p.SummonerLevel, p.Region,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert player %s: %w", p.PID, err)
	}
	return nil
}

// UpsertMatch inserts or replaces a match row keyed on match_id.
func (s *Store) UpsertMatch(m *Match) error {
	return upsertMatch(s.db, m)
}

func upsertMatch(e execer, m *Match) error {
	query := `
		INSERT OR REPLACE INTO matches
			(match_id, game_creation, game_duration, game_end_timestamp, game_id, game_mode,
			 game_name, game_type, game_version, map_id, platform_id, queue_id, tournament_code, region, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := e.Exec(query,
		m.MatchID, m.GameCreation, m.GameDuration, m.GameEndTimestamp, m.GameID, m.GameMode,
		m.GameName, m.GameType, m.GameVersion, m.MapID, m.PlatformID, m.QueueID,
		m.TournamentCode, m.Region, m.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match %s: %w", m.MatchID, err)
	}
	return nil
}

// UpsertParticipant inserts or replaces a participant row keyed on
// (match_id, pid).
func (s *Store) UpsertParticipant(p *Participant) error {
	return upsertParticipant(s.db, p)
}

func upsertParticipant(e execer, p *Participant) error {
	query := `
		INSERT OR REPLACE INTO participants
			(match_id, pid, display_name, champion_id, champion_name, team_id, position, individual_position,
			 kills, deaths, assists, total_damage_dealt, total_damage_dealt_to_champions, total_damage_taken,
			 gold_earned, gold_spent, turret_kills, inhibitor_kills, total_minions_killed, neutral_minions_killed,
			 champion_level, items_0, items_1, items_2, items_3, items_4, items_5, items_6,
			 summoner_spell_1, summoner_spell_2, primary_rune_tree, secondary_rune_tree,
			 win, first_blood_kill, first_tower_kill)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := e.Exec(query,
		p.MatchID, p.PID, p.DisplayName, p.ChampionID, p.ChampionName, p.TeamID,
		p.Position, p.IndividualPosition,
		p.Kills, p.Deaths, p.Assists, p.TotalDamageDealt, p.TotalDamageToChamp, p.TotalDamageTaken,
		p.GoldEarned, p.GoldSpent, p.TurretKills, p.InhibitorKills, p.TotalMinionsKilled, p.NeutralMinions,
		p.ChampionLevel, p.Items[0], p.Items[1], p.Items[2], p.Items[3], p.Items[4], p.Items[5], p.Items[6],
		p.SummonerSpell1, p.SummonerSpell2, p.PrimaryRuneTree, p.SecondaryRuneTree,
		p.Win, p.FirstBloodKill, p.FirstTowerKill,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert participant %s/%s: %w", p.MatchID, p.PID, err)
	}
	return nil
}

// UpsertTeam inserts or replaces a team row keyed on (match_id, team_id).
func (s *Store) UpsertTeam(t *Team) error {
	return upsertTeam(s.db, t)
}

func upsertTeam(e execer, t *Team) error {
	query := `
		INSERT OR REPLACE INTO teams
			(match_id, team_id, win, first_baron, first_dragon, first_inhibitor, first_rift_herald, first_tower,
			 baron_kills, dragon_kills, inhibitor_kills, rift_herald_kills, tower_kills)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := e.Exec(query,
		t.MatchID, t.TeamID, t.Win, t.FirstBaron, t.FirstDragon, t.FirstInhibitor,
		t.FirstRiftHerald, t.FirstTower,
		t.BaronKills, t.DragonKills, t.InhibitorKills, t.RiftHeraldKills, t.TowerKills,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team %s/%d: %w", t.MatchID, t.TeamID, err)
	}
	return nil
}

// InsertBan appends one ban row. Bans have no natural key, so re-ingesting a
// match appends duplicates; callers skip already-stored matches to avoid this.
func (s *Store) InsertBan(b *Ban) error {
	return insertBan(s.db, b)
}

func insertBan(e execer, b *Ban) error {
	_, err := e.Exec(
		`INSERT INTO bans (match_id, team_id, champion_id, pick_turn) VALUES (?, ?, ?, ?)`,
		b.MatchID, b.TeamID, b.ChampionID, b.PickTurn,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ban for %s: %w", b.MatchID, err)
	}
	return nil
}

// StoreMatch writes a match together with its team, ban, and participant rows
// in one transaction. A match row becomes visible only when every dependent
// row committed with it, so MatchExists can safely short-circuit replays.
func (s *Store) StoreMatch(m *Match, teams []Team, bans []Ban, participants []Participant) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin match transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertMatch(tx, m); err != nil {
		return err
	}
	for i := range teams {
		if err := upsertTeam(tx, &teams[i]); err != nil {
			return err
		}
	}
	for i := range bans {
		if err := insertBan(tx, &bans[i]); err != nil {
			return err
		}
	}
	for i := range participants {
		if err := upsertParticipant(tx, &participants[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match %s: %w", m.MatchID, err)
	}
	return nil
}

// InsertTimelineEvent appends one timeline event row.
func (s *Store) InsertTimelineEvent(e *TimelineEvent) error {
	query := `
		INSERT INTO timeline_events
			(match_id, timestamp, event_type, participant_id, position_x, position_y,
			 item_id, skill_slot, level_up_type, ward_type, creator_id, killer_id, victim_id,
			 assisting_participant_ids, team_id, monster_type, monster_sub_type, lane_type, tower_type, building_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		e.MatchID, e.Timestamp, e.EventType, e.ParticipantID, e.PositionX, e.PositionY,
		e.ItemID, e.SkillSlot, e.LevelUpType, e.WardType, e.CreatorID, e.KillerID, e.VictimID,
		e.AssistingPIDs, e.TeamID, e.MonsterType, e.MonsterSubType, e.LaneType, e.TowerType, e.BuildingType,
	)
	if err != nil {
		return fmt.Errorf("failed to insert timeline event for %s: %w", e.MatchID, err)
	}
	return nil
}

// UpsertActiveGame inserts or replaces an active game keyed on game_id.
func (s *Store) UpsertActiveGame(g *ActiveGame) error {
	query := `
		INSERT OR REPLACE INTO active_games
			(game_id, game_type, game_start_time, map_id, queue_id, platform_id, game_mode, participants, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		g.GameID, g.GameType, g.GameStartTime, g.MapID, g.QueueID,
		g.PlatformID, g.GameMode, g.Participants, g.DiscoveredAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert active game %d: %w", g.GameID, err)
	}
	return nil
}

// LogAPICall appends one audit row stamped with the store's session id.
func (s *Store) LogAPICall(c *APICall) error {
	_, err := s.db.Exec(
		`INSERT INTO api_calls (session_id, endpoint, region, timestamp, response_code, rate_limit_remaining)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.sessionID, c.Endpoint, c.Region, c.Timestamp.Format(time.RFC3339),
		c.ResponseCode, c.RateLimitRemaining,
	)
	if err != nil {
		return fmt.Errorf("failed to log api call: %w", err)
	}
	return nil
}

// UpdateCrawlerState overwrites the singleton progress row.
func (s *Store) UpdateCrawlerState(state *CrawlerState) error {
	_, err := s.db.Exec(
		`UPDATE crawler_state SET
			last_processed_player = ?, total_players_processed = ?, total_matches_processed = ?,
			queue_size = ?, last_update = ?
		 WHERE id = 1`,
		state.LastProcessedPlayer, state.TotalPlayersProcessed, state.TotalMatchesProcessed,
		state.QueueSize, state.LastUpdate.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to update crawler state: %w", err)
	}
	return nil
}

// GetCrawlerState reads the singleton progress row. Returns nil without error
// if the row is missing or unparseable.
func (s *Store) GetCrawlerState() (*CrawlerState, error) {
	var (
		state         CrawlerState
		lastUpdateStr string
	)
	err := s.db.QueryRow(
		`SELECT last_processed_player, total_players_processed, total_matches_processed, queue_size, last_update
		 FROM crawler_state WHERE id = 1`,
	).Scan(&state.LastProcessedPlayer, &state.TotalPlayersProcessed,
		&state.TotalMatchesProcessed, &state.QueueSize, &lastUpdateStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read crawler state: %w", err)
	}

	if t, perr := time.Parse(time.RFC3339, lastUpdateStr); perr == nil {
		state.LastUpdate = t
	}
	return &state, nil
}

// PlayerExists reports whether a player row exists for the pid.
func (s *Store) PlayerExists(pid string) (bool, error) {
	var count int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM players WHERE pid = ?`, pid).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check player %s: %w", pid, err)
	}
	return count > 0, nil
}

// MatchExists reports whether a match row exists for the match id.
func (s *Store) MatchExists(matchID string) (bool, error) {
	var count int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM matches WHERE match_id = ?`, matchID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check match %s: %w", matchID, err)
	}
	return count > 0, nil
}

// CountPlayers returns the total number of player rows.
func (s *Store) CountPlayers() (int64, error) {
	return s.countRows("players")
}

// CountMatches returns the total number of match rows.
func (s *Store) CountMatches() (int64, error) {
	return s.countRows("matches")
}

// CountParticipants returns the total number of participant rows.
func (s *Store) CountParticipants() (int64, error) {
	return s.countRows("participants")
}

// CountActiveGames returns the total number of active game rows.
func (s *Store) CountActiveGames() (int64, error) {
	return s.countRows("active_games")
}

func (s *Store) countRows(table string) (int64, error) {
	var count int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// PlayersForUpdate returns up to limit known players ordered least-recently
// refreshed first. This powers refresh seeding on startup.
func (s *Store) PlayersForUpdate(limit int) ([]PlayerRef, error) {
	rows, err := s.db.Query(
		`SELECT pid, region FROM players ORDER BY updated_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for update: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []PlayerRef
	for rows.Next() {
		var ref PlayerRef
		if err := rows.Scan(&ref.PID, &ref.Region); err != nil {
			return nil, fmt.Errorf("failed to scan player ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players for update: %w", err)
	}
	return refs, nil
}

// UniqueNewPlayerIDs returns up to limit pids seen in participants but not
// yet present in players. This powers discovery backfill.
func (s *Store) UniqueNewPlayerIDs(limit int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT pid FROM participants
		 WHERE pid NOT IN (SELECT pid FROM players)
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query new player ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pids []string
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("failed to scan pid: %w", err)
		}
		pids = append(pids, pid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate new player ids: %w", err)
	}
	return pids, nil
}

// RecentAPICallCount returns how many audit rows were written for the
// endpoint and region within the last minutes.
func (s *Store) RecentAPICallCount(endpoint, region string, minutes int) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM api_calls
		 WHERE endpoint = ? AND region = ? AND timestamp > datetime('now', '-' || ? || ' minutes')`,
		endpoint, region, minutes,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent api calls: %w", err)
	}
	return count, nil
}
