package persistence

import "time"

// Player is one row in the players table. SummonerID and AccountID are
// legacy upstream identifiers kept as nullable shadow fields; the crawler
// keys everything on PID.
type Player struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SummonerID    *string
	AccountID     *string
	DisplayName   *string
	PID           string
	Region        string
	ProfileIconID int
	SummonerLevel int
}

// Match is one row in the matches table.
type Match struct {
	CreatedAt        time.Time
	TournamentCode   *string
	MatchID          string
	GameMode         string
	GameName         string
	GameType         string
	GameVersion      string
	PlatformID       string
	Region           string
	GameCreation     int64
	GameDuration     int64
	GameEndTimestamp int64
	GameID           int64
	MapID            int
	QueueID          int
}

// Participant is one player's performance in one match.
type Participant struct {
	MatchID            string
	PID                string
	DisplayName        string
	ChampionName       string
	Position           string
	IndividualPosition string
	ChampionID         int
	TeamID             int
	Kills              int
	Deaths             int
	Assists            int
	TotalDamageDealt   int
	TotalDamageToChamp int
	TotalDamageTaken   int
	GoldEarned         int
	GoldSpent          int
	TurretKills        int
	InhibitorKills     int
	TotalMinionsKilled int
	NeutralMinions     int
	ChampionLevel      int
	Items              [7]int
	SummonerSpell1     int
	SummonerSpell2     int
	PrimaryRuneTree    int
	SecondaryRuneTree  int
	Win                bool
	FirstBloodKill     bool
	FirstTowerKill     bool
}

// Team is one team's objective line in one match.
type Team struct {
	MatchID         string
	TeamID          int
	BaronKills      int
	DragonKills     int
	InhibitorKills  int
	RiftHeraldKills int
	TowerKills      int
	Win             bool
	FirstBaron      bool
	FirstDragon     bool
	FirstInhibitor  bool
	FirstRiftHerald bool
	FirstTower      bool
}

// Ban is one champion ban. Append-only; bans have no natural key.
type Ban struct {
	MatchID    string
	TeamID     int
	ChampionID int
	PickTurn   int
}

// TimelineEvent is one event from a match timeline. Optional fields are
// pointers; most event types populate only a few columns.
type TimelineEvent struct {
	LevelUpType     *string
	WardType        *string
	MonsterType     *string
	MonsterSubType  *string
	LaneType        *string
	TowerType       *string
	BuildingType    *string
	AssistingPIDs   *string
	ParticipantID   *int
	PositionX       *int
	PositionY       *int
	ItemID          *int
	SkillSlot       *int
	CreatorID       *int
	KillerID        *int
	VictimID        *int
	TeamID          *int
	MatchID         string
	EventType       string
	Timestamp       int64
}

// CrawlerState is the singleton progress row (id = 1).
type CrawlerState struct {
	LastUpdate            time.Time
	LastProcessedPlayer   *string
	TotalPlayersProcessed int64
	TotalMatchesProcessed int64
	QueueSize             int
}

// APICall is one audit row for an upstream request.
type APICall struct {
	Timestamp          time.Time
	RateLimitRemaining *int
	SessionID          string
	Endpoint           string
	Region             string
	ResponseCode       int
}

// ActiveGame is an ongoing game discovered during crawling. Participants is
// a JSON blob; active games are observational, not part of the match graph.
type ActiveGame struct {
	DiscoveredAt  time.Time
	GameType      string
	PlatformID    string
	GameMode      string
	Participants  string
	GameID        int64
	GameStartTime int64
	MapID         int
	QueueID       int
}
