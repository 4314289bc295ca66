package riot

// Summoner is the summoner-v4 profile response. ID, AccountID, and Name are
// absent for some key types.
type Summoner struct {
	AccountID     *string `json:"accountId"`
	Name          *string `json:"name"`
	ID            *string `json:"id"`
	PUUID         string  `json:"puuid"`
	ProfileIconID int     `json:"profileIconId"`
	RevisionDate  int64   `json:"revisionDate"`
	SummonerLevel int     `json:"summonerLevel"`
}

// MatchDTO is the match-v5 response. Only the fields the store persists are
// declared; the rest of the payload is ignored on decode.
type MatchDTO struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

// MatchMetadata carries the match id and the participant pid list.
type MatchMetadata struct {
	DataVersion  string   `json:"dataVersion"`
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

// MatchInfo is the game-level portion of a match.
type MatchInfo struct {
	GameName         *string          `json:"gameName"`
	GameEndTimestamp *int64           `json:"gameEndTimestamp"`
	TournamentCode   *string          `json:"tournamentCode"`
	GameMode         string           `json:"gameMode"`
	GameType         string           `json:"gameType"`
	GameVersion      string           `json:"gameVersion"`
	PlatformID       string           `json:"platformId"`
	Participants     []ParticipantDTO `json:"participants"`
	Teams            []TeamDTO        `json:"teams"`
	GameCreation     int64            `json:"gameCreation"`
	GameDuration     int64            `json:"gameDuration"`
	GameID           int64            `json:"gameId"`
	MapID            int              `json:"mapId"`
	QueueID          int              `json:"queueId"`
}

// ParticipantDTO is one player's line in a match.
type ParticipantDTO struct {
	Perks              *PerksDTO `json:"perks"`
	PUUID              string    `json:"puuid"`
	SummonerName       string    `json:"summonerName"`
	ChampionName       string    `json:"championName"`
	Lane               string    `json:"lane"`
	IndividualPosition string    `json:"individualPosition"`
	ChampionID         int       `json:"championId"`
	TeamID             int       `json:"teamId"`
	Kills              int       `json:"kills"`
	Deaths             int       `json:"deaths"`
	Assists            int       `json:"assists"`
	TotalDamageDealt   int       `json:"totalDamageDealt"`
	TotalDamageToChamp int       `json:"totalDamageDealtToChampions"`
	TotalDamageTaken   int       `json:"totalDamageTaken"`
	GoldEarned         int       `json:"goldEarned"`
	GoldSpent          int       `json:"goldSpent"`
	TurretKills        int       `json:"turretKills"`
	InhibitorKills     int       `json:"inhibitorKills"`
	TotalMinionsKilled int       `json:"totalMinionsKilled"`
	NeutralMinions     int       `json:"neutralMinionsKilled"`
	ChampLevel         int       `json:"champLevel"`
	Item0              int       `json:"item0"`
	Item1              int       `json:"item1"`
	Item2              int       `json:"item2"`
	Item3              int       `json:"item3"`
	Item4              int       `json:"item4"`
	Item5              int       `json:"item5"`
	Item6              int       `json:"item6"`
	Summoner1ID        int       `json:"summoner1Id"`
	Summoner2ID        int       `json:"summoner2Id"`
	Win                bool      `json:"win"`
	FirstBloodKill     bool      `json:"firstBloodKill"`
	FirstTowerKill     bool      `json:"firstTowerKill"`
}

// PerksDTO holds rune selections; styles[0] is the primary tree and
// styles[1] the secondary.
type PerksDTO struct {
	Styles []PerkStyleDTO `json:"styles"`
}

// PerkStyleDTO is one rune tree selection.
type PerkStyleDTO struct {
	Description string `json:"description"`
	Style       int    `json:"style"`
}

// TeamDTO is one team's line in a match.
type TeamDTO struct {
	Objectives ObjectivesDTO `json:"objectives"`
	Bans       []BanDTO      `json:"bans"`
	TeamID     int           `json:"teamId"`
	Win        bool          `json:"win"`
}

// BanDTO is one champion ban; ChampionID <= 0 means no ban was made.
type BanDTO struct {
	ChampionID int `json:"championId"`
	PickTurn   int `json:"pickTurn"`
}

// ObjectivesDTO aggregates team objective stats.
type ObjectivesDTO struct {
	Baron      ObjectiveDTO `json:"baron"`
	Dragon     ObjectiveDTO `json:"dragon"`
	Inhibitor  ObjectiveDTO `json:"inhibitor"`
	RiftHerald ObjectiveDTO `json:"riftHerald"`
	Tower      ObjectiveDTO `json:"tower"`
}

// ObjectiveDTO is one objective's first-take flag and kill count.
type ObjectiveDTO struct {
	First bool `json:"first"`
	Kills int  `json:"kills"`
}

// TimelineDTO is the match-v5 timeline response, trimmed to events.
type TimelineDTO struct {
	Info TimelineInfo `json:"info"`
}

// TimelineInfo holds the per-minute frames.
type TimelineInfo struct {
	Frames []TimelineFrame `json:"frames"`
}

// TimelineFrame is one frame's event list.
type TimelineFrame struct {
	Events []TimelineEventDTO `json:"events"`
}

// TimelineEventDTO is one raw timeline event. Fields are sparse; each event
// type populates a different subset.
type TimelineEventDTO struct {
	Position                *PositionDTO `json:"position"`
	ParticipantID           *int         `json:"participantId"`
	ItemID                  *int         `json:"itemId"`
	SkillSlot               *int         `json:"skillSlot"`
	LevelUpType             *string      `json:"levelUpType"`
	WardType                *string      `json:"wardType"`
	CreatorID               *int         `json:"creatorId"`
	KillerID                *int         `json:"killerId"`
	VictimID                *int         `json:"victimId"`
	TeamID                  *int         `json:"teamId"`
	MonsterType             *string      `json:"monsterType"`
	MonsterSubType          *string      `json:"monsterSubType"`
	LaneType                *string      `json:"laneType"`
	TowerType               *string      `json:"towerType"`
	BuildingType            *string      `json:"buildingType"`
	Type                    string       `json:"type"`
	AssistingParticipantIDs []int        `json:"assistingParticipantIds"`
	Timestamp               int64        `json:"timestamp"`
}

// PositionDTO is a map coordinate.
type PositionDTO struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FeaturedGames is the spectator-v5 featured games response: a sample of
// live games the upstream rotates on its own schedule.
type FeaturedGames struct {
	GameList              []FeaturedGameInfo `json:"gameList"`
	ClientRefreshInterval int64              `json:"clientRefreshInterval"`
}

// FeaturedGameInfo is one live game in the featured sample.
type FeaturedGameInfo struct {
	Participants      []FeaturedGameParticipant `json:"participants"`
	GameMode          string                    `json:"gameMode"`
	GameType          string                    `json:"gameType"`
	PlatformID        string                    `json:"platformId"`
	GameID            int64                     `json:"gameId"`
	GameStartTime     int64                     `json:"gameStartTime"`
	MapID             int                       `json:"mapId"`
	GameQueueConfigID int                       `json:"gameQueueConfigId"`
}

// FeaturedGameParticipant is one player in a live featured game.
type FeaturedGameParticipant struct {
	PUUID      string `json:"puuid"`
	RiotID     string `json:"riotId"`
	ChampionID int64  `json:"championId"`
	TeamID     int    `json:"teamId"`
	Bot        bool   `json:"bot"`
}

// LeagueList is the league-v4 response for an apex tier.
type LeagueList struct {
	LeagueID string        `json:"leagueId"`
	Tier     string        `json:"tier"`
	Name     string        `json:"name"`
	Queue    string        `json:"queue"`
	Entries  []LeagueEntry `json:"entries"`
}

// LeagueEntry is one ranked player in a league list.
type LeagueEntry struct {
	PUUID        string `json:"puuid"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Veteran      bool   `json:"veteran"`
	Inactive     bool   `json:"inactive"`
	FreshBlood   bool   `json:"freshBlood"`
	HotStreak    bool   `json:"hotStreak"`
}
