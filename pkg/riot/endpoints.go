package riot

import (
	"fmt"
	"net/url"
	"strings"
)

// Ranked queue identifiers accepted by the league endpoints.
const (
	QueueRankedSolo5x5 = "RANKED_SOLO_5x5"
	QueueRankedFlexSR  = "RANKED_FLEX_SR"
)

// QueueIDRankedSolo is the numeric queue id for ranked solo matches.
const QueueIDRankedSolo = 420

// URL builders. Summoner and league endpoints hang off the platform host,
// match endpoints off the continental host; the client picks the base.

func summonerByPUUIDURL(base, pid string) string {
	return fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", base, url.PathEscape(pid))
}

func summonerByIDURL(base, summonerID string) string {
	return fmt.Sprintf("%s/lol/summoner/v4/summoners/%s", base, url.PathEscape(summonerID))
}

func matchIDsByPUUIDURL(base, pid string, start, count *int) string {
	u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids", base, url.PathEscape(pid))

	var params []string
	if start != nil {
		params = append(params, fmt.Sprintf("start=%d", *start))
	}
	if count != nil {
		params = append(params, fmt.Sprintf("count=%d", *count))
	}
	if len(params) == 0 {
		return u
	}
	return u + "?" + strings.Join(params, "&")
}

func matchByIDURL(base, matchID string) string {
	return fmt.Sprintf("%s/lol/match/v5/matches/%s", base, url.PathEscape(matchID))
}

func matchTimelineURL(base, matchID string) string {
	return fmt.Sprintf("%s/lol/match/v5/matches/%s/timeline", base, url.PathEscape(matchID))
}

func featuredGamesURL(base string) string {
	return base + "/lol/spectator/v5/featured-games"
}

func masterLeagueURL(base, queue string) string {
	return fmt.Sprintf("%s/lol/league/v4/masterleagues/by-queue/%s", base, url.PathEscape(queue))
}

func grandmasterLeagueURL(base, queue string) string {
	return fmt.Sprintf("%s/lol/league/v4/grandmasterleagues/by-queue/%s", base, url.PathEscape(queue))
}

func challengerLeagueURL(base, queue string) string {
	return fmt.Sprintf("%s/lol/league/v4/challengerleagues/by-queue/%s", base, url.PathEscape(queue))
}
