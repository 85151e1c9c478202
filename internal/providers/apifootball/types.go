package apifootball

import "encoding/json"

type fixturesResponse struct {
	Errors   json.RawMessage   `json:"errors"`
	Results  int               `json:"results"`
	Response []fixtureResponse `json:"response"`
}

type fixtureResponse struct {
	Fixture fixtureInfo `json:"fixture"`
	League  leagueInfo  `json:"league"`
	Teams   teamsInfo   `json:"teams"`
	Goals   goalsInfo   `json:"goals"`
}

type fixtureInfo struct {
	ID        int          `json:"id"`
	Date      string       `json:"date"`
	Timestamp int64        `json:"timestamp"`
	Status    fixtureState `json:"status"`
}

type fixtureState struct {
	Long    string `json:"long"`
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

type leagueInfo struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Season int    `json:"season"`
}

type teamsInfo struct {
	Home teamInfo `json:"home"`
	Away teamInfo `json:"away"`
}

type teamInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type goalsInfo struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}
