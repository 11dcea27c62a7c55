package models

import (
	"time"

	"github.com/danielhkuo/gotm/irv"
)

// Election status constants
const (
	StatusNominating = "nominating"
	StatusJury       = "jury"
	StatusVoting     = "voting"
	StatusClosed     = "closed"
)

// Voting method constants
const (
	MethodIRV = "irv"
)

// DefaultCategory is used when an election is created without categories
const DefaultCategory = "main"

// Request types

type CreateElectionRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Month       string   `json:"month" validate:"required,datetime=2006-01"`
	CreatorName string   `json:"creator_name" validate:"required,max=100"`
	Categories  []string `json:"categories" validate:"omitempty,max=10,unique,dive,required,max=40"`
}

type ClaimUsernameRequest struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
}

type NominateRequest struct {
	Category string `json:"category"`
	GameName string `json:"game_name" validate:"required,max=200"`
	Pitch    string `json:"pitch" validate:"max=2000"`
}

type SelectNominationRequest struct {
	Selected bool `json:"selected"`
}

// ranking: candidate IDs, most preferred first
type SubmitBallotRequest struct {
	Category string   `json:"category"`
	Ranking  []string `json:"ranking" validate:"required,min=1,unique,dive,required"`
}

// Response types

type CreateElectionResponse struct {
	ElectionID string `json:"election_id"`
	AdminKey   string `json:"admin_key"`
	ShareSlug  string `json:"share_slug"`
	ShareURL   string `json:"share_url"`
}

type ClaimUsernameResponse struct {
	VoterToken string `json:"voter_token"`
}

type NominateResponse struct {
	NominationID string `json:"nomination_id"`
}

type SubmitBallotResponse struct {
	BallotID string `json:"ballot_id"`
	Message  string `json:"message"`
}

type MyBallotResponse struct {
	BallotID    string      `json:"ballot_id"`
	Category    string      `json:"category"`
	Ranking     []Candidate `json:"ranking"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

type CloseElectionResponse struct {
	ClosedAt  time.Time        `json:"closed_at"`
	Snapshots []ResultSnapshot `json:"snapshots"`
}

// Domain types

type Election struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Month       string     `json:"month"`
	CreatorName string     `json:"creator_name"`
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	Categories  []string   `json:"categories"`
	ShareSlug   string     `json:"share_slug"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Nomination struct {
	ID         string    `json:"id"`
	ElectionID string    `json:"election_id"`
	Category   string    `json:"category"`
	GameName   string    `json:"game_name"`
	Pitch      string    `json:"pitch,omitempty"`
	Selected   bool      `json:"selected"`
	CreatedAt  time.Time `json:"created_at"`
}

// Candidate is a jury-selected nomination
type Candidate struct {
	ID       string `json:"id"`
	GameName string `json:"game_name"`
}

type ElectionWithNominations struct {
	Election    Election     `json:"election"`
	Nominations []Nomination `json:"nominations"`
}

type ElectionWithCandidates struct {
	Election   Election               `json:"election"`
	Candidates map[string][]Candidate `json:"candidates"` // category -> candidates
}

type Ballot struct {
	ID          string    `json:"id"`
	ElectionID  string    `json:"election_id"`
	Category    string    `json:"category"`
	VoterToken  string    `json:"-"` // Never expose in JSON
	SubmittedAt time.Time `json:"submitted_at"`
	IPHash      *string   `json:"-"` // Never expose in JSON
	UserAgent   *string   `json:"-"` // Never expose in JSON
}

// IRV Result Types

type ResultSnapshot struct {
	ID         string      `json:"id"`
	ElectionID string      `json:"election_id"`
	Category   string      `json:"category"`
	Method     string      `json:"method"`
	ComputedAt time.Time   `json:"computed_at"`
	Winner     *irv.Vertex `json:"winner,omitempty"`
	Rounds     []irv.Round `json:"rounds"`
	Edges      []irv.Edge  `json:"edges"`
	InputsHash string      `json:"inputs_hash"` // Hash of all ballot IDs for verification
}

// ResultsResponse is GET /elections/{slug}/results/{category}.
// LegacyEdges replaces Edges when ?format=legacy is requested.
type ResultsResponse struct {
	Election    Election         `json:"election"`
	Category    string           `json:"category"`
	BallotCount int              `json:"ballot_count"`
	Winner      *irv.Vertex      `json:"winner,omitempty"`
	Rounds      []irv.Round      `json:"rounds"`
	Edges       []irv.Edge       `json:"edges,omitempty"`
	LegacyEdges []irv.LegacyEdge `json:"legacy_edges,omitempty"`
	ComputedAt  time.Time        `json:"computed_at"`
}

type BallotCountResponse struct {
	BallotCount int            `json:"ballot_count"`
	Categories  map[string]int `json:"categories"`
}

type CategoryWinner struct {
	Category string `json:"category"`
	GameName string `json:"game_name"`
	Votes    int    `json:"votes"`
}

type HistoryEntry struct {
	ElectionID string           `json:"election_id"`
	Title      string           `json:"title"`
	Month      string           `json:"month"`
	ShareSlug  string           `json:"share_slug"`
	ClosedAt   *time.Time       `json:"closed_at,omitempty"`
	Winners    []CategoryWinner `json:"winners"`
}

type HistoryResponse struct {
	Elections []HistoryEntry `json:"elections"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
