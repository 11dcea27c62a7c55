// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON. Each carries validate tags checked by
middleware.DecodeAndValidate:

  - CreateElectionRequest: title, month (YYYY-MM), creator_name, categories
  - ClaimUsernameRequest: username
  - NominateRequest: category, game_name, pitch
  - SelectNominationRequest: selected
  - SubmitBallotRequest: category, ranking (candidate IDs, most preferred first)
  - RegisterDeviceRequest: platform

# Response Types

  - CreateElectionResponse: election_id, admin_key, share_slug, share_url
  - ClaimUsernameResponse: voter_token
  - NominateResponse: nomination_id
  - SubmitBallotResponse: ballot_id, message
  - MyBallotResponse: the voter's current ranking
  - CloseElectionResponse: closed_at, one snapshot per category
  - ResultsResponse: winner, rounds and transfer edges of one category
  - HistoryResponse: closed elections with their winners
  - ErrorResponse: error, message

# Domain Types

  - Election: monthly election metadata and lifecycle state
  - Nomination: a game put forward for a category
  - Candidate: a nomination selected by the jury
  - Ballot: voter submission metadata
  - ResultSnapshot: immutable IRV result for one category

# Constants

Status values:

	StatusNominating = "nominating"
	StatusJury       = "jury"
	StatusVoting     = "voting"
	StatusClosed     = "closed"

Voting method:

	MethodIRV = "irv"

Device roles:

	RoleVoter = "voter"
	RoleAdmin = "admin"
*/
package models
