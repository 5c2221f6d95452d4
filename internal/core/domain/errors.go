package domain

import "errors"

var (
	// ErrMalformedRequest marks unparseable identifiers or missing fields.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrQuestionNotFound is returned for well-formed but unknown question IDs.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoTeam is returned when a user belongs to no team.
	ErrNoTeam = errors.New("user has no team")
	// ErrTeamDirectoryUnavailable wraps lookup failures and timeouts of the team store.
	ErrTeamDirectoryUnavailable = errors.New("team directory unavailable")
	// ErrNoCandidates is returned when there is no question to select at all.
	ErrNoCandidates = errors.New("no candidate questions")
)
