package domain

// Outcome is the resolved result of an answer submission.
type Outcome int

const (
	OutcomeCorrect Outcome = iota
	OutcomeMalformed
	OutcomeNotFound
	OutcomeWrongAnswer
	OutcomeTooFar
	OutcomeNoTeam
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeWrongAnswer:
		return "wrong-answer"
	case OutcomeTooFar:
		return "too-far"
	case OutcomeNoTeam:
		return "no-team"
	default:
		return "unknown"
	}
}

// Submission is the ephemeral context of one checkAnswer call.
type Submission struct {
	QuestionID string
	Answer     string
	Position   GeoPoint
	UserID     string
}

// CheckResult carries the outcome of a submission. Question and Next are set only
// when Outcome is OutcomeCorrect.
type CheckResult struct {
	Outcome  Outcome
	Question *Question
	Next     *Target
	Credited bool // false when the team had already been credited
}
