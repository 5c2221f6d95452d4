package telemetry

// Span names.
const (
	SpanCheckAnswer = "game.check_answer"
	SpanGetTarget   = "game.get_target"
	SpanNearby      = "game.nearby"
	SpanTeamLookup  = "game.team_lookup"
	SpanSyncFlush   = "game.sync_flush"
	SpanAwardPoints = "game.award_points"
	SpanLeaderboard = "game.leaderboard"
)

// Attribute keys.
const (
	AttrQuestionID = "game.question_id"
	AttrTeamID     = "game.team_id"
	AttrUserID     = "game.user_id"
	AttrOutcome    = "game.outcome"
	AttrDistance   = "game.distance_meters"
	AttrFallback   = "game.fallback"
	AttrFinds      = "game.finds"
)
