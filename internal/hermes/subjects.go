package hermes

const (
	SubjectAnalysisRequest = "vantage.analysis.request"

	// Wildcards the scouts and the broker subscribe to.
	SubjectLocationRequests   = "vantage.score.*.location.request"
	SubjectCompetitorRequests = "vantage.score.*.competitor.request"
	SubjectRevenueRequests    = "vantage.score.*.revenue.request"
	SubjectScoreResponses     = "vantage.score.*.*.response"
	SubjectAnalysisEvents     = "vantage.analysis.>"

	StreamName   = "VANTAGE_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectScoreRequest(analysisID string, source Source) string {
	return "vantage.score." + analysisID + "." + string(source) + ".request"
}

func SubjectScoreResponse(analysisID string, source Source) string {
	return "vantage.score." + analysisID + "." + string(source) + ".response"
}

func SubjectAnalysisCompleted(analysisID string) string {
	return "vantage.analysis." + analysisID + ".completed"
}

func SubjectAnalysisFailed(analysisID string) string {
	return "vantage.analysis." + analysisID + ".failed"
}

func SubjectAnalysisExpired(analysisID string) string {
	return "vantage.analysis." + analysisID + ".expired"
}

// AnalysisIDFromSubject extracts the correlation id from a vantage.score.<id>.… subject.
func AnalysisIDFromSubject(subject string) string {
	tokens := splitSubject(subject)
	if len(tokens) < 3 || tokens[0] != "vantage" || tokens[1] != "score" {
		return ""
	}
	return tokens[2]
}
