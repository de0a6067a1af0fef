package types

// Stage identifies a step in the pipeline's progress stream.
type Stage string

const (
	StageFetch         Stage = "fetch"
	StageFetchComplete Stage = "fetch_complete"
	StageProcessing    Stage = "processing"
	StageDuplicate     Stage = "duplicate"
	StageScored        Stage = "scored"
	StageRejected      Stage = "rejected"
	StageSummarizing   Stage = "summarizing"
	StageCurated       Stage = "curated"
	StageError         Stage = "error"
	StageCancelled     Stage = "cancelled"
	StageComplete      Stage = "complete"
	StageFatalError    Stage = "fatal_error"
)

// ProgressEvent is one record in the ordered progress stream a caller
// can render as a live log. Current/Total/Score are filled only where
// they make sense for the stage.
type ProgressEvent struct {
	Stage   Stage   `json:"stage"`
	Message string  `json:"message"`
	Current int     `json:"current,omitempty"`
	Total   int     `json:"total,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Result is the aggregated outcome of one pipeline pass.
type Result struct {
	Total      int      `json:"total"`
	Processed  int      `json:"processed"`
	Duplicates int      `json:"duplicates"`
	LowScore   int      `json:"low_score"`
	Curated    int      `json:"curated"`
	Errors     []string `json:"errors,omitempty"`
}
