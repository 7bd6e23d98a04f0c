package pipeline

// StageStatus is the state a stage reports through ProgressFunc.
type StageStatus string

const (
	StatusStarted   StageStatus = "started"
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
	StatusSkipped   StageStatus = "skipped"
)

// StageProgress reports a stage transition.
type StageProgress struct {
	RunID   string      `json:"run_id"`
	Stage   Stage       `json:"stage"`
	Status  StageStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// ProgressFunc receives stage transitions. It is called synchronously from Run.
type ProgressFunc func(StageProgress)
