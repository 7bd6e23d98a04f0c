package pipeline

import (
	"encoding/json"
	"strconv"
	"time"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeNoChanges            Outcome = "no_changes"
	OutcomeApplied              Outcome = "applied"
	OutcomeConfigurationFailure Outcome = "configuration_failure"
	OutcomeIntegrityFailure     Outcome = "integrity_failure"
	OutcomeOperationalFailure   Outcome = "operational_failure"
)

// Success reports whether the outcome is a successful one.
func (o Outcome) Success() bool {
	return o == OutcomeNoChanges || o == OutcomeApplied
}

// FilesTargeted is the file filter size, or unrestricted.
type FilesTargeted struct {
	Count        int
	Unrestricted bool
}

func (f FilesTargeted) String() string {
	if f.Unrestricted {
		return "unrestricted"
	}
	return strconv.Itoa(f.Count)
}

// MarshalJSON renders a count or the string "unrestricted".
func (f FilesTargeted) MarshalJSON() ([]byte, error) {
	if f.Unrestricted {
		return json.Marshal("unrestricted")
	}
	return json.Marshal(f.Count)
}

// Result is the outcome of one run. Each Outcome has a single constructor
// below; fields an outcome does not define stay zero.
type Result struct {
	RunID                 string        `json:"run_id,omitempty"`
	Outcome               Outcome       `json:"outcome"`
	RepositoriesAnalyzed  int           `json:"repositories_analyzed"`
	FilesTargeted         FilesTargeted `json:"files_targeted"`
	ImprovementsGenerated int           `json:"improvements_generated"`
	ImprovementsApplied   int           `json:"improvements_applied"`
	Branch                string        `json:"branch,omitempty"`
	TargetPath            string        `json:"target_path,omitempty"`
	Error                 string        `json:"error,omitempty"`
	Err                   error         `json:"-"`
	Duration              time.Duration `json:"-"`
}

// Success reports whether the run succeeded, including the no-op case.
func (r Result) Success() bool { return r.Outcome.Success() }

// MarshalJSON adds the derived success flag and a readable duration.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Success  bool   `json:"success"`
		Duration string `json:"duration"`
	}{
		plain:    plain(r),
		Success:  r.Success(),
		Duration: r.Duration.Round(time.Millisecond).String(),
	})
}

// ConfigurationFailure builds the result for a run that could not be
// constructed. req is nil when the request itself was invalid.
func ConfigurationFailure(err error, req *Request) Result {
	r := Result{
		Outcome: OutcomeConfigurationFailure,
		Error:   err.Error(),
		Err:     err,
	}
	if req != nil {
		r.RepositoriesAnalyzed = req.Repositories()
		r.FilesTargeted = req.FilesTargeted()
	}
	return r
}

// runRecord holds what is known about a run before its terminal state.
type runRecord struct {
	id         string
	total      int
	files      FilesTargeted
	targetPath string
	started    time.Time
	now        func() time.Time
}

func (rr *runRecord) base(outcome Outcome) Result {
	return Result{
		RunID:                rr.id,
		Outcome:              outcome,
		RepositoriesAnalyzed: rr.total,
		FilesTargeted:        rr.files,
		TargetPath:           rr.targetPath,
		Duration:             rr.now().Sub(rr.started),
	}
}

func (rr *runRecord) noChanges() Result {
	return rr.base(OutcomeNoChanges)
}

// applied reports a finished apply. With nothing applied no branch exists,
// so the run counts as no changes and carries no branch.
func (rr *runRecord) applied(generated, applied int, branch string) Result {
	if applied == 0 {
		r := rr.base(OutcomeNoChanges)
		r.ImprovementsGenerated = generated
		return r
	}
	r := rr.base(OutcomeApplied)
	r.ImprovementsGenerated = generated
	r.ImprovementsApplied = applied
	r.Branch = branch
	return r
}

func (rr *runRecord) integrityFailure(err *IntegrityError) Result {
	r := rr.base(OutcomeIntegrityFailure)
	r.Error = err.Error()
	r.Err = err
	return r
}

func (rr *runRecord) operationalFailure(err *OperationalError, generated int) Result {
	r := rr.base(OutcomeOperationalFailure)
	r.ImprovementsGenerated = generated
	r.Error = err.Error()
	r.Err = err
	return r
}
