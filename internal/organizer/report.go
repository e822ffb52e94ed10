package organizer

import (
	"time"

	"shelfmark/internal/classifier"
	"shelfmark/internal/store"
)

// Outcome distinguishes the materially different end states of a run.
// A boolean cannot express "nothing needed doing" vs "failed before
// doing anything" vs "completed with some mutation errors".
type Outcome string

const (
	// OutcomeNothingToDo means no candidates survived the scan.
	OutcomeNothingToDo Outcome = "nothing_to_do"
	// OutcomeCompleted means every mutation succeeded.
	OutcomeCompleted Outcome = "completed"
	// OutcomeCompletedWithErrors means all batches classified but some
	// individual mutations failed.
	OutcomeCompletedWithErrors Outcome = "completed_with_errors"
	// OutcomeFailed means the run aborted before applying any plan.
	OutcomeFailed Outcome = "failed"
)

// Move itemizes one applied bookmark relocation.
type Move struct {
	ItemID string `json:"itemId"`
	Title  string `json:"title"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// RenamedFolder itemizes one reserved-folder rename.
type RenamedFolder struct {
	FolderID string `json:"folderId"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// Report is the sole return value of a pipeline run. It is fully
// reconstructible from the mutations actually applied, not a
// best-effort log.
type Report struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Outcome    Outcome   `json:"outcome"`

	BookmarksMoved      int `json:"bookmarksMoved"`
	FoldersCreated      int `json:"foldersCreated"`
	DuplicatesRemoved   int `json:"duplicatesRemoved"`
	EmptyFoldersRemoved int `json:"emptyFoldersRemoved"`
	Skipped             int `json:"skipped"`

	Moves             []Move              `json:"moves,omitempty"`
	CreatedFolders    []string            `json:"createdFolders,omitempty"`
	RenamedFolders    []RenamedFolder     `json:"renamedFolders,omitempty"`
	RemovedDuplicates []store.RemovedItem `json:"removedDuplicates,omitempty"`
	RemovedFolders    []store.RemovedItem `json:"removedFolders,omitempty"`

	Coercions []classifier.Coercion `json:"coercions,omitempty"`
	Usage     classifier.Usage      `json:"usage"`

	Errors []string `json:"errors,omitempty"`
	// FailedBatch is the 1-based batch number that aborted the run, 0
	// if none did.
	FailedBatch int `json:"failedBatch,omitempty"`
}

func (r *Report) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// Phase names a pipeline step for progress reporting.
type Phase string

// Pipeline phases in execution order.
const (
	PhaseScanning    Phase = "scanning"
	PhaseDedup       Phase = "deduplicating"
	PhaseClassifying Phase = "classifying"
	PhaseMutating    Phase = "mutating"
	PhasePruning     Phase = "pruning"
	PhaseDone        Phase = "done"
)

// Progress is delivered to the caller after significant sub-steps:
// duplicate removal, each batch, every few moves and pruning. The
// pipeline exposes no mid-run cancellation; this is informational.
type Progress struct {
	Phase        Phase
	Batch        int
	TotalBatches int
	Moved        int
	TotalMoves   int
	Message      string
}

// ProgressFunc receives progress updates. May be nil.
type ProgressFunc func(Progress)

// Preview estimates what a run would do, without any network call or
// mutation.
type Preview struct {
	TotalCandidates  int      `json:"totalCandidates"`
	FoldersToCreate  []string `json:"foldersToCreate"`
	EstimatedBatches int      `json:"estimatedBatches"`
}
