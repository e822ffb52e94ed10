// Package organizer drives the reorganization pipeline: scan, duplicate
// removal, batch classification, reconciliation, mutation and pruning.
package organizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shelfmark/internal/classifier"
	"shelfmark/internal/config"
	"shelfmark/internal/history"
	"shelfmark/internal/model"
	"shelfmark/internal/store"
)

// ErrRunInProgress is returned when a run is requested while another is
// active. Runs are never queued or merged.
var ErrRunInProgress = errors.New("organizer: a run is already in progress")

const progressMoveInterval = 10

// Classifier resolves one batch into destinations. Satisfied by
// classifier.Client.
type Classifier interface {
	ClassifyBatch(ctx context.Context, items []classifier.Item, vocab []string, destCounts map[string]int) (classifier.Result, error)
}

// History tracks which items this tool has already placed. Satisfied by
// history.Tracker.
type History interface {
	MovedIDs(ctx context.Context) (map[string]bool, error)
	MarkMoved(ctx context.Context, itemID, category string) error
	Clear(ctx context.Context) error
	MarkAllOrganized(ctx context.Context, itemIDs []string) (int, error)
}

// ReportStore persists the outcome report of the last run. Satisfied by
// storage.DB.
type ReportStore interface {
	SaveLastReport(ctx context.Context, data []byte) error
}

// Params holds the collaborators of an Organizer.
type Params struct {
	Store      *store.Adapter
	Classifier Classifier
	History    History
	Reports    ReportStore // optional
	Config     config.Config
	Logger     *slog.Logger
}

// Organizer composes the store adapter, the classifier client and the
// history tracker into the reorganization pipeline. Only one run may be
// active at a time.
type Organizer struct {
	store      *store.Adapter
	classifier Classifier
	history    History
	reports    ReportStore
	cfg        config.Config
	log        *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates an Organizer.
func New(params Params) *Organizer {
	log := params.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Organizer{
		store:      params.Store,
		classifier: params.Classifier,
		history:    params.History,
		reports:    params.Reports,
		cfg:        params.Config,
		log:        log,
	}
}

type runScope struct {
	scoped    bool
	folderIDs []string
	excluded  []string
}

// Execute runs the full pipeline over the whole tree, minus the
// excluded folders. A second call while a run is active returns
// ErrRunInProgress immediately.
func (o *Organizer) Execute(ctx context.Context, excludedFolderIDs []string, onProgress ProgressFunc) (*Report, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()
	return o.run(ctx, runScope{excluded: excludedFolderIDs}, onProgress), nil
}

// ExecuteForFolders runs the pipeline over the given folders (and their
// descendants) only. The onFullScanOnly history policy behaves like
// never here: the user explicitly pointed at these folders.
func (o *Organizer) ExecuteForFolders(ctx context.Context, folderIDs []string, onProgress ProgressFunc) (*Report, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()
	return o.run(ctx, runScope{scoped: true, folderIDs: folderIDs}, onProgress), nil
}

func (o *Organizer) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrRunInProgress
	}
	o.running = true
	return nil
}

func (o *Organizer) end() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

// run executes the pipeline and always returns a report. Any panic is
// converted into a failed report carrying the counters accumulated so
// far; it is never silently lost.
func (o *Organizer) run(ctx context.Context, scope runScope, onProgress ProgressFunc) (report *Report) {
	report = &Report{
		RunID:     model.GenerateUUID(),
		StartedAt: time.Now(),
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("run panicked", "panic", r)
			report.Outcome = OutcomeFailed
			report.Errors = append(report.Errors, fmt.Sprintf("internal error: %v", r))
		}
		report.FinishedAt = time.Now()
		o.saveReport(report)
	}()

	o.runSteps(ctx, scope, onProgress, report)
	return report
}

func (o *Organizer) runSteps(ctx context.Context, scope runScope, onProgress ProgressFunc, report *Report) {
	notify := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	// Scanning. Duplicate removal runs first and is never subject to
	// the history policy.
	notify(Progress{Phase: PhaseScanning})

	if o.cfg.RemoveDuplicates {
		removal, err := o.store.RemoveDuplicates(ctx)
		if err != nil {
			report.Outcome = OutcomeFailed
			report.addError(fmt.Errorf("duplicate removal: %w", err))
			return
		}
		report.DuplicatesRemoved = removal.Count
		report.RemovedDuplicates = removal.Details
		notify(Progress{Phase: PhaseDedup, Message: fmt.Sprintf("%d duplicates removed", removal.Count)})
	}

	excluded, err := o.excludedFolderIDs(ctx, scope.excluded)
	if err != nil {
		report.Outcome = OutcomeFailed
		report.addError(fmt.Errorf("resolve exclusions: %w", err))
		return
	}

	candidates, err := o.scanCandidates(ctx, scope, excluded)
	if err != nil {
		report.Outcome = OutcomeFailed
		report.addError(fmt.Errorf("scan: %w", err))
		return
	}

	// Resolve the approved vocabulary. Empty vocabulary aborts before
	// any network call.
	vocab, err := o.resolveVocabulary(ctx)
	if err != nil {
		report.Outcome = OutcomeFailed
		report.addError(fmt.Errorf("resolve vocabulary: %w", err))
		return
	}
	if len(vocab) == 0 {
		report.Outcome = OutcomeFailed
		if o.cfg.CreateMissingFolders {
			report.Errors = append(report.Errors, "no categories configured: set categories in the config or pass a categories file")
		} else {
			report.Errors = append(report.Errors, "no existing top-level folders to organize into: create folders first or enable folder creation")
		}
		return
	}

	// Absorb platform-reserved folders into the vocabulary. The
	// renamed ids survive pruning even while transiently empty.
	renamed := make(map[string]bool)
	if o.cfg.RenameReservedFolders {
		renamed = o.renameReservedFolders(ctx, vocab, report)
	}

	if len(candidates) == 0 {
		o.prune(ctx, renamed, report, notify)
		report.Outcome = OutcomeNothingToDo
		notify(Progress{Phase: PhaseDone})
		return
	}

	// Batch classification, sequential so later batches observe the
	// destination distribution of earlier ones.
	destinations, ok := o.classifyAll(ctx, candidates, vocab, report, notify)
	if !ok {
		// A partial plan is worse than no plan: nothing is applied.
		report.Outcome = OutcomeFailed
		return
	}

	o.mutate(ctx, candidates, destinations, report, notify)
	o.prune(ctx, renamed, report, notify)

	if len(report.Errors) > 0 {
		report.Outcome = OutcomeCompletedWithErrors
	} else {
		report.Outcome = OutcomeCompleted
	}
	notify(Progress{Phase: PhaseDone})
}

// scanCandidates returns the items eligible for classification, in
// stable store order.
func (o *Organizer) scanCandidates(ctx context.Context, scope runScope, excluded map[string]bool) ([]model.Bookmark, error) {
	items, err := o.store.Items(ctx)
	if err != nil {
		return nil, err
	}

	var scopeSet map[string]bool
	if scope.scoped {
		scopeSet, err = o.store.DescendantFolderIDs(ctx, scope.folderIDs)
		if err != nil {
			return nil, err
		}
	}

	var moved map[string]bool
	if o.historyFilterApplies(scope.scoped) {
		moved, err = o.history.MovedIDs(ctx)
		if err != nil {
			return nil, err
		}
	}

	var candidates []model.Bookmark
	for _, b := range items {
		if !b.HasURL() {
			continue
		}
		if scope.scoped && (b.FolderID == nil || !scopeSet[*b.FolderID]) {
			continue
		}
		if inExcluded(b, excluded) {
			continue
		}
		if moved != nil && moved[b.ID] {
			continue
		}
		candidates = append(candidates, b)
	}
	return candidates, nil
}

// historyFilterApplies decides whether historied items are excluded.
// Folder-scoped runs treat onFullScanOnly as never: the user explicitly
// pointed at those folders, so skipping them would be a surprise no-op.
func (o *Organizer) historyFilterApplies(scoped bool) bool {
	switch o.cfg.HistoryPolicy {
	case history.PolicyNever:
		return false
	case history.PolicyOnFullScanOnly:
		return !scoped
	default:
		return true
	}
}

// resolveVocabulary returns the approved destination names for this
// run: the configured categories in creation-allowed mode, the current
// top-level folder titles otherwise.
func (o *Organizer) resolveVocabulary(ctx context.Context) ([]string, error) {
	if !o.cfg.CreateMissingFolders {
		return o.store.TopLevelFolderTitles(ctx)
	}

	var vocab []string
	seen := make(map[string]bool)
	for _, name := range o.cfg.Categories {
		key := model.NormalizeTitle(name)
		if key == "" || seen[key] {
			continue
		}
		if model.IsProtected(model.Folder{Title: name}) {
			o.log.Warn("skipping protected name in category list", "name", name)
			continue
		}
		seen[key] = true
		vocab = append(vocab, name)
	}
	return vocab, nil
}

// classifyAll drives the classifier batch by batch. On a batch failure
// it records which batch stopped the run and reports failure; progress
// from earlier batches is discarded, never applied.
func (o *Organizer) classifyAll(ctx context.Context, candidates []model.Bookmark, vocab []string, report *Report, notify func(Progress)) ([]string, bool) {
	batchSize := o.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	totalBatches := (len(candidates) + batchSize - 1) / batchSize

	destinations := make([]string, 0, len(candidates))
	destCounts := make(map[string]int)

	for start, batchNum := 0, 1; start < len(candidates); start, batchNum = start+batchSize, batchNum+1 {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		items := make([]classifier.Item, 0, end-start)
		for _, b := range candidates[start:end] {
			items = append(items, classifier.Item{ID: b.ID, Title: b.Title, URL: b.URL})
		}

		result, err := o.classifier.ClassifyBatch(ctx, items, vocab, destCounts)
		if err != nil {
			report.FailedBatch = batchNum
			report.addError(fmt.Errorf("batch %d/%d: %w", batchNum, totalBatches, err))
			return nil, false
		}

		report.Usage.Add(result.Usage)
		report.Coercions = append(report.Coercions, result.Coercions...)
		for _, dest := range result.Destinations {
			if dest != classifier.KeepCurrent {
				destCounts[dest]++
			}
		}
		destinations = append(destinations, result.Destinations...)

		notify(Progress{Phase: PhaseClassifying, Batch: batchNum, TotalBatches: totalBatches})
	}
	return destinations, true
}

// mutate creates the folders that actually received items, then moves
// every assigned bookmark. Individual failures accumulate in the error
// list; processing continues.
func (o *Organizer) mutate(ctx context.Context, candidates []model.Bookmark, destinations []string, report *Report, notify func(Progress)) {
	// Folders to create are exactly the destinations used: a category
	// with zero assigned items is never created.
	used := make([]string, 0)
	seen := make(map[string]bool)
	for _, dest := range destinations {
		if dest == classifier.KeepCurrent || seen[dest] {
			continue
		}
		seen[dest] = true
		used = append(used, dest)
	}

	folderIDs := make(map[string]string, len(used))
	for _, dest := range used {
		id, created, err := o.store.EnsureFolder(ctx, dest, nil)
		if err != nil {
			report.addError(fmt.Errorf("create folder %q: %w", dest, err))
			continue
		}
		folderIDs[dest] = id
		if created {
			report.FoldersCreated++
			report.CreatedFolders = append(report.CreatedFolders, dest)
		}
	}

	folderTitles := o.folderTitles(ctx)

	totalMoves := 0
	for _, dest := range destinations {
		if dest != classifier.KeepCurrent {
			totalMoves++
		}
	}

	for i, b := range candidates {
		dest := destinations[i]

		if dest == classifier.KeepCurrent {
			report.Skipped++
			// Still processed: the item will not be resubmitted on the
			// next historied run.
			if err := o.history.MarkMoved(ctx, b.ID, ""); err != nil {
				report.addError(fmt.Errorf("record history for %q: %w", b.Title, err))
			}
			continue
		}

		destID, ok := folderIDs[dest]
		if !ok {
			// Folder creation failed above; already in the error list.
			report.Skipped++
			continue
		}

		if b.FolderID != nil && *b.FolderID == destID {
			report.Skipped++
			if err := o.history.MarkMoved(ctx, b.ID, dest); err != nil {
				report.addError(fmt.Errorf("record history for %q: %w", b.Title, err))
			}
			continue
		}

		if err := o.store.MoveItem(ctx, b.ID, destID); err != nil {
			report.addError(fmt.Errorf("move %q: %w", b.Title, err))
			continue
		}
		report.BookmarksMoved++
		report.Moves = append(report.Moves, Move{
			ItemID: b.ID,
			Title:  b.Title,
			From:   folderTitles[derefOr(b.FolderID, "")],
			To:     dest,
		})
		// History is recorded the moment the move succeeds, so a crash
		// mid-run leaves it consistent with the tree.
		if err := o.history.MarkMoved(ctx, b.ID, dest); err != nil {
			report.addError(fmt.Errorf("record history for %q: %w", b.Title, err))
		}

		if report.BookmarksMoved%progressMoveInterval == 0 {
			notify(Progress{Phase: PhaseMutating, Moved: report.BookmarksMoved, TotalMoves: totalMoves})
		}
	}
	notify(Progress{Phase: PhaseMutating, Moved: report.BookmarksMoved, TotalMoves: totalMoves})
}

func (o *Organizer) prune(ctx context.Context, renamed map[string]bool, report *Report, notify func(Progress)) {
	removal, err := o.store.PruneEmptyFolders(ctx, renamed, o.cfg.AllowRemovingReservedTabGroups)
	if err != nil {
		report.addError(fmt.Errorf("prune: %w", err))
	}
	report.EmptyFoldersRemoved = removal.Count
	report.RemovedFolders = removal.Details
	notify(Progress{Phase: PhasePruning, Message: fmt.Sprintf("%d empty folders removed", removal.Count)})
}

func (o *Organizer) folderTitles(ctx context.Context) map[string]string {
	titles := map[string]string{"": "(root)"}
	folders, err := o.store.Folders(ctx)
	if err != nil {
		o.log.Warn("listing folders for report details failed", "error", err)
		return titles
	}
	for _, f := range folders {
		titles[f.ID] = f.Title
	}
	return titles
}

func (o *Organizer) saveReport(report *Report) {
	if o.reports == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		o.log.Warn("marshal report failed", "error", err)
		return
	}
	// Saving uses a fresh context: the run context may already be
	// canceled and the report must still be persisted.
	if err := o.reports.SaveLastReport(context.Background(), data); err != nil {
		o.log.Warn("persist report failed", "error", err)
	}
}

// GeneratePreview estimates a full run without any network call or
// mutation.
func (o *Organizer) GeneratePreview(ctx context.Context, excludedFolderIDs []string) (Preview, error) {
	excluded, err := o.excludedFolderIDs(ctx, excludedFolderIDs)
	if err != nil {
		return Preview{}, err
	}

	candidates, err := o.scanCandidates(ctx, runScope{excluded: excludedFolderIDs}, excluded)
	if err != nil {
		return Preview{}, err
	}

	vocab, err := o.resolveVocabulary(ctx)
	if err != nil {
		return Preview{}, err
	}

	var toCreate []string
	if o.cfg.CreateMissingFolders {
		existing, err := o.store.TopLevelFolderTitles(ctx)
		if err != nil {
			return Preview{}, err
		}
		have := make(map[string]bool, len(existing))
		for _, title := range existing {
			have[model.NormalizeTitle(title)] = true
		}
		for _, name := range vocab {
			if !have[model.NormalizeTitle(name)] {
				toCreate = append(toCreate, name)
			}
		}
	}

	batchSize := o.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	return Preview{
		TotalCandidates:  len(candidates),
		FoldersToCreate:  toCreate,
		EstimatedBatches: (len(candidates) + batchSize - 1) / batchSize,
	}, nil
}

// ClearHistory drops every placement record.
func (o *Organizer) ClearHistory(ctx context.Context) error {
	return o.history.Clear(ctx)
}

// MarkAllOrganized baselines the history: every bookmark with a URL is
// recorded as placed without moving anything. Returns the number of
// newly recorded items.
func (o *Organizer) MarkAllOrganized(ctx context.Context) (int, error) {
	items, err := o.store.Items(ctx)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(items))
	for _, b := range items {
		if b.HasURL() {
			ids = append(ids, b.ID)
		}
	}
	return o.history.MarkAllOrganized(ctx, ids)
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
