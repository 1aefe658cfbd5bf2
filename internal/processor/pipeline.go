package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/palemoky/repo-project-id/internal/database"
	"github.com/palemoky/repo-project-id/internal/loader"
	"github.com/palemoky/repo-project-id/internal/logger"
	"github.com/palemoky/repo-project-id/internal/metrics"
	"github.com/palemoky/repo-project-id/internal/projectid"
)

const (
	// Dynamic batch sizing thresholds (percentage of channel capacity)
	channelPressureHigh   = 0.8 // 80% full - reduce batch size
	channelPressureMedium = 0.5 // 50% full - normal batch size
	channelPressureLow    = 0.2 // 20% full - increase batch size

	// Maximum number of errors to collect
	MaxErrorsToCollect = 100

	// Number of sample errors to log
	SampleErrorCount = 5
)

// getOptimalConfig returns buffer and batch sizes based on system resources
func getOptimalConfig() (workBuffer, resultBuffer, errorBuffer, defaultBatch, minBatch, maxBatch int) {
	cpuCount := runtime.NumCPU()

	switch {
	case cpuCount <= 2:
		return 50, 1000, 50, 200, 50, 300
	case cpuCount <= 4:
		return 75, 2000, 75, 300, 100, 500
	case cpuCount <= 8:
		return 100, 3000, 100, 400, 150, 700
	default:
		return 300, 5000, 300, 500, 200, 1000
	}
}

// Processor derives identifiers for crawler records and stores them
type Processor struct {
	repo         database.RepositoryInterface
	deriver      *projectid.Deriver
	workers      int
	batchSize    int // Base batch size for database insertion
	minBatchSize int // Minimum batch size (for high pressure)
	maxBatchSize int // Maximum batch size (for low pressure)
	progressOut  io.Writer
	refresh      bool
}

// NewProcessor creates a new processor. workers <= 0 uses one per CPU.
func NewProcessor(repo database.RepositoryInterface, workers int) *Processor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	_, _, _, defaultBatch, minBatch, maxBatch := getOptimalConfig()

	return &Processor{
		repo:         repo,
		deriver:      projectid.NewDeriver(projectid.MD5),
		workers:      workers,
		batchSize:    defaultBatch,
		minBatchSize: minBatch,
		maxBatchSize: maxBatch,
	}
}

// SetBatchSize sets the base batch size for database insertion
func (p *Processor) SetBatchSize(size int) {
	if size > 0 {
		p.batchSize = size
		p.minBatchSize = min(p.minBatchSize, size)
		p.maxBatchSize = max(p.maxBatchSize, size)
	}
}

// SetRefresh makes records whose identifier is already stored under the same
// url refresh that row's crawler fields instead of being skipped
func (p *Processor) SetRefresh(refresh bool) {
	p.refresh = refresh
}

// SetProgressOutput renders a progress bar to w. A nil w disables it.
func (p *Processor) SetProgressOutput(w io.Writer) {
	p.progressOut = w
}

// Process derives and stores every record. Collisions and duplicates are
// counted, not fatal; mapping failures make Process return an error after
// all records were handled.
func (p *Processor) Process(ctx context.Context, records []loader.RecordWithSource) (*Result, error) {
	total := len(records)
	result := &Result{Total: int64(total)}
	if total == 0 {
		return result, nil
	}

	logger.Info("Processing crawler records",
		zap.Int("records", total),
		zap.Int("workers", p.workers),
		zap.Int("batch_size", p.batchSize),
	)

	out := p.progressOut
	if out == nil {
		out = io.Discard
	}
	progress := mpb.New(
		mpb.WithOutput(out),
		mpb.WithWidth(60),
		mpb.WithRefreshRate(100*time.Millisecond),
	)
	bar := progress.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Processing: ", decor.WC{W: 12, C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Name(" | "),
			decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 6}),
			decor.Name(" | "),
			decor.AverageSpeed(0, "%.0f records/s", decor.WC{W: 14}),
		),
	)

	workBuffer, resultBuffer, errorBuffer, _, _, _ := getOptimalConfig()

	workCh := make(chan loader.RecordWithSource, workBuffer)
	resultCh := make(chan *database.Project, resultBuffer)
	errorCh := make(chan error, errorBuffer)
	var wg sync.WaitGroup

	var failed atomic.Int64

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for record := range workCh {
				project, err := p.toProject(record)
				if err != nil {
					failed.Add(1)
					select {
					case errorCh <- fmt.Errorf("worker %d: %s (%s) - %w", workerID, record.URL, record.Source, err):
					default:
						// Discard error to avoid blocking
					}
					bar.Increment()
					continue
				}

				resultCh <- project
				bar.Increment()
			}
		}(i)
	}

	insertDone := make(chan error, 1)
	go func() {
		err := p.batchInserter(resultCh, result)
		// keep workers from blocking on a dead inserter
		for range resultCh {
		}
		insertDone <- err
	}()

	go func() {
		defer close(workCh)
		for _, record := range records {
			select {
			case workCh <- record:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(resultCh)

	insertErr := <-insertDone
	close(errorCh)

	if insertErr != nil || ctx.Err() != nil {
		bar.Abort(false)
	}
	progress.Wait()

	result.Failed = failed.Load()
	metrics.IngestRecords.WithLabelValues("failed").Add(float64(result.Failed))

	if insertErr != nil {
		return result, fmt.Errorf("batch insertion failed: %w", insertErr)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	var errs []error
	for err := range errorCh {
		errs = append(errs, err)
		if len(errs) >= MaxErrorsToCollect {
			break
		}
	}

	logger.Info("Processing finished",
		zap.Int64("total", result.Total),
		zap.Int64("inserted", result.Inserted),
		zap.Int64("refreshed", result.Refreshed),
		zap.Int64("duplicates", result.Duplicates),
		zap.Int64("collisions", result.Collisions),
		zap.Int64("failed", result.Failed),
	)

	if result.Failed > 0 {
		for i := 0; i < min(len(errs), SampleErrorCount); i++ {
			logger.Warn("Sample record error", zap.Int("n", i+1), zap.Error(errs[i]))
		}
		return result, fmt.Errorf("processing completed with %d errors", result.Failed)
	}

	return result, nil
}

// batchInserter collects projects and writes them in batches with dynamic sizing
func (p *Processor) batchInserter(resultCh <-chan *database.Project, result *Result) error {
	batch := make([]*database.Project, 0, p.maxBatchSize)
	currentBatchSize := p.batchSize
	seen := make(map[int64]string)

	for project := range resultCh {
		batch = append(batch, project)

		utilization := float64(len(resultCh)) / float64(cap(resultCh))

		newBatchSize := p.calculateBatchSize(utilization, currentBatchSize)
		if newBatchSize != currentBatchSize {
			logger.Debug("Adjusting batch size",
				zap.Float64("channel_utilization", utilization),
				zap.Int("from", currentBatchSize),
				zap.Int("to", newBatchSize),
			)
		}
		currentBatchSize = newBatchSize

		if len(batch) >= currentBatchSize {
			if err := p.flush(batch, seen, result); err != nil {
				return fmt.Errorf("failed to insert batch of %d projects: %w", len(batch), err)
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := p.flush(batch, seen, result); err != nil {
			return fmt.Errorf("failed to insert final batch of %d projects: %w", len(batch), err)
		}
	}

	return nil
}

// flush splits a batch into new rows, duplicates and collisions, then writes.
// seen holds every id this run has already classified.
func (p *Processor) flush(batch []*database.Project, seen map[int64]string, result *Result) error {
	ids := make([]int64, 0, len(batch))
	for _, project := range batch {
		if _, ok := seen[project.ID]; !ok {
			ids = append(ids, project.ID)
		}
	}

	stored, err := p.repo.GetURLsByIDs(ids)
	if err != nil {
		return fmt.Errorf("failed to look up existing ids: %w", err)
	}
	for id, url := range stored {
		seen[id] = url
	}

	fresh := make([]*database.Project, 0, len(batch))
	var refreshes []*database.Project
	var duplicates, collisions int64
	for _, project := range batch {
		holder, ok := seen[project.ID]
		switch {
		case !ok:
			seen[project.ID] = project.URL
			fresh = append(fresh, project)
		case holder == project.URL && p.refresh:
			refreshes = append(refreshes, project)
		case holder == project.URL:
			duplicates++
		default:
			collisions++
			metrics.Collisions.Inc()
			logger.Warn("Project id collision",
				zap.Int64("id", project.ID),
				zap.String("existing_url", holder),
				zap.String("new_url", project.URL),
			)
			if err := p.repo.RecordCollision(project.ID, holder, project.URL); err != nil {
				return fmt.Errorf("failed to record collision for %d: %w", project.ID, err)
			}
		}
	}

	if err := p.repo.BatchInsertProjects(fresh, len(fresh)); err != nil {
		return err
	}

	// after the insert, so a refresh of a row first seen in this batch merges into it
	for _, project := range refreshes {
		if err := p.repo.UpsertProject(project); err != nil {
			return fmt.Errorf("failed to refresh project %d: %w", project.ID, err)
		}
	}

	result.Inserted += int64(len(fresh))
	result.Refreshed += int64(len(refreshes))
	result.Duplicates += duplicates
	result.Collisions += collisions
	metrics.IngestRecords.WithLabelValues("inserted").Add(float64(len(fresh)))
	metrics.IngestRecords.WithLabelValues("refreshed").Add(float64(len(refreshes)))
	metrics.IngestRecords.WithLabelValues("duplicate").Add(float64(duplicates))
	metrics.IngestRecords.WithLabelValues("collision").Add(float64(collisions))
	return nil
}

// calculateBatchSize determines the batch size from channel utilization
func (p *Processor) calculateBatchSize(utilization float64, currentSize int) int {
	switch {
	case utilization >= channelPressureHigh:
		return p.minBatchSize
	case utilization >= channelPressureMedium:
		return p.batchSize
	case utilization <= channelPressureLow:
		return p.maxBatchSize
	default:
		return currentSize
	}
}

var errNoIdentity = errors.New("record has no name/author and its url cannot be split")

// toProject derives the identifier of a record and maps it to a registry row.
// Name and author come from the record; the url supplies whichever is missing.
func (p *Processor) toProject(record loader.RecordWithSource) (*database.Project, error) {
	name, author := record.Name, record.AuthorName
	if name == "" || author == "" {
		urlName, urlAuthor, err := projectid.SplitURL(record.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errNoIdentity, err)
		}
		if name == "" {
			name = urlName
		}
		if author == "" {
			author = urlAuthor
		}
	}

	id := p.deriver.Derive(name, author, record.URL)
	metrics.Derivations.WithLabelValues("ingest").Inc()

	project := &database.Project{
		ID:            id,
		Name:          name,
		Author:        author,
		URL:           record.URL,
		Scheme:        projectid.Scheme,
		VersionTime:   optional(record.VersionTime),
		VersionHash:   optional(record.VersionHash),
		License:       optional(record.License),
		AuthorMail:    optional(record.AuthorMail),
		DefaultBranch: optional(record.DefaultBranch),
		Importance:    record.Importance,
	}
	if record.ID != 0 {
		sourceID := record.ID
		project.SourceID = &sourceID
	}
	if len(record.Raw) > 0 {
		project.Metadata = datatypes.JSON(record.Raw)
	}

	return project, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FormatResult renders a result as table rows
func FormatResult(r *Result) [][]string {
	return [][]string{
		{"Total", strconv.FormatInt(r.Total, 10)},
		{"Inserted", strconv.FormatInt(r.Inserted, 10)},
		{"Refreshed", strconv.FormatInt(r.Refreshed, 10)},
		{"Duplicates", strconv.FormatInt(r.Duplicates, 10)},
		{"Collisions", strconv.FormatInt(r.Collisions, 10)},
		{"Failed", strconv.FormatInt(r.Failed, 10)},
	}
}
