// Package reconcile drives chunked table synchronization: it walks chunk
// boundaries on the source, fingerprints each chunk on both stores and
// repairs only the chunks whose fingerprints disagree. Parallel workers each
// operate their own pair of range engines over disjoint chunks; the chunk
// boundaries computed up front guarantee the ranges never overlap.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/viant/dbsync/checksum"
	"github.com/viant/dbsync/chunker"
	"github.com/viant/dbsync/sqlexec"
	"github.com/viant/dbsync/table"
)

// Options tunes a sync run.
type Options struct {
	// ChunkSize is the number of rows per chunk. Defaults to 1000.
	ChunkSize int
	// Workers is the number of concurrent chunk processors. Defaults to 1.
	Workers int
	// DryRun reports mismatching chunks without writing to the target.
	DryRun bool
	// Metrics receives counters when non-nil.
	Metrics *Metrics
}

// TableSpec names one table to reconcile and how to fingerprint it.
type TableSpec struct {
	Schema string
	Name   string
	// Filter optionally scopes both sides to a subset of rows.
	Filter *table.Filter
	// SourceHash and TargetHash are the fingerprint aggregate expressions.
	// Leave both empty to use the dialect default, which requires source
	// and target to speak the same dialect.
	SourceHash string
	TargetHash string
	// Columns restricts the compared column set; empty means every column
	// of the source table.
	Columns []string
}

// Summary reports what one table's sync did.
type Summary struct {
	Table        string
	Chunks       int
	Mismatched   int
	RowsUpserted int64
	RowsDeleted  int64
	// Skipped is set for tables without a primary key, which cannot be
	// reconciled in ranges.
	Skipped bool
}

type chunkRange struct {
	start, end table.Key
}

// Syncer reconciles tables from a source session into a target session.
type Syncer struct {
	source *sqlexec.Session
	target *sqlexec.Session
	logger zerolog.Logger
	opts   Options
}

// New builds a syncer. Each run is tagged with a fresh id for log
// correlation.
func New(source, target *sqlexec.Session, logger zerolog.Logger, opts Options) *Syncer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Syncer{
		source: source,
		target: target,
		logger: logger.With().Str("run_id", uuid.NewString()).Logger(),
		opts:   opts,
	}
}

// SyncTable reconciles one table and returns its summary. Tables without a
// primary key are skipped, not failed; the caller decides whether a full
// copy is worth it.
func (s *Syncer) SyncTable(ctx context.Context, spec TableSpec) (*Summary, error) {
	logger := s.logger.With().Str("table", spec.Name).Logger()
	summary := &Summary{Table: spec.Name}

	boundary, err := s.newChunker(ctx, s.source, spec)
	if err != nil {
		return nil, err
	}
	if !boundary.HasPrimaryKey() {
		logger.Warn().Msg("table has no primary key, skipping ranged sync")
		summary.Skipped = true
		return summary, nil
	}

	columns := spec.Columns
	if len(columns) == 0 {
		columns = boundary.Columns()
	}
	sourceHash, targetHash, err := s.hashExpressions(spec, columns)
	if err != nil {
		return nil, err
	}
	updateCols := nonKeyColumns(columns, boundary.PrimaryKey())

	chunks, err := s.chunkBoundaries(ctx, boundary)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("chunks", len(chunks)).
		Int("chunk_size", s.opts.ChunkSize).
		Int("workers", s.opts.Workers).
		Bool("dry_run", s.opts.DryRun).
		Msg("starting table sync")

	work := make(chan chunkRange)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, err := s.newChunker(runCtx, s.source, spec)
			if err != nil {
				fail(err)
				return
			}
			tgt, err := s.newChunker(runCtx, s.target, spec)
			if err != nil {
				fail(err)
				return
			}
			for ch := range work {
				repaired, err := s.processChunk(runCtx, logger, src, tgt, spec, ch, columns, sourceHash, targetHash, updateCols)
				if err != nil {
					fail(err)
					return
				}
				mu.Lock()
				summary.Chunks++
				if repaired != nil {
					summary.Mismatched++
					summary.RowsUpserted += repaired.upserted
					summary.RowsDeleted += repaired.deleted
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, ch := range chunks {
		select {
		case work <- ch:
		case <-runCtx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Info().
		Int("chunks", summary.Chunks).
		Int("mismatched", summary.Mismatched).
		Int64("rows_upserted", summary.RowsUpserted).
		Int64("rows_deleted", summary.RowsDeleted).
		Msg("table sync finished")
	return summary, nil
}

type repair struct {
	upserted int64
	deleted  int64
}

// processChunk fingerprints one chunk on both sides and repairs the target
// when the fingerprints disagree: source rows are upserted first, then
// anything in the target range the source no longer has is deleted, with the
// fetched source rows as keep set. Returns nil when the chunk matched.
func (s *Syncer) processChunk(ctx context.Context, logger zerolog.Logger, src, tgt *chunker.Chunker, spec TableSpec, ch chunkRange, columns []string, sourceHash, targetHash string, updateCols []string) (*repair, error) {
	s.opts.Metrics.addChunk(spec.Name)

	srcSum, err := src.HashForRange(ctx, columns, sourceHash, ch.start, ch.end)
	if err != nil {
		return nil, err
	}
	tgtSum, err := tgt.HashForRange(ctx, columns, targetHash, ch.start, ch.end)
	if err != nil {
		return nil, err
	}
	if scalarEqual(srcSum, tgtSum) {
		return nil, nil
	}
	s.opts.Metrics.addMismatch(spec.Name)
	logger.Debug().
		Any("start", keyLogValue(ch.start)).
		Any("end", keyLogValue(ch.end)).
		Msg("chunk fingerprint mismatch")

	rows, err := src.RowsForRange(ctx, columns, ch.start, ch.end)
	if err != nil {
		return nil, err
	}
	if s.opts.DryRun {
		logger.Info().
			Int("source_rows", len(rows)).
			Any("start", keyLogValue(ch.start)).
			Msg("dry run, chunk would be repaired")
		return &repair{}, nil
	}

	var done repair
	if len(rows) > 0 {
		done.upserted, err = tgt.Upsert(ctx, rows, updateCols)
		if err != nil {
			return nil, err
		}
	}
	done.deleted, err = tgt.DeleteRange(ctx, ch.start, ch.end, rows)
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.addUpserted(spec.Name, done.upserted)
	s.opts.Metrics.addDeleted(spec.Name, done.deleted)
	return &done, nil
}

// chunkBoundaries paginates the source in primary-key order and materializes
// the half-open chunk list covering the whole table. Only key columns are
// read, one boundary row per chunk.
func (s *Syncer) chunkBoundaries(ctx context.Context, boundary *chunker.Chunker) ([]chunkRange, error) {
	var (
		chunks []chunkRange
		start  table.Key
	)
	for {
		position := s.opts.ChunkSize
		if start != nil {
			// The start key itself belongs to this chunk; the next boundary
			// sits chunkSize-1 rows past it.
			position = s.opts.ChunkSize - 1
		}
		next, err := boundary.KeyAt(ctx, start, position)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunkRange{start: start, end: next})
		if next == nil {
			return chunks, nil
		}
		start = next
	}
}

func (s *Syncer) newChunker(ctx context.Context, session *sqlexec.Session, spec TableSpec) (*chunker.Chunker, error) {
	c, err := chunker.New(ctx, session, spec.Schema, spec.Name)
	if err != nil {
		return nil, err
	}
	if spec.Filter != nil {
		if err := c.SetFilter(spec.Filter); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// hashExpressions resolves per-side fingerprint aggregates. Defaults only
// exist for same-dialect pairs; cross-dialect syncs must configure a
// compatible pair explicitly rather than silently mismatch on every chunk.
func (s *Syncer) hashExpressions(spec TableSpec, columns []string) (string, string, error) {
	if spec.SourceHash != "" && spec.TargetHash != "" {
		return spec.SourceHash, spec.TargetHash, nil
	}
	if spec.SourceHash != "" || spec.TargetHash != "" {
		return "", "", fmt.Errorf("reconcile: %s: hash expressions must be set for both sides or neither", spec.Name)
	}
	srcDialect, tgtDialect := s.source.DialectName(), s.target.DialectName()
	if srcDialect != tgtDialect {
		return "", "", fmt.Errorf("reconcile: %s: no default fingerprint for %s->%s, configure hash expressions", spec.Name, srcDialect, tgtDialect)
	}
	expr, err := checksum.Expression(srcDialect, columns)
	if err != nil {
		return "", "", err
	}
	return expr, expr, nil
}

func nonKeyColumns(columns, primaryKey []string) []string {
	isKey := make(map[string]bool, len(primaryKey))
	for _, k := range primaryKey {
		isKey[k] = true
	}
	var out []string
	for _, c := range columns {
		if !isKey[c] {
			out = append(out, c)
		}
	}
	return out
}

// scalarEqual compares fingerprints across drivers, which surface the same
// number as different Go types (int64, float64, []byte, big integers).
// Textual form is the common denominator.
func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if v, ok := a.([]byte); ok {
		a = string(v)
	}
	if v, ok := b.([]byte); ok {
		b = string(v)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func keyLogValue(k table.Key) map[string]any {
	if k == nil {
		return nil
	}
	return k.Row()
}
