package bulk

// apply.go is the second pass: it re-reads the file from scratch (validation
// caches no rows), applies the same header mapping and transforms, and
// performs chunked create/update/skip operations. Each chunk commits as one
// transaction, bounding memory and transaction size at the cost of whole-file
// atomicity. Apply trusts that the last validation produced zero errors; the
// precondition is enforced by Confirm, not re-checked here.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Hugoguevara91/eagl-backend/internal/logging"
)

// Run executes the apply phase for a confirmed job and moves it to
// completed. Re-running an already-applied job is safe: apply is upsert
// based, so re-applied chunks degrade to no-op updates.
func (s *Service) Run(ctx context.Context, job *Job) (*Summary, error) {
	def, ok := Lookup(job.Entity)
	if !ok {
		return nil, ErrUnknownEntity
	}
	if job.Status != StatusQueued && job.Status != StatusRunning {
		return nil, &StateError{Op: "run", Status: job.Status}
	}

	start := time.Now()
	log := logging.WithJob(ctx, job.ID, job.TenantID, job.Entity)

	path, err := s.blobs.DownloadToLocal(ctx, job.FileRef)
	if err != nil {
		return nil, fmt.Errorf("download source file: %w", err)
	}
	header, rows, err := OpenTable(path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	job.Status = StatusRunning
	if job.StartedAt == nil {
		now := time.Now().UTC()
		job.StartedAt = &now
	}
	if err := s.jobs.UpdateImportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	cfg := def.Config
	canonical := mapHeader(header, BuildHeaderMap(cfg.Columns))

	var counters chunkCounters
	if cfg.Composite {
		counters, err = s.applyGrouped(ctx, def, job, canonical, rows)
	} else {
		counters, err = s.applyChunked(ctx, def, job, canonical, rows)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job.Status = StatusCompleted
	job.FinishedAt = &now
	// The error count stays the one computed during validation; apply only
	// runs on jobs that validated clean.
	job.Summary = &Summary{
		Created: counters.created,
		Updated: counters.updated,
		Skipped: counters.skipped,
	}
	if err := s.jobs.UpdateImportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	log.Info("import applied",
		"created", counters.created,
		"updated", counters.updated,
		"skipped", counters.skipped,
		"duration", time.Since(start),
	)
	return job.Summary, nil
}

type chunkCounters struct {
	created int
	updated int
	skipped int
}

func (c *chunkCounters) add(o chunkCounters) {
	c.created += o.created
	c.updated += o.updated
	c.skipped += o.skipped
}

// applyChunked buffers parsed rows into fixed-size chunks and applies each
// chunk inside one transaction.
func (s *Service) applyChunked(ctx context.Context, def EntityDefinition, job *Job, canonical []string, rows RowReader) (chunkCounters, error) {
	var total chunkCounters
	buffer := make([]Row, 0, s.opts.ChunkSize)

	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		got, err := s.applyChunk(ctx, def, job, buffer)
		if err != nil {
			return err
		}
		total.add(got)
		buffer = buffer[:0]
		return nil
	}

	for {
		cells, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read row: %w", err)
		}
		if isBlankRow(cells) {
			continue
		}
		row := parseRow(def.Config, canonical, cells, nil)
		if def.Defaults != nil {
			def.Defaults(row)
		}
		buffer = append(buffer, row)
		if len(buffer) >= s.opts.ChunkSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	return total, flush()
}

// applyChunk commits one chunk of rows as a single transaction.
func (s *Service) applyChunk(ctx context.Context, def EntityDefinition, job *Job, chunk []Row) (chunkCounters, error) {
	var counters chunkCounters
	err := s.store.InTx(ctx, func(tx Store) error {
		for _, row := range chunk {
			existingID, err := def.Lookup(ctx, tx, job.TenantID, row)
			if err != nil {
				return fmt.Errorf("lookup existing record: %w", err)
			}
			if shouldSkip(job.Mode, existingID != "") {
				counters.skipped++
				continue
			}
			if err := def.Apply(ctx, tx, job.TenantID, existingID, row); err != nil {
				return fmt.Errorf("apply row: %w", err)
			}
			if existingID != "" {
				counters.updated++
			} else {
				counters.created++
			}
		}
		return nil
	})
	if err != nil {
		return chunkCounters{}, err
	}
	return counters, nil
}

// applyGrouped handles the composite entity type: rows are grouped by
// identity across the whole file (not per chunk), and each parent's full
// child list is replaced with that group's rows in file order. This needs
// the composite rows buffered fully rather than streamed in chunks.
func (s *Service) applyGrouped(ctx context.Context, def EntityDefinition, job *Job, canonical []string, rows RowReader) (chunkCounters, error) {
	groups := make(map[string][]Row)
	var order []string

	for {
		cells, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return chunkCounters{}, fmt.Errorf("read row: %w", err)
		}
		if isBlankRow(cells) {
			continue
		}
		row := parseRow(def.Config, canonical, cells, nil)
		if def.Defaults != nil {
			def.Defaults(row)
		}
		identity, resolved := resolveIdentity(row, def.Config.UniqueKeyGroups)
		if !resolved {
			continue
		}
		if _, exists := groups[identity]; !exists {
			order = append(order, identity)
		}
		groups[identity] = append(groups[identity], row)
	}

	var counters chunkCounters
	for _, identity := range order {
		group := groups[identity]
		err := s.store.InTx(ctx, func(tx Store) error {
			existingID, err := def.Lookup(ctx, tx, job.TenantID, group[0])
			if err != nil {
				return fmt.Errorf("lookup existing record: %w", err)
			}
			if shouldSkip(job.Mode, existingID != "") {
				counters.skipped++
				return nil
			}
			if err := def.ApplyGroup(ctx, tx, job.TenantID, existingID, group); err != nil {
				return fmt.Errorf("apply group: %w", err)
			}
			if existingID != "" {
				counters.updated++
			} else {
				counters.created++
			}
			return nil
		})
		if err != nil {
			return counters, err
		}
	}
	return counters, nil
}
