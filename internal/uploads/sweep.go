package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/cookbook/internal/logger"
	"github.com/mrlokans/cookbook/internal/metrics"
)

// ReferenceSource lists the upload URLs still referenced by stored records.
type ReferenceSource interface {
	ReferencedUploads(ctx context.Context) (map[string]struct{}, error)
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Scanned int
	// Orphaned lists unreferenced files old enough to delete.
	Orphaned []File
	Deleted  int
	Failed   int
}

// Counts returns the result as a map suitable for audit metadata.
func (r SweepResult) Counts() map[string]int {
	return map[string]int{
		"scanned":  r.Scanned,
		"orphaned": len(r.Orphaned),
		"deleted":  r.Deleted,
		"failed":   r.Failed,
	}
}

// Sweeper deletes stored uploads that nothing references. Files younger
// than MinAge are kept because a request may be about to reference them.
type Sweeper struct {
	storage Storage
	refs    ReferenceSource
	minAge  time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

func NewSweeper(storage Storage, refs ReferenceSource, minAge time.Duration) *Sweeper {
	return &Sweeper{
		storage: storage,
		refs:    refs,
		minAge:  minAge,
		now:     time.Now,
		log:     logger.Component("sweeper"),
	}
}

// Sweep finds orphaned uploads and, unless dryRun is set, deletes them.
func (s *Sweeper) Sweep(ctx context.Context, dryRun bool) (SweepResult, error) {
	var result SweepResult

	refs, err := s.refs.ReferencedUploads(ctx)
	if err != nil {
		return result, fmt.Errorf("load references: %w", err)
	}
	referenced := make(map[string]struct{}, len(refs))
	for url := range refs {
		if kind, name, err := ParseURL(url); err == nil {
			referenced[key(kind, name)] = struct{}{}
		}
	}

	cutoff := s.now().Add(-s.minAge)
	for _, kind := range Kinds {
		files, err := s.storage.List(ctx, kind)
		if err != nil {
			return result, fmt.Errorf("list %s: %w", kind, err)
		}
		for _, f := range files {
			result.Scanned++
			if _, ok := referenced[key(f.Kind, f.Name)]; ok {
				continue
			}
			if f.CreatedAt.After(cutoff) {
				continue
			}
			result.Orphaned = append(result.Orphaned, f)
		}
	}

	if dryRun {
		return result, nil
	}

	for _, f := range result.Orphaned {
		if err := s.storage.Delete(ctx, f.URL); err != nil {
			result.Failed++
			s.log.Warn().Err(err).Str("url", f.URL).Msg("failed to delete orphaned upload")
			continue
		}
		result.Deleted++
		metrics.UploadsSweptTotal.Inc()
	}
	return result, nil
}

func key(kind Kind, name string) string {
	return string(kind) + "/" + name
}
