package shellcache

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spedbusmd/shellcache/cache"
)

// InstallReport is the result of precaching the app-shell manifest.
// Install is best-effort by contract: failures are collected here
// rather than aborting installation, so the split between what was
// cached and what was skipped is visible to the caller.
type InstallReport struct {
	// Added lists the manifest paths stored in the active generation.
	Added []string `json:"added"`
	// Failed maps manifest paths to the reason they were skipped.
	Failed map[string]string `json:"failed,omitempty"`
}

// Install precaches every manifest path into the active generation.
// A manifest fetch failure or a non-2xx origin response skips that path
// only; shell precaching is an optimization, not a hard requirement.
// Re-running Install is safe: puts are idempotent upserts, so a
// populated store ends up with exactly one entry per manifest URL.
func (wk *Worker) Install(ctx context.Context) InstallReport {
	report := InstallReport{
		Added:  make([]string, 0, len(wk.manifest)),
		Failed: make(map[string]string),
	}
	for _, path := range wk.manifest {
		if err := wk.precache(ctx, path); err != nil {
			wk.log.Warn().Err(err).Str("path", path).Msg("Could not precache shell asset")
			report.Failed[path] = err.Error()
			continue
		}
		report.Added = append(report.Added, path)
	}
	wk.log.Info().
		Int("added", len(report.Added)).
		Int("failed", len(report.Failed)).
		Msg("Install finished")
	return report
}

func (wk *Worker) precache(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	entry, err := wk.fetchEntry(req)
	if err != nil {
		return err
	}
	if entry.Status < 200 || entry.Status >= 300 {
		return fmt.Errorf("origin returned status %d", entry.Status)
	}
	return wk.store.Put(ctx, wk.generation, cache.Key(req), entry)
}

// Activate purges every cache generation whose name differs from the
// active one. Old generations become orphaned when a deployment bumps
// the version; dropping them here completes the upgrade.
func (wk *Worker) Activate(ctx context.Context) error {
	generations, err := wk.store.Generations(ctx)
	if err != nil {
		return fmt.Errorf("list generations: %w", err)
	}
	for _, g := range generations {
		if g == wk.generation {
			continue
		}
		if err := wk.store.DropGeneration(ctx, g); err != nil {
			return fmt.Errorf("drop generation %s: %w", g, err)
		}
		wk.log.Info().Str("stale", g).Msg("Purged stale cache generation")
	}
	return nil
}
