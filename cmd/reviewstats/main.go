// Command reviewstats prints rating statistics for product handles as JSON lines.
// With no arguments it reports every handle found in the review listing.
package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_proxy/internal/adapters/judgeme"
	"review_proxy/internal/adapters/memory"
	"review_proxy/internal/adapters/observability"
	"review_proxy/internal/app"
	"review_proxy/internal/domain"
	"review_proxy/internal/shared"
	"review_proxy/internal/storage/noop"
)

type line struct {
	Handle string       `json:"handle"`
	Stats  domain.Stats `json:"stats"`
}

func main() {
	ctx := context.Background()
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	client, err := judgeme.New(cfg.JudgeMeBase, cfg.JudgeMeToken, cfg.ShopDomain, cfg.JudgeMeRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Judge.me client")
	}

	// one listing fetch shared by every handle; no gender lookups for a report
	svc := app.NewReviewService(
		app.NewSnapshotSource(client),
		app.NewPinService(noop.Store{}),
		app.NewAvatarBuilder(nil, memory.NewGenderCache(), nil),
	)

	handles := os.Args[1:]
	if len(handles) == 0 {
		if handles, err = svc.Handles(ctx); err != nil {
			log.Fatal().Err(err).Msg("list handles")
		}
	}
	log.Info().Int("handles", len(handles)).Int("workers", cfg.StatsWorkers).Msg("reviewstats starting")

	results := make([]*line, len(handles))
	sem := semaphore.NewWeighted(int64(max(cfg.StatsWorkers, 1)))
	var wg sync.WaitGroup

	for i, h := range handles {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			out, err := svc.GetReviewsForHandle(ctx, h)
			if err != nil {
				log.Warn().Str("handle", h).Err(err).Msg("stats failed")
				return
			}
			results[i] = &line{Handle: h, Stats: out.Stats}
		}()
	}
	wg.Wait()

	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		if r == nil {
			continue
		}
		if err := enc.Encode(r); err != nil {
			log.Fatal().Err(err).Msg("write output")
		}
	}
	log.Info().Msg("reviewstats completed")
}
