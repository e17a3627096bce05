package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/internal/report"
	"golang.beyond.io/tdi-ingest/internal/transport"
)

const (
	reasonUnregistered = "device not registered in store"
	reasonEnrichment   = "enrichment"
)

// attempt is the result of one successful pass over a file.
type attempt struct {
	outcome core.Outcome
	digest  string
	reason  string
}

// handleFile runs one full attempt on a file: fetch, parse, digest, validate, then either
// persist and archive to the processed directory or archive to the error directory.
// Any returned error makes the retrier start over with a fresh fetch.
func (o *Orchestrator) handleFile(ctx context.Context, s core.Session, entry core.Entry, log zerolog.Logger) (attempt, error) {
	raw, err := transport.Fetch(ctx, s, entry)
	if err != nil {
		return attempt{}, err
	}

	r, err := report.Parse(raw.Path, raw.Content)
	if err != nil {
		return attempt{}, err
	}

	digest, err := report.Digest(r)
	if err != nil {
		return attempt{}, core.NewError(core.KindParse, "digest", entry.Path, err)
	}

	log = log.With().
		Str("digest", digest).
		Str("device_id", r.DeviceID()).
		Str("site_id", r.SiteID()).
		Logger()

	ok, err := o.registry.ExistsInStore(ctx, r.SiteID(), r.DeviceID())
	if err != nil {
		if o.strictRegistry {
			return attempt{}, core.NewError(core.KindValidation, "exists in store", entry.Path, err)
		}
		log.Warn().Err(err).Msg("Device lookup failed, treating device as not registered")
		ok = false
	}

	if !ok {
		if _, err := o.archiver.Move(ctx, s, entry, core.OutcomeRejected); err != nil {
			return attempt{}, err
		}
		log.Info().Msg("Device not registered, file moved to error directory")
		return attempt{outcome: core.OutcomeRejected, digest: digest, reason: reasonUnregistered}, nil
	}

	device, err := o.registry.FindByID(ctx, r.DeviceID())
	if errors.Is(err, core.ErrDeviceNotFound) {
		if _, err := o.archiver.Move(ctx, s, entry, core.OutcomeRejected); err != nil {
			return attempt{}, err
		}
		log.Warn().Msg("Device passed validation but could not be resolved for enrichment, file moved to error directory")
		return attempt{outcome: core.OutcomeRejected, digest: digest, reason: reasonEnrichment}, nil
	}
	if err != nil {
		return attempt{}, core.NewError(core.KindValidation, "find by id", entry.Path, err)
	}

	if device.StoreCode != r.SiteID() {
		log.Warn().
			Str("enriched_store_code", device.StoreCode).
			Msg("Device id is registered in more than one store, enrichment uses the first match")
	}

	record := report.Enrich(r, digest, device, o.now())
	if err := o.store.Upsert(ctx, digest, record); err != nil {
		return attempt{}, core.NewError(core.KindPersistence, "upsert", entry.Path, err)
	}

	dst, err := o.archiver.Move(ctx, s, entry, core.OutcomeProcessed)
	if err != nil {
		return attempt{}, err
	}

	log.Info().Str("dst", dst).Msg("Report persisted, file moved to processed directory")
	return attempt{outcome: core.OutcomeProcessed, digest: digest}, nil
}
