package report

import (
	"path"
	"time"

	"golang.beyond.io/tdi-ingest/internal/core"
)

// Enrich attaches the organization, region and store of the device to the report.
// The enrichment fields are merged into the Metrics object, the same place the dashboard reads them from.
func Enrich(r *Report, digest string, device *core.Device, now time.Time) *core.EnrichedRecord {
	metrics := r.metricsObject()
	metrics["organization_id"] = device.OrganizationID
	metrics["region_id"] = device.RegionID
	metrics["store_code"] = device.StoreCode

	return &core.EnrichedRecord{
		Digest:         digest,
		SourceFile:     path.Base(r.File),
		DeviceID:       r.DeviceID(),
		SiteID:         r.SiteID(),
		ReportDate:     r.Date(),
		OrganizationID: device.OrganizationID,
		RegionID:       device.RegionID,
		StoreCode:      device.StoreCode,
		Metrics:        metrics,
		UpdatedAt:      now.UTC(),
	}
}
