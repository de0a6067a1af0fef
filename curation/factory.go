package curation

import (
	"time"

	"curator/archive"
	"curator/dedup"
	"curator/feeds"
	"curator/intel"
	"curator/kafka"
	"curator/store"
)

// Factory builds tenant-bound Curators from process-wide dependencies.
type Factory struct {
	DB       *store.DB
	Engine   *dedup.Engine
	Embedder intel.Embedder
	Intel    intel.TextIntelligence
	Fetcher  *feeds.Fetcher
	// Publisher and Archiver are optional.
	Publisher *kafka.Publisher
	Archiver  *archive.Archiver
	ItemDelay time.Duration
}

// ForTenant returns a Curator whose every dependency is bound to the
// given org.
func (f *Factory) ForTenant(orgID string) *Curator {
	ts := f.DB.Tenant(orgID)

	deps := Deps{
		Store:     ts,
		Deduper:   f.Engine.Bind(orgID, ts),
		Embedder:  f.Embedder,
		Intel:     f.Intel,
		Fetch:     f.Fetcher.FetchCandidates,
		Extract:   feeds.ExtractBodies,
		ItemDelay: f.ItemDelay,
	}
	if f.Publisher != nil {
		deps.Publisher = f.Publisher
	}
	if f.Archiver != nil {
		deps.Archiver = f.Archiver
	}
	return New(deps)
}
