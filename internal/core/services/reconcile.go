package services

import (
	"sort"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// reconciler turns listing pages into change records by diffing against
// the version map of the working sync state. One reconciler lives for one
// job; the orchestrator persists its version map page by page.
type reconciler struct {
	provider domain.Provider

	// versions maps item ID to the last emitted version. Starts as the
	// working state's map and is mutated as pages apply.
	versions map[string]string

	// seen marks item IDs observed during this enumeration. Only
	// maintained for full-enumeration providers; the final diff against
	// versions synthesizes deletions.
	seen map[string]struct{}
}

// newReconciler builds a reconciler over the working state. fullEnum
// enables seen-tracking for deletion synthesis.
func newReconciler(state *domain.SyncState, fullEnum bool) *reconciler {
	r := &reconciler{
		provider: state.Key.Provider,
		versions: state.Versions,
	}
	if r.versions == nil {
		r.versions = make(map[string]string)
	}
	if fullEnum {
		r.seen = make(map[string]struct{})
	}
	return r
}

// Apply diffs one page of items against the version map and returns the
// change records to emit. Items whose version matches the map produce
// nothing; a page of unchanged items is an empty batch whose cursor still
// commits.
func (r *reconciler) Apply(items []domain.RemoteItem) []domain.ChangeRecord {
	records := make([]domain.ChangeRecord, 0, len(items))

	for i := range items {
		item := items[i]

		if item.Deleted {
			// Only emit for items previously announced downstream.
			if _, known := r.versions[item.ID]; !known {
				continue
			}
			delete(r.versions, item.ID)
			records = append(records, domain.ChangeRecord{
				Type:   domain.ChangeDeleted,
				ItemID: item.ID,
			})
			continue
		}

		if r.seen != nil {
			r.seen[item.ID] = struct{}{}
		}

		prev, known := r.versions[item.ID]
		if known && prev == item.Version {
			continue
		}

		changeType := domain.ChangeCreated
		if known {
			changeType = domain.ChangeUpdated
		}
		r.versions[item.ID] = item.Version

		records = append(records, domain.ChangeRecord{
			Type:       changeType,
			ItemID:     item.ID,
			Version:    item.Version,
			Item:       item,
			ContentRef: contentRef(r.provider, item.ID),
		})
	}

	return records
}

// Deletions synthesizes delete records for every item in the version map
// that the enumeration did not revisit, and prunes them from the map.
// Valid only after a complete walk that started from the beginning;
// calling it after a partial or resumed walk would delete items the walk
// never reached.
func (r *reconciler) Deletions() []domain.ChangeRecord {
	if r.seen == nil {
		return nil
	}

	missing := make([]string, 0)
	for id := range r.versions {
		if _, ok := r.seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)

	records := make([]domain.ChangeRecord, 0, len(missing))
	for _, id := range missing {
		delete(r.versions, id)
		records = append(records, domain.ChangeRecord{
			Type:   domain.ChangeDeleted,
			ItemID: id,
		})
	}
	return records
}

// Versions exposes the working version map for per-page persistence.
func (r *reconciler) Versions() map[string]string {
	return r.versions
}

// contentRef builds the opaque content locator handed to the emitter.
func contentRef(provider domain.Provider, itemID string) string {
	return string(provider) + "://items/" + itemID
}
