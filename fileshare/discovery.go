package fileshare

import (
	"context"

	"go.uber.org/zap"
)

// DiscoveryPrm groups parameters of NewDiscovery. Only Ledger is required.
type DiscoveryPrm struct {
	// Ledger to ask for the reverse grant index, used if it implements
	// SharerIndex.
	Ledger Ledger

	// Local set of previously seen identities. Updated on every heuristic
	// discovery.
	Cache KnownCache

	// Recent ledger activity.
	Activity ActivitySource

	// Statically known identities for empty caches.
	Seeds []Identity

	Logger *zap.Logger
}

// Discovery finds owners that might have granted something to a viewer.
type Discovery struct {
	index    SharerIndex
	cache    KnownCache
	activity ActivitySource
	seeds    []Identity
	log      *zap.Logger
}

// NewDiscovery constructs Discovery from the given parameters.
func NewDiscovery(prm DiscoveryPrm) *Discovery {
	d := &Discovery{
		cache:    prm.Cache,
		activity: prm.Activity,
		seeds:    prm.Seeds,
		log:      prm.Logger,
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	if idx, ok := prm.Ledger.(SharerIndex); ok {
		d.index = idx
	}
	return d
}

// Candidates returns owners that might have granted something to the viewer,
// without duplicates and never including the viewer itself. The boolean
// result is true when the list comes from the authoritative reverse index;
// otherwise it is a best-effort guess which can miss owners.
//
// Candidates never fails: broken sources are logged and skipped, in the worst
// case the result is empty.
func (d *Discovery) Candidates(ctx context.Context, viewer Identity) ([]Identity, bool) {
	if d.index != nil {
		owners, err := d.index.SharersOf(ctx, viewer)
		if err == nil {
			res := collect(viewer, owners)
			d.remember(res)
			return res, true
		}

		d.log.Warn("reverse grant index failed, falling back to heuristic discovery",
			zap.Stringer("viewer", viewer), zap.Error(err))
	}

	var known, recent []Identity

	if d.cache != nil {
		var err error
		known, err = d.cache.Known()
		if err != nil {
			d.log.Warn("failed to read known identities", zap.Error(err))
		}
	}

	if d.activity != nil {
		var err error
		recent, err = d.activity.RecentActors(ctx, viewer)
		if err != nil {
			d.log.Warn("failed to scan recent activity",
				zap.Stringer("viewer", viewer), zap.Error(err))
		}
	}

	res := collect(viewer, known, recent, d.seeds)
	d.remember(res)

	d.log.Debug("heuristic discovery finished", zap.Stringer("viewer", viewer),
		zap.Int("cached", len(known)), zap.Int("recent", len(recent)),
		zap.Int("seeds", len(d.seeds)), zap.Int("candidates", len(res)))

	return res, false
}

// Remember adds identities to the local cache, e.g. counterparts of the
// caller's own grants.
func (d *Discovery) Remember(ids ...Identity) {
	d.remember(ids)
}

func (d *Discovery) remember(ids []Identity) {
	if d.cache == nil || len(ids) == 0 {
		return
	}

	err := d.cache.Remember(ids...)
	if err != nil {
		d.log.Warn("failed to update known identities", zap.Error(err))
	}
}

// collect merges the lists keeping the first occurrence order, zero
// identities and the viewer are dropped.
func collect(viewer Identity, lists ...[]Identity) []Identity {
	var (
		res  = []Identity{}
		seen = make(map[Identity]struct{})
	)

	for _, l := range lists {
		for _, id := range l {
			if id.Equals(viewer) || id.Equals(Identity{}) {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			res = append(res, id)
		}
	}

	return res
}
