package fileshare

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the default number of owners checked in parallel.
const DefaultConcurrency = 8

// ProjectionPrm groups parameters of NewProjection.
type ProjectionPrm struct {
	Ledger Ledger

	// Discovery of candidate owners. Required for SharedWithMe.
	Discovery *Discovery

	// Max number of owners checked in parallel, DefaultConcurrency if not
	// positive.
	Concurrency int

	Logger *zap.Logger
}

// Projection builds read models over the catalogs and the grants.
type Projection struct {
	catalog     *Catalog
	matrix      *Matrix
	discovery   *Discovery
	concurrency int
	log         *zap.Logger
}

// NewProjection constructs Projection from the given parameters.
func NewProjection(prm ProjectionPrm) *Projection {
	p := &Projection{
		discovery:   prm.Discovery,
		concurrency: prm.Concurrency,
		log:         prm.Logger,
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.concurrency <= 0 {
		p.concurrency = DefaultConcurrency
	}
	p.catalog = NewCatalog(prm.Ledger, p.log)
	p.matrix = NewMatrix(prm.Ledger, p.log)
	return p
}

// MyFiles returns the owner's own catalog.
func (p *Projection) MyFiles(ctx context.Context, owner Identity) ([]FileRecord, error) {
	return p.catalog.List(ctx, owner)
}

// SharedWithMe returns records of other owners visible to the viewer.
//
// Candidate owners come from Discovery, each one is checked against the
// grants. Records visible by a global grant are tagged AccessGlobal even if
// per-file grants exist too. Owners whose checks fail are skipped and listed
// in the result, the call itself fails only on invalid viewer or context
// cancellation.
func (p *Projection) SharedWithMe(ctx context.Context, viewer Identity) (SharedResult, error) {
	if err := checkIdentity(viewer); err != nil {
		return SharedResult{}, err
	}
	if p.discovery == nil {
		return SharedResult{}, errors.New("discovery is not configured")
	}

	owners, complete := p.discovery.Candidates(ctx, viewer)

	var (
		g       errgroup.Group
		perOwn  = make([][]SharedFile, len(owners))
		failed  = make([]error, len(owners))
		skipped []Identity
	)

	g.SetLimit(p.concurrency)

	for i := range owners {
		i := i
		g.Go(func() error {
			perOwn[i], failed[i] = p.matrix.VisibleTo(ctx, owners[i], viewer)
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return SharedResult{}, err
	}

	var (
		res  = SharedResult{Files: []SharedFile{}}
		seen = make(map[RecordRef]int)
	)

	for i := range owners {
		if failed[i] != nil {
			p.log.Warn("owner skipped while collecting shared records",
				zap.Stringer("owner", owners[i]), zap.Stringer("viewer", viewer),
				zap.Error(failed[i]))
			skipped = append(skipped, owners[i])
			continue
		}

		for _, f := range perOwn[i] {
			if j, ok := seen[f.Ref()]; ok {
				if f.Access == AccessGlobal {
					res.Files[j].Access = AccessGlobal
				}
				continue
			}
			seen[f.Ref()] = len(res.Files)
			res.Files = append(res.Files, f)
		}
	}

	res.Skipped = skipped
	res.Incomplete = !complete || len(skipped) != 0

	p.log.Debug("shared records collected", zap.Stringer("viewer", viewer),
		zap.Int("owners", len(owners)), zap.Int("records", len(res.Files)),
		zap.Int("skipped", len(skipped)), zap.Bool("authoritative", complete))

	return res, nil
}
