package fileshare_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/nspcc-dev/safechain/knowncache"
	"github.com/nspcc-dev/safechain/memledger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

// brokenOwner fails every read of one owner's catalog.
type brokenOwner struct {
	fileshare.Ledger
	owner util.Uint160
}

func (b brokenOwner) Files(ctx context.Context, owner util.Uint160) ([]fileshare.FileRecord, error) {
	if owner.Equals(b.owner) {
		return nil, fmt.Errorf("%w: connection reset", fileshare.ErrLedgerUnavailable)
	}
	return b.Ledger.Files(ctx, owner)
}

// brokenIndex fails reverse index lookups.
type brokenIndex struct {
	fileshare.Ledger
}

func (brokenIndex) SharersOf(context.Context, util.Uint160) ([]util.Uint160, error) {
	return nil, errors.New("method not found")
}

type staticActivity []util.Uint160

func (s staticActivity) RecentActors(context.Context, util.Uint160) ([]util.Uint160, error) {
	return s, nil
}

func newProjection(t *testing.T, l fileshare.Ledger, prm fileshare.DiscoveryPrm) *fileshare.Projection {
	log := zaptest.NewLogger(t)
	prm.Ledger = l
	prm.Logger = log
	return fileshare.NewProjection(fileshare.ProjectionPrm{
		Ledger:      l,
		Discovery:   fileshare.NewDiscovery(prm),
		Concurrency: 2,
		Logger:      log,
	})
}

func shared(owner util.Uint160, id uint64, pos int, ptr, name string, kind fileshare.AccessKind) fileshare.SharedFile {
	return fileshare.SharedFile{
		Owner:  owner,
		File:   fileshare.FileRecord{ID: id, Position: pos, Pointer: ptr, Name: name},
		Access: kind,
	}
}

func TestProjection_SharedWithMe(t *testing.T) {
	ctx := context.Background()
	l := memledger.New()
	a := l.As(ownerA)

	c := fileshare.NewCatalog(a, nil)
	m := fileshare.NewMatrix(a, nil)

	_, err := c.Append(ctx, ownerA, "ptr1", "a.png")
	require.NoError(t, err)
	_, err = c.Append(ctx, ownerA, "ptr2", "b.png")
	require.NoError(t, err)

	p := newProjection(t, l, fileshare.DiscoveryPrm{})

	res, err := p.SharedWithMe(ctx, viewer)
	require.NoError(t, err)
	require.Empty(t, res.Files)
	require.False(t, res.Incomplete)

	t.Run("global grant", func(t *testing.T) {
		_, err := m.GrantGlobal(ctx, ownerA, viewer)
		require.NoError(t, err)

		res, err := p.SharedWithMe(ctx, viewer)
		require.NoError(t, err)
		require.False(t, res.Incomplete)
		require.Equal(t, []fileshare.SharedFile{
			shared(ownerA, 1, 0, "ptr1", "a.png", fileshare.AccessGlobal),
			shared(ownerA, 2, 1, "ptr2", "b.png", fileshare.AccessGlobal),
		}, res.Files)

		_, err = m.RevokeGlobal(ctx, ownerA, viewer)
		require.NoError(t, err)
	})

	t.Run("file grant", func(t *testing.T) {
		_, err := m.GrantFile(ctx, ownerA, 1, viewer)
		require.NoError(t, err)

		res, err := p.SharedWithMe(ctx, viewer)
		require.NoError(t, err)
		require.Equal(t, []fileshare.SharedFile{
			shared(ownerA, 2, 1, "ptr2", "b.png", fileshare.AccessFile),
		}, res.Files)
	})

	t.Run("global takes precedence", func(t *testing.T) {
		_, err := m.GrantGlobal(ctx, ownerA, viewer)
		require.NoError(t, err)

		res, err := p.SharedWithMe(ctx, viewer)
		require.NoError(t, err)
		require.Len(t, res.Files, 2)
		for _, f := range res.Files {
			require.Equal(t, fileshare.AccessGlobal, f.Access)
		}
	})

	t.Run("later records are visible with global grant", func(t *testing.T) {
		_, err := c.Append(ctx, ownerA, "ptr3", "c.png")
		require.NoError(t, err)

		res, err := p.SharedWithMe(ctx, viewer)
		require.NoError(t, err)
		require.Len(t, res.Files, 3)
		require.Equal(t, "c.png", res.Files[2].File.Name)
	})

	t.Run("own records are not shared with the owner", func(t *testing.T) {
		res, err := p.SharedWithMe(ctx, ownerA)
		require.NoError(t, err)
		require.Empty(t, res.Files)
	})

	t.Run("my files", func(t *testing.T) {
		files, err := p.MyFiles(ctx, ownerA)
		require.NoError(t, err)
		require.Len(t, files, 3)
	})
}

func TestProjection_Order(t *testing.T) {
	ctx := context.Background()
	l := memledger.New()

	for _, owner := range []util.Uint160{ownerA, ownerB, ownerC} {
		ol := l.As(owner)
		appendNames(t, fileshare.NewCatalog(ol, nil), owner, "x", "y", "z")

		m := fileshare.NewMatrix(ol, nil)
		if owner.Equals(ownerB) {
			_, err := m.GrantGlobal(ctx, owner, viewer)
			require.NoError(t, err)
			continue
		}
		_, err := m.GrantFile(ctx, owner, 2, viewer)
		require.NoError(t, err)
		_, err = m.GrantFile(ctx, owner, 0, viewer)
		require.NoError(t, err)
	}

	p := newProjection(t, l, fileshare.DiscoveryPrm{})

	res, err := p.SharedWithMe(ctx, viewer)
	require.NoError(t, err)

	var got []string
	for _, f := range res.Files {
		got = append(got, fmt.Sprintf("%x/%d/%s", f.Owner[0], f.File.Position, f.Access))
	}
	require.Equal(t, []string{
		"a/0/file", "a/2/file",
		"b/0/global", "b/1/global", "b/2/global",
		"c/0/file", "c/2/file",
	}, got)
}

func TestProjection_Failures(t *testing.T) {
	ctx := context.Background()
	l := memledger.New()

	for _, owner := range []util.Uint160{ownerA, ownerB} {
		ol := l.As(owner)
		appendNames(t, fileshare.NewCatalog(ol, nil), owner, "x")
		_, err := fileshare.NewMatrix(ol, nil).GrantGlobal(ctx, owner, viewer)
		require.NoError(t, err)
	}

	t.Run("broken owner is skipped", func(t *testing.T) {
		p := newProjection(t, brokenOwner{Ledger: l, owner: ownerA}, fileshare.DiscoveryPrm{
			Seeds: []util.Uint160{ownerA, ownerB},
		})

		res, err := p.SharedWithMe(ctx, viewer)
		require.NoError(t, err)
		require.True(t, res.Incomplete)
		require.Equal(t, []util.Uint160{ownerA}, res.Skipped)
		require.Len(t, res.Files, 1)
		require.Equal(t, ownerB, res.Files[0].Owner)
	})

	t.Run("cancelled", func(t *testing.T) {
		p := newProjection(t, l, fileshare.DiscoveryPrm{})

		ctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := p.SharedWithMe(ctx, viewer)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid viewer", func(t *testing.T) {
		p := newProjection(t, l, fileshare.DiscoveryPrm{})

		_, err := p.SharedWithMe(ctx, util.Uint160{})
		require.ErrorIs(t, err, fileshare.ErrInvalidIdentity)
	})
}

func TestProjection_Heuristic(t *testing.T) {
	ctx := context.Background()
	l := memledger.New()
	a := l.As(ownerA)

	appendNames(t, fileshare.NewCatalog(a, nil), ownerA, "a.png")
	_, err := fileshare.NewMatrix(a, nil).GrantGlobal(ctx, ownerA, viewer)
	require.NoError(t, err)

	t.Run("nothing discovered", func(t *testing.T) {
		p := newProjection(t, l.WithoutIndex(), fileshare.DiscoveryPrm{})

		res, err := p.SharedWithMe(ctx, viewer)
		require.NoError(t, err)
		require.Empty(t, res.Files, "grant exists but no source knows the owner")
		require.True(t, res.Incomplete)
	})

	t.Run("recent activity", func(t *testing.T) {
		cache := knowncache.NewMemory(10, 0)

		p := newProjection(t, l.WithoutIndex(), fileshare.DiscoveryPrm{
			Cache:    cache,
			Activity: memledger.New().As(ownerB),
		})

		res, err := p.SharedWithMe(ctx, viewer)
		require.NoError(t, err)
		require.Empty(t, res.Files)

		p = newProjection(t, l.WithoutIndex(), fileshare.DiscoveryPrm{
			Cache:    cache,
			Activity: l,
		})

		res, err = p.SharedWithMe(ctx, viewer)
		require.NoError(t, err)
		require.True(t, res.Incomplete)
		require.Len(t, res.Files, 1)

		known, err := cache.Known()
		require.NoError(t, err)
		require.Equal(t, []util.Uint160{ownerA}, known)

		t.Run("cache alone is enough next time", func(t *testing.T) {
			p := newProjection(t, l.WithoutIndex(), fileshare.DiscoveryPrm{Cache: cache})

			res, err := p.SharedWithMe(ctx, viewer)
			require.NoError(t, err)
			require.Len(t, res.Files, 1)
		})
	})

	t.Run("broken index falls back", func(t *testing.T) {
		p := newProjection(t, brokenIndex{l}, fileshare.DiscoveryPrm{
			Seeds: []util.Uint160{ownerA},
		})

		res, err := p.SharedWithMe(ctx, viewer)
		require.NoError(t, err)
		require.True(t, res.Incomplete)
		require.Len(t, res.Files, 1)
	})
}

func TestDiscovery_Candidates(t *testing.T) {
	ctx := context.Background()
	cache := knowncache.NewMemory(10, 0)
	require.NoError(t, cache.Remember(ownerB, viewer))

	d := fileshare.NewDiscovery(fileshare.DiscoveryPrm{
		Ledger:   memledger.New().WithoutIndex(),
		Cache:    cache,
		Activity: staticActivity{ownerC, ownerB, viewer, {}},
		Seeds:    []util.Uint160{ownerA, ownerC},
		Logger:   zaptest.NewLogger(t),
	})

	ids, complete := d.Candidates(ctx, viewer)
	require.False(t, complete)
	require.Equal(t, []util.Uint160{ownerB, ownerC, ownerA}, ids)

	known, err := cache.Known()
	require.NoError(t, err)
	require.ElementsMatch(t, []util.Uint160{ownerA, ownerB, ownerC, viewer}, known)

	t.Run("index is authoritative", func(t *testing.T) {
		l := memledger.New()
		_, err := l.As(ownerC).SetGlobalAccess(ctx, ownerC, viewer, true)
		require.NoError(t, err)

		d := fileshare.NewDiscovery(fileshare.DiscoveryPrm{
			Ledger: l,
			Seeds:  []util.Uint160{ownerA},
		})

		ids, complete := d.Candidates(ctx, viewer)
		require.True(t, complete)
		require.Equal(t, []util.Uint160{ownerC}, ids)
	})
}

func TestProjection_ConcurrentSharedCache(t *testing.T) {
	ctx := context.Background()
	l := memledger.New()
	owners := []util.Uint160{ownerA, ownerB, ownerC}

	viewers := make([]util.Uint160, 8)
	for i := range viewers {
		viewers[i] = util.Uint160{0xe0 + byte(i)}
	}

	for _, owner := range owners {
		ol := l.As(owner)
		appendNames(t, fileshare.NewCatalog(ol, nil), owner, "x")

		m := fileshare.NewMatrix(ol, nil)
		for _, v := range viewers {
			_, err := m.GrantGlobal(ctx, owner, v)
			require.NoError(t, err)
		}
	}

	// small and short-lived cache keeps evicting while being updated
	cache := knowncache.NewMemory(4, 10*time.Millisecond)

	p := newProjection(t, l.WithoutIndex(), fileshare.DiscoveryPrm{
		Cache:    cache,
		Activity: l,
		Seeds:    owners,
	})

	var g errgroup.Group

	for _, v := range viewers {
		v := v
		for i := 0; i < 20; i++ {
			g.Go(func() error {
				res, err := p.SharedWithMe(ctx, v)
				if err != nil {
					return err
				}
				if len(res.Files) != len(owners) {
					return fmt.Errorf("viewer %s: %d records instead of %d", v.StringLE(), len(res.Files), len(owners))
				}
				return nil
			})
		}
	}

	require.NoError(t, g.Wait())
}
