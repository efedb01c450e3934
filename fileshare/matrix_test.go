package fileshare_test

import (
	"context"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/nspcc-dev/safechain/memledger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMatrix_Global(t *testing.T) {
	ctx := context.Background()
	l := memledger.New()
	m := fileshare.NewMatrix(l.As(ownerA), zaptest.NewLogger(t))

	_, err := m.GrantGlobal(ctx, ownerA, ownerA)
	require.ErrorIs(t, err, fileshare.ErrInvalidIdentity)

	_, err = m.GrantGlobal(ctx, ownerA, util.Uint160{})
	require.ErrorIs(t, err, fileshare.ErrInvalidIdentity)

	_, err = m.GrantGlobal(ctx, ownerB, viewer)
	require.ErrorIs(t, err, fileshare.ErrUnauthorized)

	res, err := m.RevokeGlobal(ctx, ownerA, viewer)
	require.NoError(t, err)
	require.Equal(t, fileshare.Unchanged, res)

	ok, err := m.HasGlobalAccess(ctx, ownerA, viewer)
	require.NoError(t, err)
	require.False(t, ok)

	res, err = m.GrantGlobal(ctx, ownerA, viewer)
	require.NoError(t, err)
	require.Equal(t, fileshare.Changed, res)

	res, err = m.GrantGlobal(ctx, ownerA, viewer)
	require.NoError(t, err)
	require.Equal(t, fileshare.Unchanged, res)

	ok, err = m.HasGlobalAccess(ctx, ownerA, viewer)
	require.NoError(t, err)
	require.True(t, ok)

	grantees, err := m.ListGrantees(ctx, ownerA)
	require.NoError(t, err)
	require.Equal(t, []fileshare.Grantee{{Viewer: viewer, Granted: true}}, grantees)

	res, err = m.RevokeGlobal(ctx, ownerA, viewer)
	require.NoError(t, err)
	require.Equal(t, fileshare.Changed, res)

	ok, err = m.HasGlobalAccess(ctx, ownerA, viewer)
	require.NoError(t, err)
	require.False(t, ok)

	grantees, err = m.ListGrantees(ctx, ownerA)
	require.NoError(t, err)
	require.Equal(t, []fileshare.Grantee{{Viewer: viewer, Granted: false}}, grantees)
}

func TestMatrix_File(t *testing.T) {
	ctx := context.Background()
	l := memledger.New().As(ownerA)
	c := fileshare.NewCatalog(l, nil)
	m := fileshare.NewMatrix(l, zaptest.NewLogger(t))

	appendNames(t, c, ownerA, "a", "b", "c")

	_, err := m.GrantFile(ctx, ownerA, 3, viewer)
	require.ErrorIs(t, err, fileshare.ErrOutOfRange)

	_, err = m.GrantFile(ctx, ownerA, -1, viewer)
	require.ErrorIs(t, err, fileshare.ErrOutOfRange)

	_, err = m.GrantFile(ctx, ownerA, 0, ownerA)
	require.ErrorIs(t, err, fileshare.ErrInvalidIdentity)

	res, err := m.GrantFile(ctx, ownerA, 1, viewer)
	require.NoError(t, err)
	require.Equal(t, fileshare.Changed, res)

	res, err = m.GrantFile(ctx, ownerA, 1, viewer)
	require.NoError(t, err)
	require.Equal(t, fileshare.Unchanged, res)

	ok, err := m.HasGlobalAccess(ctx, ownerA, viewer)
	require.NoError(t, err)
	require.False(t, ok, "file grant must not imply global one")

	ok, err = m.CanView(ctx, ownerA, 1, viewer)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.CanView(ctx, ownerA, 2, ownerA)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = m.HasFileAccess(ctx, ownerA, 5, viewer)
	require.ErrorIs(t, err, fileshare.ErrOutOfRange)

	t.Run("grant follows the record after renumbering", func(t *testing.T) {
		require.NoError(t, c.Remove(ctx, ownerA, 0))

		// position 1 now holds the former third record which was never
		// granted, the granted one moved to position 0
		ok, err := m.HasFileAccess(ctx, ownerA, 1, viewer)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = m.HasFileAccess(ctx, ownerA, 0, viewer)
		require.NoError(t, err)
		require.True(t, ok)

		viewers, err := m.ListFileGrantees(ctx, ownerA, 0)
		require.NoError(t, err)
		require.Equal(t, []util.Uint160{viewer}, viewers)

		f, err := c.Get(ctx, ownerA, 0)
		require.NoError(t, err)
		require.Equal(t, "b", f.Name)
	})

	res, err = m.RevokeFile(ctx, ownerA, 0, viewer)
	require.NoError(t, err)
	require.Equal(t, fileshare.Changed, res)

	res, err = m.RevokeFile(ctx, ownerA, 0, viewer)
	require.NoError(t, err)
	require.Equal(t, fileshare.Unchanged, res)

	viewers, err := m.ListFileGrantees(ctx, ownerA, 0)
	require.NoError(t, err)
	require.Empty(t, viewers)
}

func TestMatrix_VisibleTo(t *testing.T) {
	ctx := context.Background()
	l := memledger.New().As(ownerA)
	m := fileshare.NewMatrix(l, zaptest.NewLogger(t))

	appendNames(t, fileshare.NewCatalog(l, nil), ownerA, "a", "b", "c")

	visible := func(viewer util.Uint160) map[string]fileshare.AccessKind {
		files, err := m.VisibleTo(ctx, ownerA, viewer)
		require.NoError(t, err)

		res := make(map[string]fileshare.AccessKind, len(files))
		for _, f := range files {
			require.Equal(t, ownerA, f.Owner)
			res[f.File.Name] = f.Access
		}
		return res
	}

	require.Empty(t, visible(viewer))

	_, err := m.GrantFile(ctx, ownerA, 0, viewer)
	require.NoError(t, err)
	_, err = m.GrantFile(ctx, ownerA, 2, viewer)
	require.NoError(t, err)

	require.Equal(t, map[string]fileshare.AccessKind{
		"a": fileshare.AccessFile,
		"c": fileshare.AccessFile,
	}, visible(viewer))
	require.Empty(t, visible(ownerB))

	_, err = m.GrantGlobal(ctx, ownerA, ownerB)
	require.NoError(t, err)

	require.Equal(t, map[string]fileshare.AccessKind{
		"a": fileshare.AccessGlobal,
		"b": fileshare.AccessGlobal,
		"c": fileshare.AccessGlobal,
	}, visible(ownerB))

	_, err = m.VisibleTo(ctx, ownerA, ownerA)
	require.ErrorIs(t, err, fileshare.ErrInvalidIdentity)
}
