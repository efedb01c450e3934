package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/safechain/config"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	p := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(data), 0600))
	return p
}

func TestLoad(t *testing.T) {
	var (
		contract = util.Uint160{1, 2, 3}
		seed     = util.Uint160{4, 5, 6}
	)

	p := writeConfig(t, `
rpc:
  endpoint: http://localhost:30333
  request_timeout: 1m
contract: `+address.Uint160ToString(contract)+`
wallet:
  path: wallet.json
  password: secret
cache:
  path: known.db
  ttl: 24h
discovery:
  seeds:
    - `+address.Uint160ToString(seed)+`
    - 0x`+seed.StringLE()+`
concurrency: 3
`)

	c, err := config.Load(p)
	require.NoError(t, err)

	require.Equal(t, "http://localhost:30333", c.RPC.Endpoint)
	require.Equal(t, config.DefaultDialTimeout, c.RPC.DialTimeout)
	require.Equal(t, time.Minute, c.RPC.RequestTimeout)
	require.Equal(t, "wallet.json", c.Wallet.Path)
	require.Equal(t, "secret", c.Wallet.Password)
	require.Equal(t, "known.db", c.Cache.Path)
	require.Equal(t, config.DefaultCacheSize, c.Cache.Size)
	require.Equal(t, 24*time.Hour, c.Cache.TTL)
	require.EqualValues(t, config.DefaultLookBack, c.Discovery.LookBack)
	require.Equal(t, 3, c.Concurrency)

	h, err := c.ContractHash()
	require.NoError(t, err)
	require.Equal(t, contract, h)

	seeds, err := c.SeedHashes()
	require.NoError(t, err)
	require.Equal(t, []util.Uint160{seed, seed}, seeds)
}

func TestLoad_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name, data string
	}{
		{name: "unknown field", data: "rpc:\n  endpoint: localhost\ncontract: 0x0000000000000000000000000000000000000001\nfoo: bar\n"},
		{name: "missing endpoint", data: "contract: 0x0000000000000000000000000000000000000001\n"},
		{name: "invalid contract", data: "rpc:\n  endpoint: localhost\ncontract: NotAnAddress\n"},
		{name: "invalid seed", data: "rpc:\n  endpoint: localhost\ncontract: 0x0000000000000000000000000000000000000001\ndiscovery:\n  seeds: [abc]\n"},
		{name: "invalid wallet address", data: "rpc:\n  endpoint: localhost\ncontract: 0x0000000000000000000000000000000000000001\nwallet:\n  address: abc\n"},
		{name: "negative concurrency", data: "rpc:\n  endpoint: localhost\ncontract: 0x0000000000000000000000000000000000000001\nconcurrency: -1\n"},
		{name: "invalid duration", data: "rpc:\n  endpoint: localhost\n  dial_timeout: soon\ncontract: 0x0000000000000000000000000000000000000001\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.data))
			require.Error(t, err)
		})
	}

	t.Run("missing contract", func(t *testing.T) {
		c, err := config.Load(writeConfig(t, "rpc:\n  endpoint: localhost\n"))
		require.NoError(t, err)

		_, err = c.ContractHash()
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "none.yml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseIdentity(t *testing.T) {
	h := util.Uint160{0xde, 0xad}

	for _, s := range []string{
		address.Uint160ToString(h),
		h.StringLE(),
		"0x" + h.StringLE(),
	} {
		res, err := config.ParseIdentity(s)
		require.NoError(t, err, s)
		require.Equal(t, h, res, s)
	}

	_, err := config.ParseIdentity("")
	require.Error(t, err)

	_, err = config.ParseIdentity("0xzz")
	require.Error(t, err)
}
