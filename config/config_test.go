package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategyd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validConfig = `
ListenAddress = ":9090"
DataDir = "/tmp/strategy-data"
ChainRPCURL = "wss://node.example:8546"
DustFloorWei = "2000000000"

[Custody]
Owner = "0x00000000000000000000000000000000000000c0"
LSTToken = "0x0000000000000000000000000000000000000001"

[Pool]
Address = "0x0000000000000000000000000000000000000002"
AssetIndex = 0
LSTIndex = 1

[Staking]
Address = "0x0000000000000000000000000000000000000003"
Referral = "0x00000000000000000000000000000000000000bb"

[Queue]
Address = "0x0000000000000000000000000000000000000004"

[Auth]
ManagementToken = "mgmt-token"
EmergencyToken = "emergency-token"
ManagementAddress = "0x00000000000000000000000000000000000000a1"
EmergencyAddress = "0x00000000000000000000000000000000000000e1"
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddress)
	require.Equal(t, "wss://node.example:8546", cfg.ChainRPCURL)
	require.Equal(t, int64(1), cfg.Pool.LSTIndex)
	require.Equal(t, "mgmt-token", cfg.Auth.ManagementToken)

	floor, err := cfg.DustFloor()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2_000_000_000), floor)
}

func TestLoadAppliesDefaults(t *testing.T) {
	body := `
ChainRPCURL = "http://localhost:8545"

[Custody]
Owner = "0x00000000000000000000000000000000000000c0"
LSTToken = "0x0000000000000000000000000000000000000001"

[Pool]
Address = "0x0000000000000000000000000000000000000002"
LSTIndex = 1

[Staking]
Address = "0x0000000000000000000000000000000000000003"

[Queue]
Address = "0x0000000000000000000000000000000000000004"
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	require.Equal(t, ":8558", cfg.ListenAddress)
	require.Equal(t, "./strategy-data", cfg.DataDir)

	floor, err := cfg.DustFloor()
	require.NoError(t, err)
	require.Nil(t, floor)
}

func TestLoadWritesSkeletonWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategyd.toml")
	_, err := Load(path)
	require.ErrorContains(t, err, "default written")

	written, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	require.Contains(t, string(written), "[Custody]")

	// The skeleton is loadable once the operator fills it in.
	_, err = Load(path)
	require.ErrorContains(t, err, "ChainRPCURL")
}

func TestLoadRejectsBadAddress(t *testing.T) {
	body := `
ChainRPCURL = "http://localhost:8545"

[Custody]
Owner = "not-an-address"
LSTToken = "0x0000000000000000000000000000000000000001"

[Pool]
Address = "0x0000000000000000000000000000000000000002"
LSTIndex = 1

[Staking]
Address = "0x0000000000000000000000000000000000000003"

[Queue]
Address = "0x0000000000000000000000000000000000000004"
`
	_, err := Load(writeConfig(t, body))
	require.ErrorContains(t, err, "Custody.Owner")
}

func TestLoadRejectsMissingChainRPC(t *testing.T) {
	body := `
[Custody]
Owner = "0x00000000000000000000000000000000000000c0"
LSTToken = "0x0000000000000000000000000000000000000001"
`
	_, err := Load(writeConfig(t, body))
	require.ErrorContains(t, err, "ChainRPCURL")
}

func TestLoadRejectsEqualPoolIndices(t *testing.T) {
	body := `
ChainRPCURL = "http://localhost:8545"

[Custody]
Owner = "0x00000000000000000000000000000000000000c0"
LSTToken = "0x0000000000000000000000000000000000000001"

[Pool]
Address = "0x0000000000000000000000000000000000000002"
AssetIndex = 1
LSTIndex = 1

[Staking]
Address = "0x0000000000000000000000000000000000000003"

[Queue]
Address = "0x0000000000000000000000000000000000000004"
`
	_, err := Load(writeConfig(t, body))
	require.ErrorContains(t, err, "must differ")
}

func TestLoadRejectsCollapsedAuthPrincipals(t *testing.T) {
	base := `
ChainRPCURL = "http://localhost:8545"

[Custody]
Owner = "0x00000000000000000000000000000000000000c0"
LSTToken = "0x0000000000000000000000000000000000000001"

[Pool]
Address = "0x0000000000000000000000000000000000000002"
LSTIndex = 1

[Staking]
Address = "0x0000000000000000000000000000000000000003"

[Queue]
Address = "0x0000000000000000000000000000000000000004"

[Auth]
`
	cases := []struct {
		name string
		auth string
		want string
	}{
		{
			name: "equal tokens",
			auth: `ManagementToken = "tok"
EmergencyToken = "tok"
ManagementAddress = "0x00000000000000000000000000000000000000a1"
EmergencyAddress = "0x00000000000000000000000000000000000000e1"`,
			want: "must differ",
		},
		{
			name: "missing principals",
			auth: `ManagementToken = "mgmt"
EmergencyToken = "emergency"`,
			want: "required when both tokens",
		},
		{
			name: "same principal both tiers",
			auth: `ManagementToken = "mgmt"
EmergencyToken = "emergency"
ManagementAddress = "0x00000000000000000000000000000000000000a1"
EmergencyAddress = "0x00000000000000000000000000000000000000A1"`,
			want: "distinct principals",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, base+tc.auth+"\n"))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoadAllowsSingleTierToken(t *testing.T) {
	body := `
ChainRPCURL = "http://localhost:8545"

[Custody]
Owner = "0x00000000000000000000000000000000000000c0"
LSTToken = "0x0000000000000000000000000000000000000001"

[Pool]
Address = "0x0000000000000000000000000000000000000002"
LSTIndex = 1

[Staking]
Address = "0x0000000000000000000000000000000000000003"

[Queue]
Address = "0x0000000000000000000000000000000000000004"

[Auth]
ManagementToken = "mgmt"
`
	_, err := Load(writeConfig(t, body))
	require.NoError(t, err)
}

func TestLoadRejectsBadDustFloor(t *testing.T) {
	body := `
ChainRPCURL = "http://localhost:8545"
DustFloorWei = "1.5"

[Custody]
Owner = "0x00000000000000000000000000000000000000c0"
LSTToken = "0x0000000000000000000000000000000000000001"

[Pool]
Address = "0x0000000000000000000000000000000000000002"
LSTIndex = 1

[Staking]
Address = "0x0000000000000000000000000000000000000003"

[Queue]
Address = "0x0000000000000000000000000000000000000004"
`
	_, err := Load(writeConfig(t, body))
	require.ErrorContains(t, err, "DustFloorWei")
}
