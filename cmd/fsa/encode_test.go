package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/instruction"
)

const zeros16 = "00000000000000000000000000000000"

func TestEncodeCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "reserve",
			args: []string{"reserve", "--lots", "2", "--agent-vault-id", "3"},
			want: "00" + "00" + "00000000000000000002" + "0003" + "0000" + zeros16,
		},
		{
			name: "transfer",
			args: []string{"transfer", "--wallet", "1", "--amount", "5", "--recipient", "0x00000000000000000000000000000000000a11ce"},
			want: "01" + "01" + "00000000000000000005" + "00000000000000000000000000000000000a11ce",
		},
		{
			name: "redeem",
			args: []string{"redeem", "--lots", "2"},
			want: "02" + "00" + "00000000000000000002" + "0000" + "0000" + zeros16,
		},
		{
			name: "firelight reserve and deposit",
			args: []string{"firelight-reserve-and-deposit", "--lots", "1", "--agent-vault-id", "2", "--vault-id", "3"},
			want: "10" + "00" + "00000000000000000001" + "0002" + "0003" + zeros16,
		},
		{
			name: "firelight deposit",
			args: []string{"firelight-deposit", "--assets", "1000000", "--vault-id", "1"},
			want: "11" + "00" + "000000000000000f4240" + "0000" + "0001" + zeros16,
		},
		{
			name: "firelight claim withdraw",
			args: []string{"firelight-claim-withdraw", "--period", "1", "--vault-id", "1"},
			want: "13" + "00" + "00000000000000000001" + "0000" + "0001" + zeros16,
		},
		{
			name: "upshift request redeem",
			args: []string{"upshift-request-redeem", "--shares", "255", "--vault-id", "2"},
			want: "22" + "00" + "000000000000000000ff" + "0000" + "0002" + zeros16,
		},
		{
			name: "upshift claim",
			args: []string{"upshift-claim", "--date", "2025-01-31", "--vault-id", "2"},
			// 20250131 = 0x0134fe13
			want: "23" + "00" + "0000000000000134fe13" + "0000" + "0002" + zeros16,
		},
		{
			name: "custom",
			args: []string{"custom", "--call-hash", strings.Repeat("ab", 30)},
			want: "ff" + "00" + strings.Repeat("ab", 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"encode"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestEncodeCoversEveryKind(t *testing.T) {
	covered := map[instruction.Kind]bool{}
	for _, e := range encoders() {
		covered[e.kind] = true
	}
	for _, k := range instruction.AllKinds() {
		assert.True(t, covered[k], "no encode subcommand for %s", k)
	}
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	tests := [][]string{
		{"redeem", "--lots", "1208925819614629174706176"}, // 2^80
		{"redeem", "--lots", "1", "--wallet", "256"},
		{"firelight-deposit", "--assets", "1", "--vault-id", "65536"},
		{"upshift-claim", "--date", "2025-13-01", "--vault-id", "1"},
		{"transfer", "--amount", "1", "--recipient", "0x1234"},
	}
	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			_, err := execute(t, append([]string{"encode"}, args...)...)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "got %v", err)
		})
	}
}

func TestDecodeText(t *testing.T) {
	memo := "0x11" + "00" + "000000000000000f4240" + "0000" + "0001" + zeros16

	out, err := execute(t, "decode", memo)
	require.NoError(t, err)
	assert.Contains(t, out, "instruction:  firelight-deposit (0x11)")
	assert.Contains(t, out, "assets:       1000000")
	assert.Contains(t, out, "vaultId:      1")
}

func TestDecodeStructuredOutput(t *testing.T) {
	memo := "00" + "00" + "00000000000000000002" + "0003" + "0000" + zeros16

	out, err := execute(t, "decode", memo, "-o", "json")
	require.NoError(t, err)
	var fromJSON map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &fromJSON))
	assert.Equal(t, map[string]string{
		"instruction":  "reserve-collateral (0x00)",
		"walletId":     "0",
		"lots":         "2",
		"agentVaultId": "3",
	}, fromJSON)

	out, err = execute(t, "decode", memo, "-o", "yaml")
	require.NoError(t, err)
	var fromYAML map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, fromJSON, fromYAML)
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"short":      "1100",
		"not hex":    strings.Repeat("zz", 32),
		"unknown id": "aa" + strings.Repeat("00", 31),
		"dirty tail": "02" + "00" + "00000000000000000002" + "0000" + "0000" + "00000000000000000000000000000001",
	}
	for name, memo := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, "decode", memo)
			require.Error(t, err)
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	out, err := execute(t, "encode", "upshift-reserve-and-deposit", "--wallet", "7", "--lots", "9", "--agent-vault-id", "4", "--vault-id", "5")
	require.NoError(t, err)

	out, err = execute(t, "decode", strings.TrimSpace(out), "-o", "json")
	require.NoError(t, err)
	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	assert.Equal(t, "upshift-reserve-and-deposit (0x20)", fields["instruction"])
	assert.Equal(t, "7", fields["walletId"])
	assert.Equal(t, "9", fields["lots"])
	assert.Equal(t, "4", fields["agentVaultId"])
	assert.Equal(t, "5", fields["vaultId"])
}
