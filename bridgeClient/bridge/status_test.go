package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		flow   string
		want   bool
	}{
		{StatusSent, FlowDeposit, false},
		{StatusAwaitingBridge, FlowDeposit, false},
		{StatusBridged, FlowDeposit, true},
		{StatusBridged, FlowCheckStatus, true},
		{StatusBridged, FlowMint, false},
		{StatusReservationObserved, FlowMint, false},
		{StatusMintAwaiting, FlowMint, false},
		{StatusMinted, FlowMint, true},
		{StatusTimedOut, FlowWithdraw, true},
		{StatusTimedOut, FlowMint, true},
		{StatusFailed, FlowCustom, true},
	}
	for _, tt := range tests {
		t.Run(tt.flow+"/"+tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Terminal(tt.flow))
		})
	}
}
