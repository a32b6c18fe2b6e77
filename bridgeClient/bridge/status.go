package bridge

// Status is a step of a bridge operation's lifecycle.
//
// Generic flows move Sent -> AwaitingBridge -> Bridged | TimedOut. Minting
// moves ReservationRequested -> Bridged -> ReservationObserved ->
// UnderlyingSent -> MintAwaiting -> Minted | TimedOut. Any step may end in
// Failed.
type Status string

const (
	StatusSent                 Status = "Sent"
	StatusAwaitingBridge       Status = "AwaitingBridge"
	StatusBridged              Status = "Bridged"
	StatusTimedOut             Status = "TimedOut"
	StatusReservationRequested Status = "ReservationRequested"
	StatusReservationObserved  Status = "ReservationObserved"
	StatusUnderlyingSent       Status = "UnderlyingSent"
	StatusMintAwaiting         Status = "MintAwaiting"
	StatusMinted               Status = "Minted"
	StatusFailed               Status = "Failed"
)

// Terminal reports whether no further transition follows s in flow. Bridged
// ends every flow except minting, which goes on to pay the agent.
func (s Status) Terminal(flow string) bool {
	switch s {
	case StatusTimedOut, StatusMinted, StatusFailed:
		return true
	case StatusBridged:
		return flow != FlowMint
	}
	return false
}

func (s Status) String() string { return string(s) }

// Flow names, as journaled and labelled in metrics.
const (
	FlowDeposit       = "deposit"
	FlowWithdraw      = "withdraw"
	FlowRedeem        = "redeem"
	FlowClaimWithdraw = "claim-withdraw"
	FlowCustom        = "custom"
	FlowMint          = "mint"
	FlowInstruction   = "instruction"
	FlowCheckStatus   = "check-status"
)
