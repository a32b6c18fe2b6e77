package config

import (
	"fmt"
	"time"
)

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level" mapstructure:"log_level"`     // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format" mapstructure:"log_format"`   // "json" or "console"
	LogSampler bool   `json:"log_sampler" mapstructure:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Contract deployment selector (production/staging), combined with the chain id
	DeploymentName string `json:"deployment_name" mapstructure:"deployment_name"`

	// Status server port, 0 disables it
	StatusServerPort int `json:"status_server_port" mapstructure:"status_server_port"`

	Chain     ChainConfig    `json:"chain" mapstructure:"chain"`
	Ledger    LedgerConfig   `json:"ledger" mapstructure:"ledger"`
	Locator   LocatorConfig  `json:"locator" mapstructure:"locator"`
	Bridge    BridgeConfig   `json:"bridge" mapstructure:"bridge"`
	Explorers ExplorerConfig `json:"explorers" mapstructure:"explorers"`
}

// ChainConfig holds the smart-contract chain settings.
type ChainConfig struct {
	RPCURLs    []string `json:"rpc_urls" mapstructure:"rpc_urls"`       // RPC endpoints, used round-robin with failover
	ChainID    int64    `json:"chain_id" mapstructure:"chain_id"`       // Expected chain id, 0 = accept whatever the endpoint reports
	PrivateKey string   `json:"private_key" mapstructure:"private_key"` // Hex key used to register custom instructions

	RequestsPerSecond float64 `json:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables client side limiting
	RequestBurst      int     `json:"request_burst" mapstructure:"request_burst"`

	ScanStride uint64 `json:"scan_stride" mapstructure:"scan_stride"` // Blocks per eth_getLogs query (default: 30)

	// Explicit contract addresses override the deployment table
	MasterAccountController string `json:"master_account_controller" mapstructure:"master_account_controller"`
	AssetManager            string `json:"asset_manager" mapstructure:"asset_manager"`
}

// LedgerConfig holds the payment ledger settings.
type LedgerConfig struct {
	RPCURL  string `json:"rpc_url" mapstructure:"rpc_url"`
	Address string `json:"address" mapstructure:"address"` // Classic address of the sending account, derived from secret when empty
	Secret  string `json:"secret" mapstructure:"secret"`   // Account seed

	RemoteSigning bool `json:"remote_signing" mapstructure:"remote_signing"` // Sign through the node's sign method instead of locally

	RequestsPerSecond float64 `json:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables client side limiting
	RequestBurst      int     `json:"request_burst" mapstructure:"request_burst"`

	Fee                        string `json:"fee" mapstructure:"fee"`                                       // Drops (default: "10")
	LastLedgerOffset           uint32 `json:"last_ledger_offset" mapstructure:"last_ledger_offset"`         // Added to latest validated (default: 20)
	RequestTimeoutSeconds      int    `json:"request_timeout_seconds" mapstructure:"request_timeout_seconds"` // (default: 30)
	ValidationPollMilliseconds int    `json:"validation_poll_ms" mapstructure:"validation_poll_ms"`         // (default: 1000)
}

// LocatorConfig parametrises timestamp to block resolution.
type LocatorConfig struct {
	SampleDistance   uint64 `json:"sample_distance" mapstructure:"sample_distance"`     // (default: 1000000)
	Overshoot        uint64 `json:"overshoot" mapstructure:"overshoot"`                 // (default: 2)
	ToleranceSeconds uint64 `json:"tolerance_seconds" mapstructure:"tolerance_seconds"` // (default: 10)
	MaxIterations    int    `json:"max_iterations" mapstructure:"max_iterations"`       // (default: 64)
}

// BridgeConfig parametrises confirmation windows.
type BridgeConfig struct {
	LookbackSeconds     uint64 `json:"lookback_seconds" mapstructure:"lookback_seconds"`           // Subtracted from ledger close time (default: 90)
	WindowBlocks        uint64 `json:"window_blocks" mapstructure:"window_blocks"`                 // Confirmation window length (default: 360)
	PollIntervalSeconds int    `json:"poll_interval_seconds" mapstructure:"poll_interval_seconds"` // (default: 10)
}

// ExplorerConfig holds printf templates taking a transaction hash.
type ExplorerConfig struct {
	LedgerTxURL string `json:"ledger_tx_url" mapstructure:"ledger_tx_url"`
	ChainTxURL  string `json:"chain_tx_url" mapstructure:"chain_tx_url"`
	FaucetURL   string `json:"faucet_url" mapstructure:"faucet_url"` // Where personal accounts get test gas
}

func (c BridgeConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c LedgerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c LedgerConfig) ValidationPollInterval() time.Duration {
	return time.Duration(c.ValidationPollMilliseconds) * time.Millisecond
}

// LedgerTxLink renders the explorer link for a ledger transaction.
func (e ExplorerConfig) LedgerTxLink(hash string) string {
	if e.LedgerTxURL == "" {
		return ""
	}
	return fmt.Sprintf(e.LedgerTxURL, hash)
}

// ChainTxLink renders the explorer link for a chain transaction.
func (e ExplorerConfig) ChainTxLink(hash string) string {
	if e.ChainTxURL == "" {
		return ""
	}
	return fmt.Sprintf(e.ChainTxURL, hash)
}
