// Package core builds the per-process object graph from configuration.
package core

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/api"
	"github.com/smartaccounts/bridge-relay/bridgeClient/bridge"
	"github.com/smartaccounts/bridge-relay/bridgeClient/cache"
	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/evm"
	"github.com/smartaccounts/bridge-relay/bridgeClient/chains/xrpl"
	"github.com/smartaccounts/bridge-relay/bridgeClient/config"
	"github.com/smartaccounts/bridge-relay/bridgeClient/db"
	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
	"github.com/smartaccounts/bridge-relay/bridgeClient/metrics"
	"github.com/smartaccounts/bridge-relay/bridgeClient/ratelimit"
	"github.com/smartaccounts/bridge-relay/bridgeClient/registry"
)

// Runtime owns every long-lived client of one process. Components that need
// credentials which are not configured stay nil.
type Runtime struct {
	Config  config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics

	Chain       *evm.RPCClient
	Registry    *registry.Registry
	Cache       *cache.Cache
	Controller  *evm.MasterAccountController
	ChainSigner *evm.Signer
	Registrar   *evm.CustomRegistrar
	Locator     *evm.BlockLocator
	Scanner     *evm.EventScanner
	Confirmer   *evm.EventConfirmer

	Ledger *xrpl.Client
	Sender *xrpl.Sender

	DB      *db.DB
	Journal *db.Journal
	Status  *api.Server
}

// New connects to the chain and, when configured, the ledger.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Runtime, error) {
	r := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Cache:   cache.New(logger),
	}

	if err := r.initChain(ctx); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.initLedger(); err != nil {
		r.Close()
		return nil, err
	}

	database, err := db.OpenInMemoryDB(true)
	if err != nil {
		r.Close()
		return nil, errors.NewDatabaseError("failed to open operation journal", err)
	}
	r.DB = database
	r.Journal = db.NewJournal(database, logger)

	if cfg.StatusServerPort > 0 {
		r.Status = api.NewServer(logger, cfg.StatusServerPort, r.Journal, r.Cache, r.Metrics)
	}
	return r, nil
}

func (r *Runtime) initChain(ctx context.Context) error {
	cfg := r.Config.Chain
	limiter := ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.RequestBurst, "evm", r.Metrics)

	client, err := evm.NewRPCClient(ctx, cfg.RPCURLs, cfg.ChainID, limiter, r.Metrics, r.Logger)
	if err != nil {
		return err
	}
	r.Chain = client

	deployment, err := r.Config.ResolveDeployment(client.ChainID())
	if err != nil {
		return errors.NewConfigError(err.Error())
	}
	if r.Registry, err = registry.New(deployment); err != nil {
		return err
	}

	var transactor bind.ContractTransactor
	if cfg.PrivateKey != "" {
		if r.ChainSigner, err = evm.NewSigner(cfg.PrivateKey, client, r.Logger); err != nil {
			return err
		}
		if transactor, err = r.ChainSigner.Transactor(); err != nil {
			return err
		}
	}

	r.Controller = evm.NewMasterAccountController(r.Registry.MasterAccountController(), client, transactor, r.Cache, r.Logger)
	if r.ChainSigner != nil {
		r.Registrar = evm.NewCustomRegistrar(r.Controller, r.ChainSigner)
	}

	r.Locator = evm.NewBlockLocator(client, evm.LocatorConfig{
		SampleDistance: r.Config.Locator.SampleDistance,
		Overshoot:      r.Config.Locator.Overshoot,
		Tolerance:      r.Config.Locator.ToleranceSeconds,
		MaxIterations:  r.Config.Locator.MaxIterations,
	}, r.Logger)
	r.Scanner = evm.NewEventScanner(client, cfg.ScanStride, r.Metrics, r.Logger)
	r.Confirmer = evm.NewEventConfirmer(client, r.Scanner, r.Config.Bridge.PollInterval(), r.Metrics, r.Logger)
	return nil
}

func (r *Runtime) initLedger() error {
	cfg := r.Config.Ledger
	if cfg.RPCURL == "" {
		return nil
	}

	client, err := xrpl.NewClient(cfg.RPCURL, r.Logger,
		xrpl.WithLimiter(ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.RequestBurst, "xrpl", r.Metrics)),
		xrpl.WithMetrics(r.Metrics),
		xrpl.WithRequestTimeout(cfg.RequestTimeout()),
		xrpl.WithValidationPollInterval(cfg.ValidationPollInterval()),
	)
	if err != nil {
		return err
	}
	r.Ledger = client

	if cfg.Secret == "" {
		r.Logger.Debug().Msg("ledger account not configured, payments disabled")
		return nil
	}
	var signer xrpl.Signer
	if cfg.RemoteSigning {
		if signer, err = xrpl.NewRPCSigner(client, cfg.Address, cfg.Secret); err != nil {
			return err
		}
		r.Logger.Warn().Str("rpc_url", cfg.RPCURL).Msg("ledger secret is sent to the node for signing")
	} else if signer, err = xrpl.NewWalletSigner(cfg.Secret, cfg.Address); err != nil {
		return err
	}
	r.Sender = xrpl.NewSender(client, signer, cfg.Fee, cfg.LastLedgerOffset, r.Logger)
	return nil
}

// Orchestrator wires the bridge flows. It needs a configured ledger account.
func (r *Runtime) Orchestrator(reporter bridge.Reporter, noWait bool) (*bridge.Orchestrator, error) {
	if r.Sender == nil {
		return nil, errors.NewConfigError("ledger rpc_url and secret are required to send bridge requests")
	}
	deps := bridge.Deps{
		Ledger:     r.Sender,
		Controller: r.Controller,
		Registry:   r.Registry,
		Locator:    r.Locator,
		Scanner:    r.Scanner,
		Confirmer:  r.Confirmer,
		Journal:    r.Journal,
		Reporter:   reporter,
		Metrics:    r.Metrics,
		Explorers:  r.Config.Explorers,
		Settings: bridge.Settings{
			LookbackSeconds: r.Config.Bridge.LookbackSeconds,
			WindowBlocks:    r.Config.Bridge.WindowBlocks,
			PollInterval:    r.Config.Bridge.PollInterval(),
			NoWait:          noWait,
		},
		Logger: r.Logger,
	}
	// A nil *CustomRegistrar must not become a non-nil interface.
	if r.Registrar != nil {
		deps.Registrar = r.Registrar
	}
	return bridge.New(deps)
}

// StartStatusServer starts the status server when a port is configured.
func (r *Runtime) StartStatusServer() error {
	if r.Status == nil {
		return nil
	}
	return r.Status.Start()
}

// Close releases every client. It is safe on a partially built Runtime.
func (r *Runtime) Close() {
	if r.Status != nil {
		if err := r.Status.Stop(); err != nil {
			r.Logger.Warn().Err(err).Msg("failed to stop status server")
		}
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			r.Logger.Warn().Err(err).Msg("failed to close journal")
		}
	}
	if r.Chain != nil {
		r.Chain.Close()
	}
}
