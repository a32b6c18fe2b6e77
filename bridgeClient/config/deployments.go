package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Deployment names the contract addresses of one bridge deployment.
type Deployment struct {
	MasterAccountController common.Address
	AssetManager            common.Address
}

const (
	DeploymentProduction = "production"
	DeploymentStaging    = "staging"
)

var fxrpAssetManagerCoston2 = common.HexToAddress("0xc1Ca88b937d0b528842F95d5731ffB586f4fbDFA")

// ChainAddresses selects the deployment for a chain id. An empty name means production.
func ChainAddresses(chainID int64, deploymentName string) (Deployment, error) {
	switch {
	case chainID == 114 && (deploymentName == "" || deploymentName == DeploymentProduction):
		return Deployment{
			MasterAccountController: common.HexToAddress("0x434936d47503353f06750Db1A444DBDC5F0AD37c"),
			AssetManager:            fxrpAssetManagerCoston2,
		}, nil
	case chainID == 114 && deploymentName == DeploymentStaging:
		return Deployment{
			MasterAccountController: common.HexToAddress("0x32F662C63c1E24bB59B908249962F00B61C6638f"),
			AssetManager:            fxrpAssetManagerCoston2,
		}, nil
	}
	return Deployment{}, fmt.Errorf("configuration (chain_id=%d, deployment=%q) not supported", chainID, deploymentName)
}

// ResolveDeployment applies explicit address overrides on top of the deployment table.
func (c *Config) ResolveDeployment(chainID int64) (Deployment, error) {
	if c.Chain.MasterAccountController != "" && c.Chain.AssetManager != "" {
		if !common.IsHexAddress(c.Chain.MasterAccountController) || !common.IsHexAddress(c.Chain.AssetManager) {
			return Deployment{}, fmt.Errorf("contract address overrides must be hex addresses")
		}
		return Deployment{
			MasterAccountController: common.HexToAddress(c.Chain.MasterAccountController),
			AssetManager:            common.HexToAddress(c.Chain.AssetManager),
		}, nil
	}

	d, err := ChainAddresses(chainID, c.DeploymentName)
	if err != nil {
		return Deployment{}, err
	}
	if c.Chain.MasterAccountController != "" {
		if !common.IsHexAddress(c.Chain.MasterAccountController) {
			return Deployment{}, fmt.Errorf("master_account_controller must be a hex address")
		}
		d.MasterAccountController = common.HexToAddress(c.Chain.MasterAccountController)
	}
	if c.Chain.AssetManager != "" {
		if !common.IsHexAddress(c.Chain.AssetManager) {
			return Deployment{}, fmt.Errorf("asset_manager must be a hex address")
		}
		d.AssetManager = common.HexToAddress(c.Chain.AssetManager)
	}
	return d, nil
}
