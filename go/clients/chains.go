package clients

// Chain names a network the hot potato contract is deployed on
type Chain string

const (
	// ChainPop is the Pop Network testnet
	ChainPop Chain = "pop"

	// ChainPassetHub is the Passet Hub testnet
	ChainPassetHub Chain = "passethub"

	// ChainSimulated is the in-process simulator
	ChainSimulated Chain = "simulated"
)

// ChainConfig holds the defaults for one chain
type ChainConfig struct {
	Chain       Chain  `json:"chain"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RPCURL      string `json:"rpc_url"`
	Active      bool   `json:"active"`
}

// GetChains returns every known chain
func GetChains() map[Chain]ChainConfig {
	return map[Chain]ChainConfig{
		ChainPop: {
			Chain:       ChainPop,
			Name:        "Pop Network",
			Description: "Pop Network testnet deployment",
			RPCURL:      "wss://rpc1.paseo.popnetwork.xyz",
			Active:      true,
		},
		ChainPassetHub: {
			Chain:       ChainPassetHub,
			Name:        "Passet Hub",
			Description: "Passet Hub testnet deployment",
			RPCURL:      "wss://testnet-passet-hub.polkadot.io",
			Active:      true,
		},
		ChainSimulated: {
			Chain:       ChainSimulated,
			Name:        "Simulator",
			Description: "In-process contract simulator",
			Active:      true,
		},
	}
}

// ValidateChain checks if the chain is known
func ValidateChain(chain Chain) bool {
	_, exists := GetChains()[chain]
	return exists
}

// GetActiveChains returns only active chains
func GetActiveChains() map[Chain]ChainConfig {
	all := GetChains()
	active := make(map[Chain]ChainConfig)

	for chain, config := range all {
		if config.Active {
			active[chain] = config
		}
	}

	return active
}
