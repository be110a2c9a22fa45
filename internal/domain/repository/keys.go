package repository

// Document keys and list names shared by every DocumentStore backend.
const (
	DocStrategy = "strategy_config"
	DocModel    = "confidence_model"
	DocWallet   = "paper_wallet"

	ListStrategyUpdates = "strategy_updates"
	ListPatterns        = "pattern_memory"
	ListReplay          = "replay_results"
	ListMutations       = "mutations"
	ListClones          = "clone_runs"
)
