package treasury

import "junotreasury/crypto"

// QueryConfig returns the owner and pending fee together with the block time.
func (e *Engine) QueryConfig(env Env) (*ConfigResponse, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return &ConfigResponse{
		Owner:              cfg.Owner,
		PendingPlatformFee: cfg.PendingPlatformFee,
		Time:               env.BlockTime,
	}, nil
}

// QueryBotRole reports whether addr is unregistered, disabled or enabled.
func (e *Engine) QueryBotRole(addr crypto.Address) (*BotRoleResponse, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	enabled, found, err := e.state.TreasuryBotRoleGet(addr)
	if err != nil {
		return nil, storageError(err)
	}
	return &BotRoleResponse{Address: addr, Status: BotRoleStatus(enabled, found)}, nil
}
