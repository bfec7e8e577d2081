package treasury

import "junotreasury/crypto"

// IsOwner reports whether caller is the configured owner.
func IsOwner(cfg *Config, caller crypto.Address) bool {
	if cfg == nil || cfg.Owner.IsZero() {
		return false
	}
	return cfg.Owner.Equal(caller)
}

// BotRoleStatus classifies a bot role lookup.
func BotRoleStatus(enabled, found bool) RoleStatus {
	switch {
	case !found:
		return RoleNone
	case enabled:
		return RoleEnabled
	default:
		return RoleDisabled
	}
}

// IsActiveBot reports whether the role table holds an enabled entry.
func IsActiveBot(enabled, found bool) bool {
	return BotRoleStatus(enabled, found) == RoleEnabled
}

func (e *Engine) requireOwner(cfg *Config, caller crypto.Address) error {
	if !IsOwner(cfg, caller) {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireActiveBot(caller crypto.Address) error {
	enabled, found, err := e.state.TreasuryBotRoleGet(caller)
	if err != nil {
		return storageError(err)
	}
	switch BotRoleStatus(enabled, found) {
	case RoleEnabled:
		return nil
	case RoleDisabled:
		return ErrUnauthorizedRole
	default:
		return ErrUnauthorized
	}
}
