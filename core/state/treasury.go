package state

import (
	"fmt"
	"math/big"

	"junotreasury/crypto"
	"junotreasury/native/treasury"
)

type storedTreasuryConfig struct {
	OwnerPrefix string
	Owner       []byte
	PendingFee  *big.Int
}

type storedBotRole struct {
	Enabled bool
}

// TreasuryConfigGet loads the singleton configuration.
func (m *Manager) TreasuryConfigGet() (*treasury.Config, bool, error) {
	var stored storedTreasuryConfig
	ok, err := m.KVGet(treasuryConfigKeyBytes, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	owner, err := crypto.NewAddress(crypto.AddressPrefix(stored.OwnerPrefix), stored.Owner)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode treasury owner: %w", err)
	}
	fee, err := treasury.Uint128FromBig(stored.PendingFee)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode pending fee: %w", err)
	}
	return &treasury.Config{Owner: owner, PendingPlatformFee: fee}, true, nil
}

// TreasuryConfigPut replaces the singleton configuration.
func (m *Manager) TreasuryConfigPut(cfg *treasury.Config) error {
	if cfg == nil || cfg.Owner.IsZero() {
		return fmt.Errorf("state: treasury config requires an owner")
	}
	return m.KVPut(treasuryConfigKeyBytes, storedTreasuryConfig{
		OwnerPrefix: string(cfg.Owner.Prefix()),
		Owner:       cfg.Owner.Bytes(),
		PendingFee:  cfg.PendingPlatformFee.Big(),
	})
}

// TreasuryBotRoleGet reports the role flag of addr and whether an entry
// exists at all.
func (m *Manager) TreasuryBotRoleGet(addr crypto.Address) (bool, bool, error) {
	var stored storedBotRole
	ok, err := m.KVGet(treasuryBotKey([]byte(addr.String())), &stored)
	if err != nil || !ok {
		return false, ok, err
	}
	return stored.Enabled, true, nil
}

// TreasuryBotRolePut creates or overwrites the role entry of addr.
func (m *Manager) TreasuryBotRolePut(addr crypto.Address, enabled bool) error {
	if addr.IsZero() {
		return fmt.Errorf("state: bot address required")
	}
	return m.KVPut(treasuryBotKey([]byte(addr.String())), storedBotRole{Enabled: enabled})
}

// TreasuryHeight returns the number of committed calls.
func (m *Manager) TreasuryHeight() (uint64, error) {
	var height uint64
	if _, err := m.KVGet(treasuryHeightKeyBytes, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// SetTreasuryHeight records the number of committed calls.
func (m *Manager) SetTreasuryHeight(height uint64) error {
	return m.KVPut(treasuryHeightKeyBytes, height)
}

// TreasuryBatchGet returns the outbox batch committed at height, if any.
func (m *Manager) TreasuryBatchGet(height uint64) (string, bool, error) {
	var batchID string
	ok, err := m.KVGet(treasuryBatchKey(height), &batchID)
	if err != nil || !ok {
		return "", ok, err
	}
	return batchID, true, nil
}

// TreasuryBatchPut records the outbox batch produced by the call at height.
func (m *Manager) TreasuryBatchPut(height uint64, batchID string) error {
	if batchID == "" {
		return fmt.Errorf("state: batch id required")
	}
	return m.KVPut(treasuryBatchKey(height), batchID)
}
