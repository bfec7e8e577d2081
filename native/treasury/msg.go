package treasury

import (
	"bytes"
	"encoding/json"
	"fmt"

	"junotreasury/crypto"
)

// ExecuteMsg is the JSON union accepted by Execute. Exactly one variant must
// be present.
type ExecuteMsg struct {
	SetAdmin    *SetAdminMsg    `json:"set_admin,omitempty"`
	SetBotRole  *SetBotRoleMsg  `json:"set_bot_role,omitempty"`
	WithdrawFee *WithdrawFeeMsg `json:"withdraw_fee,omitempty"`
	BuyToken    *BuyTokenMsg    `json:"buy_token,omitempty"`
}

type SetAdminMsg struct {
	NewAdmin crypto.Address `json:"new_admin"`
}

type SetBotRoleMsg struct {
	NewBot  crypto.Address `json:"new_bot"`
	Enabled bool           `json:"enabled"`
}

type WithdrawFeeMsg struct {
	To     crypto.Address `json:"to"`
	Amount Uint128        `json:"amount"`
}

// BuyTokenMsg is the wire form of a BuyOrder. To is the recipient and Router
// the pool.
type BuyTokenMsg struct {
	JunoAmount           Uint128        `json:"juno_amount"`
	Token                crypto.Address `json:"token"`
	TokenAmountPerNative Uint128        `json:"token_amount_per_native"`
	SlippageBips         Uint128        `json:"slippage_bips"`
	To                   crypto.Address `json:"to"`
	Router               crypto.Address `json:"router"`
	PlatformFeeBips      Uint128        `json:"platform_fee_bips"`
	GasEstimate          Uint128        `json:"gas_estimate"`
	Deadline             uint64         `json:"deadline,string"`
}

// Order converts the wire message into a BuyOrder.
func (m *BuyTokenMsg) Order() BuyOrder {
	return BuyOrder{
		JunoAmount:           m.JunoAmount,
		TokenAmountPerNative: m.TokenAmountPerNative,
		SlippageBips:         m.SlippageBips,
		PlatformFeeBips:      m.PlatformFeeBips,
		GasEstimate:          m.GasEstimate,
		Recipient:            m.To,
		Pool:                 m.Router,
		Token:                m.Token,
		Deadline:             m.Deadline,
	}
}

// Name returns the snake_case name of the populated variant.
func (m *ExecuteMsg) Name() string {
	switch {
	case m == nil:
		return ""
	case m.SetAdmin != nil:
		return "set_admin"
	case m.SetBotRole != nil:
		return "set_bot_role"
	case m.WithdrawFee != nil:
		return "withdraw_fee"
	case m.BuyToken != nil:
		return "buy_token"
	default:
		return ""
	}
}

// Validate checks that exactly one variant is set and that its addresses are
// present.
func (m *ExecuteMsg) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}
	count := 0
	for _, set := range []bool{m.SetAdmin != nil, m.SetBotRole != nil, m.WithdrawFee != nil, m.BuyToken != nil} {
		if set {
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("%w: expected exactly one variant, got %d", ErrInvalidMessage, count)
	}
	switch {
	case m.SetAdmin != nil:
		return requireAddress("new_admin", m.SetAdmin.NewAdmin)
	case m.SetBotRole != nil:
		return requireAddress("new_bot", m.SetBotRole.NewBot)
	case m.WithdrawFee != nil:
		return requireAddress("to", m.WithdrawFee.To)
	default:
		if err := requireAddress("to", m.BuyToken.To); err != nil {
			return err
		}
		return requireAddress("router", m.BuyToken.Router)
	}
}

func requireAddress(field string, addr crypto.Address) error {
	if addr.IsZero() {
		return fmt.Errorf("%w: %s required", ErrInvalidMessage, field)
	}
	return nil
}

// DecodeExecuteMsg strictly decodes and validates an execute message.
func DecodeExecuteMsg(data []byte) (*ExecuteMsg, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var msg ExecuteMsg
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidMessage)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
