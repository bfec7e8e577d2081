package treasury

import (
	"fmt"
	"strconv"
	"strings"

	"junotreasury/core/events"
	"junotreasury/core/types"
	"junotreasury/crypto"
)

type engineState interface {
	TreasuryConfigGet() (*Config, bool, error)
	TreasuryConfigPut(cfg *Config) error
	TreasuryBotRoleGet(addr crypto.Address) (enabled bool, found bool, err error)
	TreasuryBotRolePut(addr crypto.Address, enabled bool) error
}

// Engine enforces treasury authorization and guardrails on top of a state
// backend. Every operation performs its checks before its single write, so a
// failed call leaves state untouched and produces no messages.
type Engine struct {
	state   engineState
	emitter events.Emitter
	denom   string
}

// NewEngine constructs a treasury engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		denom:   DefaultDenom,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetDenom overrides the native denomination used for payouts and swaps.
func (e *Engine) SetDenom(denom string) {
	denom = strings.TrimSpace(denom)
	if denom == "" {
		denom = DefaultDenom
	}
	e.denom = denom
}

// Denom returns the native denomination.
func (e *Engine) Denom() string { return e.denom }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

func (e *Engine) loadConfig() (*Config, error) {
	cfg, ok, err := e.state.TreasuryConfigGet()
	if err != nil {
		return nil, storageError(err)
	}
	if !ok || cfg == nil {
		return nil, storageError(ErrConfigNotFound)
	}
	return cfg.Clone(), nil
}

func (e *Engine) putConfig(cfg *Config) error {
	if err := e.state.TreasuryConfigPut(cfg); err != nil {
		return storageError(err)
	}
	return nil
}

// Instantiate creates the configuration with sender as owner and no pending
// fee.
func (e *Engine) Instantiate(env Env, sender crypto.Address) (*Response, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if sender.IsZero() {
		return nil, fmt.Errorf("%w: sender required", ErrInvalidMessage)
	}
	_, ok, err := e.state.TreasuryConfigGet()
	if err != nil {
		return nil, storageError(err)
	}
	if ok {
		return nil, ErrAlreadyInstantiated
	}
	if err := e.putConfig(&Config{Owner: sender}); err != nil {
		return nil, err
	}
	resp := &Response{}
	resp.addAttribute("method", "instantiate")
	resp.addAttribute("owner", sender.String())
	e.emit(InstantiatedEvent(sender))
	return resp, nil
}

// Execute dispatches a validated execute message.
func (e *Engine) Execute(env Env, sender crypto.Address, msg *ExecuteMsg) (*Response, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case msg.SetAdmin != nil:
		return e.SetAdmin(sender, msg.SetAdmin.NewAdmin)
	case msg.SetBotRole != nil:
		return e.SetBotRole(sender, msg.SetBotRole.NewBot, msg.SetBotRole.Enabled)
	case msg.WithdrawFee != nil:
		return e.WithdrawFee(sender, msg.WithdrawFee.To, msg.WithdrawFee.Amount)
	default:
		return e.BuyToken(env, sender, msg.BuyToken.Order())
	}
}

// SetAdmin transfers ownership to newAdmin.
func (e *Engine) SetAdmin(caller, newAdmin crypto.Address) (*Response, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if newAdmin.IsZero() {
		return nil, fmt.Errorf("%w: new_admin required", ErrInvalidMessage)
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(cfg, caller); err != nil {
		return nil, err
	}
	previous := cfg.Owner
	cfg.Owner = newAdmin
	if err := e.putConfig(cfg); err != nil {
		return nil, err
	}
	resp := &Response{}
	resp.addAttribute("method", "set_admin")
	resp.addAttribute("new_admin", newAdmin.String())
	e.emit(AdminUpdatedEvent(previous, newAdmin))
	return resp, nil
}

// SetBotRole creates or overwrites the role entry of bot.
func (e *Engine) SetBotRole(caller, bot crypto.Address, enabled bool) (*Response, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if bot.IsZero() {
		return nil, fmt.Errorf("%w: new_bot required", ErrInvalidMessage)
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(cfg, caller); err != nil {
		return nil, err
	}
	if err := e.state.TreasuryBotRolePut(bot, enabled); err != nil {
		return nil, storageError(err)
	}
	resp := &Response{}
	resp.addAttribute("method", "set_bot_role")
	resp.addAttribute("new_bot", bot.String())
	resp.addAttribute("enabled", strconv.FormatBool(enabled))
	e.emit(BotRoleSetEvent(bot, enabled))
	return resp, nil
}

// WithdrawFee pays amount of the accrued platform fee to to.
func (e *Engine) WithdrawFee(caller, to crypto.Address, amount Uint128) (*Response, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if to.IsZero() {
		return nil, fmt.Errorf("%w: to required", ErrInvalidMessage)
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(cfg, caller); err != nil {
		return nil, err
	}
	remaining, err := cfg.PendingPlatformFee.CheckedSub(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: withdraw %s of pending %s", ErrFeeUnderflow, amount, cfg.PendingPlatformFee)
	}
	cfg.PendingPlatformFee = remaining
	if err := e.putConfig(cfg); err != nil {
		return nil, err
	}
	resp := &Response{
		Messages: []Message{{Bank: &BankSend{
			ToAddress: to,
			Amount:    []Coin{{Denom: e.denom, Amount: amount}},
		}}},
	}
	resp.addAttribute("method", "withdraw_fee")
	resp.addAttribute("to", to.String())
	resp.addAttribute("amount", amount.String())
	e.emit(FeeWithdrawnEvent(to, amount, remaining))
	return resp, nil
}

// BuyToken validates a bot order, accrues the platform fee and emits a single
// swap instruction for the remaining input.
func (e *Engine) BuyToken(env Env, caller crypto.Address, order BuyOrder) (*Response, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireActiveBot(caller); err != nil {
		return nil, err
	}
	if err := ValidateDeadline(env.BlockTime, order.Deadline); err != nil {
		return nil, err
	}
	if err := ValidateSlippage(order.SlippageBips); err != nil {
		return nil, err
	}
	if err := ValidateGasBudget(order.JunoAmount, order.GasEstimate); err != nil {
		return nil, err
	}
	if order.Recipient.IsZero() || order.Pool.IsZero() {
		return nil, fmt.Errorf("%w: recipient and pool required", ErrInvalidMessage)
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	quote, err := QuoteSwap(cfg.PendingPlatformFee, order)
	if err != nil {
		return nil, err
	}
	cfg.PendingPlatformFee = quote.PendingPlatformFee
	if err := e.putConfig(cfg); err != nil {
		return nil, err
	}
	resp := &Response{
		Messages: []Message{{Swap: &SwapInstruction{
			Pool:          order.Pool,
			Offer:         Coin{Denom: e.denom, Amount: quote.Spendable},
			MinimumOutput: quote.MinimumOutput,
			Recipient:     order.Recipient,
		}}},
	}
	resp.addAttribute("method", "buy_token")
	resp.addAttribute("platform_fee", quote.PlatformFee.String())
	resp.addAttribute("min_output", quote.MinimumOutput.String())
	e.emit(SwapRequestedEvent(caller, order, quote))
	return resp, nil
}
