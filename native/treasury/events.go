package treasury

import (
	"strconv"

	"junotreasury/core/events"
	"junotreasury/core/types"
	"junotreasury/crypto"
)

const (
	// EventTypeInstantiated is emitted once when the configuration is created.
	EventTypeInstantiated = "treasury.instantiated"
	// EventTypeAdminUpdated is emitted when ownership changes.
	EventTypeAdminUpdated = "treasury.admin.updated"
	// EventTypeBotRoleSet is emitted when a bot role entry is written.
	EventTypeBotRoleSet = "treasury.bot.role_set"
	// EventTypeFeeWithdrawn is emitted when accrued fees are paid out.
	EventTypeFeeWithdrawn = "treasury.fee.withdrawn"
	// EventTypeSwapRequested is emitted when a bot swap is accepted.
	EventTypeSwapRequested = "treasury.swap.requested"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func InstantiatedEvent(owner crypto.Address) *types.Event {
	return &types.Event{
		Type:       EventTypeInstantiated,
		Attributes: map[string]string{"owner": owner.String()},
	}
}

func AdminUpdatedEvent(previous, next crypto.Address) *types.Event {
	return &types.Event{
		Type: EventTypeAdminUpdated,
		Attributes: map[string]string{
			"previous": previous.String(),
			"newAdmin": next.String(),
		},
	}
}

func BotRoleSetEvent(bot crypto.Address, enabled bool) *types.Event {
	return &types.Event{
		Type: EventTypeBotRoleSet,
		Attributes: map[string]string{
			"bot":     bot.String(),
			"enabled": strconv.FormatBool(enabled),
		},
	}
}

func FeeWithdrawnEvent(to crypto.Address, amount, remaining Uint128) *types.Event {
	return &types.Event{
		Type: EventTypeFeeWithdrawn,
		Attributes: map[string]string{
			"to":        to.String(),
			"amount":    amount.String(),
			"remaining": remaining.String(),
		},
	}
}

// SwapRequestedEvent captures an accepted buy order and the amounts derived
// from it.
func SwapRequestedEvent(bot crypto.Address, order BuyOrder, quote SwapQuote) *types.Event {
	return &types.Event{
		Type: EventTypeSwapRequested,
		Attributes: map[string]string{
			"bot":                bot.String(),
			"pool":               order.Pool.String(),
			"recipient":          order.Recipient.String(),
			"token":              order.Token.String(),
			"offer":              quote.Spendable.String(),
			"platformFee":        quote.PlatformFee.String(),
			"pendingPlatformFee": quote.PendingPlatformFee.String(),
			"minOutput":          quote.MinimumOutput.String(),
		},
	}
}
