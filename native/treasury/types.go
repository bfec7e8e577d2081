package treasury

import (
	"junotreasury/crypto"
)

// DefaultDenom is the native denomination held by the treasury.
const DefaultDenom = "ujuno"

// Config is the singleton treasury configuration.
type Config struct {
	Owner              crypto.Address
	PendingPlatformFee Uint128
}

// Clone returns a copy safe to mutate.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// RoleStatus distinguishes an unregistered address from a disabled bot.
type RoleStatus string

const (
	RoleNone     RoleStatus = "none"
	RoleDisabled RoleStatus = "disabled"
	RoleEnabled  RoleStatus = "enabled"
)

// BuyOrder is a bot request to swap native funds through a pool.
type BuyOrder struct {
	JunoAmount           Uint128
	TokenAmountPerNative Uint128
	SlippageBips         Uint128
	PlatformFeeBips      Uint128
	GasEstimate          Uint128
	Recipient            crypto.Address
	Pool                 crypto.Address
	// Token is informational and only carried into the swap event.
	Token crypto.Address
	// Deadline is a unix timestamp in nanoseconds.
	Deadline uint64
}

// Env carries the block context of a call.
type Env struct {
	BlockHeight uint64
	// BlockTime is a unix timestamp in nanoseconds.
	BlockTime uint64
}

// Attribute is a key/value pair attached to a response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the outcome of a successful execute call.
type Response struct {
	Messages   []Message   `json:"messages"`
	Attributes []Attribute `json:"attributes"`
}

func (r *Response) addAttribute(key, value string) {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
}

// Attribute looks up the first attribute with the given key.
func (r *Response) Attribute(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string  `json:"denom"`
	Amount Uint128 `json:"amount"`
}

// ConfigResponse is the read-only view of the configuration.
type ConfigResponse struct {
	Owner              crypto.Address `json:"owner"`
	PendingPlatformFee Uint128        `json:"pending_platform_fee"`
	Time               uint64         `json:"time,string"`
}

// BotRoleResponse is the read-only view of one bot role entry.
type BotRoleResponse struct {
	Address crypto.Address `json:"address"`
	Status  RoleStatus     `json:"status"`
}
