package treasury

import (
	"encoding/json"

	"junotreasury/crypto"
)

// MessageKind names an outbound message type.
type MessageKind string

const (
	KindBankSend MessageKind = "bank_send"
	KindSwap     MessageKind = "swap"
)

// BankSend transfers native funds out of the treasury.
type BankSend struct {
	ToAddress crypto.Address `json:"to_address"`
	Amount    []Coin         `json:"amount"`
}

// SwapInstruction asks a pool to swap the offer and send the output to the
// recipient.
type SwapInstruction struct {
	Pool          crypto.Address `json:"pool"`
	Offer         Coin           `json:"offer"`
	MinimumOutput Uint128        `json:"min_output"`
	Recipient     crypto.Address `json:"recipient"`
}

// Message is one outbound instruction. Exactly one field is set.
type Message struct {
	Bank *BankSend        `json:"bank,omitempty"`
	Swap *SwapInstruction `json:"swap,omitempty"`
}

// Kind reports which variant is set.
func (m Message) Kind() MessageKind {
	if m.Swap != nil {
		return KindSwap
	}
	return KindBankSend
}

// WasmExecute is the contract call a relayer submits for a message that
// targets a contract.
type WasmExecute struct {
	ContractAddr crypto.Address  `json:"contract_addr"`
	Msg          json.RawMessage `json:"msg"`
	Funds        []Coin          `json:"funds"`
}

type swapAndSendTo struct {
	InputToken  string         `json:"input_token"`
	InputAmount Uint128        `json:"input_amount"`
	Recipient   crypto.Address `json:"recipient"`
	MinToken    Uint128        `json:"min_token"`
}

// WasmExecute renders the instruction as a swap_and_send_to call on the pool
// with the offer attached as funds.
func (s *SwapInstruction) WasmExecute() (*WasmExecute, error) {
	body, err := json.Marshal(map[string]swapAndSendTo{
		"swap_and_send_to": {
			InputToken:  "Token1",
			InputAmount: s.Offer.Amount,
			Recipient:   s.Recipient,
			MinToken:    s.MinimumOutput,
		},
	})
	if err != nil {
		return nil, err
	}
	return &WasmExecute{
		ContractAddr: s.Pool,
		Msg:          body,
		Funds:        []Coin{s.Offer},
	}, nil
}
