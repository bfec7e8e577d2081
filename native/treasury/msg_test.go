package treasury

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDecodeBuyTokenMsg(t *testing.T) {
	raw := `{"buy_token":{
		"juno_amount":"1000000",
		"token":"",
		"token_amount_per_native":"2",
		"slippage_bips":"100",
		"to":"` + recvAddr.String() + `",
		"router":"` + poolAddr.String() + `",
		"platform_fee_bips":"50",
		"gas_estimate":"10000",
		"deadline":"2000"
	}}`
	msg, err := DecodeExecuteMsg([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Name() != "buy_token" {
		t.Fatalf("unexpected variant %q", msg.Name())
	}
	order := msg.BuyToken.Order()
	if order.Deadline != 2000 || order.JunoAmount.String() != "1000000" || !order.Pool.Equal(poolAddr) {
		t.Fatalf("unexpected order %+v", order)
	}
	if !order.Token.IsZero() {
		t.Fatalf("expected empty token")
	}
}

func TestDecodeExecuteMsgRejects(t *testing.T) {
	cases := map[string]string{
		"empty object":    `{}`,
		"two variants":    `{"set_admin":{"new_admin":"` + ownerAddr.String() + `"},"set_bot_role":{"new_bot":"` + botAddr.String() + `","enabled":true}}`,
		"unknown variant": `{"mint":{}}`,
		"unknown field":   `{"set_admin":{"new_admin":"` + ownerAddr.String() + `","extra":1}}`,
		"missing address": `{"withdraw_fee":{"amount":"1"}}`,
		"numeric amount":  `{"withdraw_fee":{"to":"` + ownerAddr.String() + `","amount":1}}`,
		"negative amount": `{"withdraw_fee":{"to":"` + ownerAddr.String() + `","amount":"-1"}}`,
		"trailing data":   `{"set_admin":{"new_admin":"` + ownerAddr.String() + `"}} {}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeExecuteMsg([]byte(raw)); !errors.Is(err, ErrInvalidMessage) {
				t.Fatalf("expected ErrInvalidMessage, got %v", err)
			}
		})
	}
}

func TestDecodeRejectsAmountAbove128Bits(t *testing.T) {
	raw := `{"withdraw_fee":{"to":"` + ownerAddr.String() + `","amount":"340282366920938463463374607431768211456"}}`
	if _, err := DecodeExecuteMsg([]byte(raw)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
}

func TestSwapInstructionWasmExecute(t *testing.T) {
	swap := &SwapInstruction{
		Pool:          poolAddr,
		Offer:         Coin{Denom: DefaultDenom, Amount: NewUint128(985000)},
		MinimumOutput: NewUint128(1960200),
		Recipient:     recvAddr,
	}
	exec, err := swap.WasmExecute()
	if err != nil {
		t.Fatalf("wasm execute: %v", err)
	}
	if !exec.ContractAddr.Equal(poolAddr) || len(exec.Funds) != 1 || exec.Funds[0].Amount.String() != "985000" {
		t.Fatalf("unexpected wasm execute %+v", exec)
	}
	var body map[string]map[string]string
	if err := json.Unmarshal(exec.Msg, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	call := body["swap_and_send_to"]
	if call["input_token"] != "Token1" || call["min_token"] != "1960200" || call["recipient"] != recvAddr.String() {
		t.Fatalf("unexpected call %v", call)
	}
}

func TestCodeMapping(t *testing.T) {
	if Code(nil) != "ok" {
		t.Fatalf("nil must map to ok")
	}
	wrapped := storageError(ErrConfigNotFound)
	if Code(wrapped) != "storage_failure" {
		t.Fatalf("unexpected code %q", Code(wrapped))
	}
	if Code(errors.New("boom")) != "internal" {
		t.Fatalf("unknown errors must map to internal")
	}
	if got := Code(fmt.Errorf("apply: %w", context.Canceled)); got != "canceled" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := Code(context.DeadlineExceeded); got != "deadline_exceeded" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := Code(ValidateSlippage(NewUint128(10_001))); !strings.EqualFold(got, "slippage_out_of_range") {
		t.Fatalf("unexpected code %q", got)
	}
}
