package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"junotreasury/core"
	"junotreasury/crypto"
	"junotreasury/gateway/middleware"
	"junotreasury/native/treasury"
	"junotreasury/services/outbox"
)

const maxBodyBytes = 64 << 10

// Treasury is the dispatcher the gateway forwards calls to.
type Treasury interface {
	Execute(ctx context.Context, sender crypto.Address, msg *treasury.ExecuteMsg) (*core.Result, error)
	QueryConfig() (*treasury.ConfigResponse, error)
	QueryBotRole(addr crypto.Address) (*treasury.BotRoleResponse, error)
}

// Relay exposes the outbox to the relayer.
type Relay interface {
	Pending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkDelivered(ctx context.Context, id int64) error
	Counts(ctx context.Context) (map[outbox.Status]int, error)
}

// ExecuteResponse is returned for a committed execute call.
type ExecuteResponse struct {
	Height     uint64               `json:"height"`
	BatchID    string               `json:"batch_id,omitempty"`
	Messages   []treasury.Message   `json:"messages"`
	Attributes []treasury.Attribute `json:"attributes"`
}

type treasuryRoutes struct {
	node   Treasury
	relay  Relay
	logger *slog.Logger
}

func (t *treasuryRoutes) execute(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated", "caller unknown")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "invalid_message", "request body too large")
		return
	}
	msg, err := treasury.DecodeExecuteMsg(body)
	if err != nil {
		t.writeTreasuryError(w, err)
		return
	}
	res, err := t.node.Execute(r.Context(), caller, msg)
	if err != nil {
		t.writeTreasuryError(w, err)
		return
	}
	out := ExecuteResponse{
		Height:     res.Height,
		BatchID:    res.BatchID,
		Messages:   res.Response.Messages,
		Attributes: res.Response.Attributes,
	}
	if out.Messages == nil {
		out.Messages = []treasury.Message{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (t *treasuryRoutes) config(w http.ResponseWriter, _ *http.Request) {
	cfg, err := t.node.QueryConfig()
	if err != nil {
		t.writeTreasuryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (t *treasuryRoutes) botRole(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddressWithPrefix(chi.URLParam(r, "address"), crypto.JunoPrefix)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_message", err.Error())
		return
	}
	role, err := t.node.QueryBotRole(addr)
	if err != nil {
		t.writeTreasuryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (t *treasuryRoutes) pending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "invalid_message", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	records, err := t.relay.Pending(r.Context(), limit)
	if err != nil {
		t.logger.Error("list pending outbox messages", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "storage_failure", "outbox unavailable")
		return
	}
	if records == nil {
		records = []outbox.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (t *treasuryRoutes) delivered(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_message", "id must be an integer")
		return
	}
	if err := t.relay.MarkDelivered(r.Context(), id); err != nil {
		if errors.Is(err, outbox.ErrNotPending) {
			middleware.WriteError(w, http.StatusConflict, "not_pending", err.Error())
			return
		}
		t.logger.Error("mark outbox message delivered", slog.Int64("id", id), slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "storage_failure", "outbox unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (t *treasuryRoutes) counts(w http.ResponseWriter, r *http.Request) {
	counts, err := t.relay.Counts(r.Context())
	if err != nil {
		t.logger.Error("count outbox messages", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "storage_failure", "outbox unavailable")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (t *treasuryRoutes) writeTreasuryError(w http.ResponseWriter, err error) {
	code := treasury.Code(err)
	status := StatusForCode(code)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		t.logger.Error("treasury call failed", slog.String("code", code), slog.Any("error", err))
		message = http.StatusText(status)
	}
	middleware.WriteError(w, status, code, message)
}

// StatusForCode maps a treasury error kind to an HTTP status.
func StatusForCode(code string) int {
	switch code {
	case "ok":
		return http.StatusOK
	case "unauthorized", "unauthorized_role":
		return http.StatusForbidden
	case "already_instantiated":
		return http.StatusConflict
	case "invalid_message":
		return http.StatusBadRequest
	case "canceled", "deadline_exceeded":
		return http.StatusRequestTimeout
	case "expired", "slippage_out_of_range", "insufficient_input_for_gas",
		"insufficient_amount_to_swap", "fee_underflow", "arithmetic_overflow":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
