package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lstvault/native/strategy"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codePrecondition   = -32030
	codeInvariant      = -32050
)

// Server exposes the strategy's management surface as JSON-RPC 2.0 over HTTP.
// Two bearer tokens map to the management and emergency governance
// principals; tier enforcement itself lives in the engine.
type Server struct {
	engine          *strategy.Engine
	log             *slog.Logger
	managementToken string
	emergencyToken  string
	managementAddr  common.Address
	emergencyAddr   common.Address
}

// Auth carries the token-to-principal mapping for the server.
type Auth struct {
	ManagementToken string
	EmergencyToken  string
	ManagementAddr  common.Address
	EmergencyAddr   common.Address
}

// NewServer constructs the management RPC server.
func NewServer(engine *strategy.Engine, auth Auth, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:          engine,
		log:             log,
		managementToken: strings.TrimSpace(auth.ManagementToken),
		emergencyToken:  strings.TrimSpace(auth.EmergencyToken),
		managementAddr:  auth.ManagementAddr,
		emergencyAddr:   auth.EmergencyAddr,
	}
}

// Router assembles the HTTP surface: the JSON-RPC endpoint plus health and
// metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// RPCError is the JSON-RPC error payload.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, nil, codeParseError, "unable to read request body")
		return
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != jsonRPCVersion || strings.TrimSpace(req.Method) == "" {
		writeError(w, req.ID, codeInvalidRequest, "invalid JSON-RPC request")
		return
	}

	result, rpcErr := s.dispatch(r, &req)
	if rpcErr != nil {
		s.log.Warn("rpc call failed", "method", req.Method, "code", rpcErr.Code, "reason", rpcErr.Message)
		writeError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	writeJSON(w, rpcResponse{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result})
}

func (s *Server) dispatch(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	switch req.Method {
	case "strategy_depositCapacity":
		return s.depositCapacity(req)
	case "strategy_pending":
		return s.pending()
	case "strategy_setStakeOnDeploy":
		return s.setStakeOnDeploy(r, req)
	case "strategy_setDepositLimit":
		return s.setDepositLimit(r, req)
	case "strategy_setOpenDeposits":
		return s.setOpenDeposits(r, req)
	case "strategy_setAllowed":
		return s.setAllowed(r, req)
	case "strategy_manualStake":
		return s.manualStake(r, req)
	case "strategy_manualSwapToAsset":
		return s.manualSwapToAsset(r, req)
	case "strategy_initiateWithdrawal":
		return s.initiateWithdrawal(r, req)
	case "strategy_claimWithdrawal":
		return s.claimWithdrawal(r, req)
	case "strategy_emergencyExit":
		return s.emergencyExit(r, req)
	case "strategy_report":
		return s.report()
	case "strategy_runCycle":
		return s.runCycle(r)
	default:
		return nil, &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method %s", req.Method)}
	}
}

// authenticate resolves the bearer token to the configured governance
// principal. Tier checks happen inside the engine against that principal.
func (s *Server) authenticate(r *http.Request) (common.Address, *RPCError) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return common.Address{}, &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return common.Address{}, &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return common.Address{}, &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if s.emergencyToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.emergencyToken)) == 1 {
		return s.emergencyAddr, nil
	}
	if s.managementToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.managementToken)) == 1 {
		return s.managementAddr, nil
	}
	return common.Address{}, &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
}

type amountParam struct {
	Amount string `json:"amount"`
	MinOut string `json:"minOut"`
}

type boolParam struct {
	Enabled bool `json:"enabled"`
}

type limitParam struct {
	Limit string `json:"limit"`
}

type allowedParam struct {
	Address string `json:"address"`
	Allowed bool   `json:"allowed"`
}

type addressParam struct {
	Address string `json:"address"`
}

// ticketResult is the wire form of a withdrawal ticket; amounts travel as
// decimal strings so precision survives JSON transport.
type ticketResult struct {
	ID         string   `json:"id"`
	Requested  string   `json:"requested"`
	RequestIDs []string `json:"requestIds"`
	CreatedAt  int64    `json:"createdAt"`
}

type claimParam struct {
	Ticket ticketResult `json:"ticket"`
}

func (s *Server) depositCapacity(req *rpcRequest) (interface{}, *RPCError) {
	var params addressParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(params.Address) {
		return nil, &RPCError{Code: codeInvalidParams, Message: "address must be a hex address"}
	}
	capacity, err := s.engine.AvailableDepositCapacity(common.HexToAddress(params.Address))
	if err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]string{"capacity": capacity.String()}, nil
}

func (s *Server) pending() (interface{}, *RPCError) {
	return map[string]string{"pending": s.engine.PendingRedemptions().String()}, nil
}

func (s *Server) setStakeOnDeploy(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	caller, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var params boolParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	if err := s.engine.SetStakeOnDeploy(caller, params.Enabled); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) setDepositLimit(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	caller, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var params limitParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	limit, rpcErr := parseAmount(params.Limit, "limit")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetDepositLimit(caller, limit); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) setOpenDeposits(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	caller, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var params boolParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	if err := s.engine.SetOpenDeposits(caller, params.Enabled); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) setAllowed(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	caller, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var params allowedParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(params.Address) {
		return nil, &RPCError{Code: codeInvalidParams, Message: "address must be a hex address"}
	}
	if err := s.engine.SetAllowed(caller, common.HexToAddress(params.Address), params.Allowed); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) manualStake(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	caller, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var params amountParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	staked, err := s.engine.ManualStake(caller, amount)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]string{"staked": staked.String()}, nil
}

func (s *Server) manualSwapToAsset(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	caller, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var params amountParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	minOut, rpcErr := parseAmount(params.MinOut, "minOut")
	if rpcErr != nil {
		return nil, rpcErr
	}
	out, err := s.engine.ManualSwapToAsset(caller, amount, minOut)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]string{"out": out.String()}, nil
}

func (s *Server) initiateWithdrawal(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	caller, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var params amountParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	ticket, err := s.engine.InitiateWithdrawal(caller, amount)
	if err != nil {
		return nil, mapEngineError(err)
	}
	ids := make([]string, len(ticket.RequestIDs))
	for i, id := range ticket.RequestIDs {
		ids[i] = id.String()
	}
	return ticketResult{
		ID:         ticket.ID,
		Requested:  ticket.Requested.String(),
		RequestIDs: ids,
		CreatedAt:  ticket.CreatedAt,
	}, nil
}

func (s *Server) claimWithdrawal(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	caller, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var params claimParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	ticket := &strategy.WithdrawalTicket{
		ID:        params.Ticket.ID,
		CreatedAt: params.Ticket.CreatedAt,
	}
	var rpcParseErr *RPCError
	if ticket.Requested, rpcParseErr = parseAmount(params.Ticket.Requested, "ticket.requested"); rpcParseErr != nil {
		return nil, rpcParseErr
	}
	ticket.RequestIDs = make([]*big.Int, len(params.Ticket.RequestIDs))
	for i, raw := range params.Ticket.RequestIDs {
		id, rpcErr := parseAmount(raw, "ticket.requestIds")
		if rpcErr != nil {
			return nil, rpcErr
		}
		ticket.RequestIDs[i] = id
	}
	realized, err := s.engine.ClaimWithdrawal(caller, ticket)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]string{
		"realized": realized.String(),
		"pending":  s.engine.PendingRedemptions().String(),
	}, nil
}

func (s *Server) emergencyExit(r *http.Request, req *rpcRequest) (interface{}, *RPCError) {
	caller, rpcErr := s.authenticate(r)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var params amountParam
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	realized, err := s.engine.EmergencyExit(caller, amount)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]string{"realized": realized.String()}, nil
}

// report is a read-only valuation: it recomputes the total managed value
// without harvesting or deploying anything.
func (s *Server) report() (interface{}, *RPCError) {
	total, err := s.engine.ReportValue()
	if err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]string{"totalValue": total.String()}, nil
}

// runCycle executes the full valuation cycle, which deploys idle capital
// through external calls and therefore requires credentials.
func (s *Server) runCycle(r *http.Request) (interface{}, *RPCError) {
	if _, rpcErr := s.authenticate(r); rpcErr != nil {
		return nil, rpcErr
	}
	total, err := s.engine.RunCycle()
	if err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]string{"totalValue": total.String()}, nil
}

func decodeParams(params []json.RawMessage, out interface{}) *RPCError {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid params"}
	}
	return nil
}

func parseAmount(raw, field string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("%s required", field)}
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("%s must be a non-negative decimal string", field)}
	}
	return amount, nil
}

func mapEngineError(err error) *RPCError {
	switch {
	case errors.Is(err, strategy.ErrUnauthorized):
		return &RPCError{Code: codeUnauthorized, Message: err.Error()}
	case errors.Is(err, strategy.ErrPendingUnderflow):
		return &RPCError{Code: codeInvariant, Message: err.Error()}
	case errors.Is(err, strategy.ErrAmountZero),
		errors.Is(err, strategy.ErrRedemptionsPending),
		errors.Is(err, strategy.ErrInvalidTicket),
		errors.Is(err, strategy.ErrInvalidLimit):
		return &RPCError{Code: codePrecondition, Message: err.Error()}
	default:
		return &RPCError{Code: codeServerError, Message: err.Error()}
	}
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	writeJSON(w, rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &RPCError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, payload rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
