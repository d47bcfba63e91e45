package solbc

import (
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// SendFailure is what a rejected submission reveals beyond its message.
type SendFailure struct {
	Code    int
	Message string
	// SimulationFailed is set when preflight simulation rejected the transaction.
	SimulationFailed bool
	Logs             []string
	InstructionError interface{}
	// InsufficientFunds is set when the token program reported a short balance.
	InsufficientFunds bool
}

// AnalyzeSendError extracts the preflight details of a failed submission.
// Errors that are not JSON-RPC errors yield only a Message.
func AnalyzeSendError(err error) SendFailure {
	if err == nil {
		return SendFailure{}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return SendFailure{Message: err.Error()}
	}

	f := SendFailure{Code: rpcErr.Code, Message: rpcErr.Message}
	if !strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return f
	}
	f.SimulationFailed = true

	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return f
	}
	if logs, ok := data["logs"].([]interface{}); ok {
		for _, entry := range logs {
			line, ok := entry.(string)
			if !ok {
				continue
			}
			f.Logs = append(f.Logs, line)
			if strings.Contains(strings.ToLower(line), "insufficient funds") {
				f.InsufficientFunds = true
			}
		}
	}
	if ixErr, ok := data["err"]; ok {
		f.InstructionError = ixErr
	}
	return f
}

// Fields renders the failure for structured logging.
func (f SendFailure) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("rpc_code", f.Code),
		zap.String("rpc_message", f.Message),
	}
	if f.SimulationFailed {
		fields = append(fields,
			zap.Bool("simulation_failed", true),
			zap.Strings("program_logs", f.Logs),
			zap.Any("instruction_error", f.InstructionError))
	}
	if f.InsufficientFunds {
		fields = append(fields, zap.Bool("insufficient_funds", true))
	}
	return fields
}
