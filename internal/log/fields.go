package log

import (
	"dailyledger/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldClientIP        = "client_ip"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldUserAgent       = "user_agent"
	FieldError           = "error"
	FieldOperation       = "operation"
	FieldTransactionID   = "transaction_id"
	FieldTransactionType = "transaction_type"
	FieldAmount          = "amount"
	FieldDay             = "day"
	FieldPreviousDay     = "previous_day"
	FieldUserID          = "user_id"
	FieldBackend         = "backend"
	FieldLedgerSize      = "ledger_size"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentSession   = "session"
	ComponentRollover  = "rollover"
	ComponentStorage   = "storage"
	ComponentMirror    = "mirror"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentGCS       = "gcs"
	ComponentAuth      = "auth"
	ComponentAdvice    = "advice"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpLoad      = "load"
	OpSave      = "save"
	OpRecord    = "record"
	OpReconcile = "reconcile"
	OpMirror    = "mirror"
	OpConsume   = "consume"
	OpSignIn    = "sign_in"
	OpSignOut   = "sign_out"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithTransaction adds the identifying fields of a ledger entry. Notes and
// person names stay out of the logs.
func (f LogFields) WithTransaction(tx core.Transaction) LogFields {
	f[FieldTransactionID] = tx.ID
	f[FieldTransactionType] = string(tx.Type)
	f[FieldAmount] = tx.Amount.String()
	return f
}

func (f LogFields) WithDay(d core.Day) LogFields {
	f[FieldDay] = d.String()
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
