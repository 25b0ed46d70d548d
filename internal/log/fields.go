package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldEntryID        = "entry_id"
	FieldRuleID         = "rule_id"
	FieldOccurrenceDate = "occurrence_date"
	FieldEffectiveDate  = "effective_date"
	FieldWindowStart    = "window_start"
	FieldWindowEnd      = "window_end"
	FieldRowCount       = "row_count"
	FieldAmountCents    = "amount_cents"
	FieldCategory       = "category"
	FieldFrequency      = "frequency"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentBills   = "bills"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentTrace   = "trace"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSnapshot = "snapshot"
	OpPay      = "pay"
	OpPostpone = "postpone"
	OpSkip     = "skip"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
