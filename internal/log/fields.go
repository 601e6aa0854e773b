package log

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldDeliveryID = "delivery_id"
	FieldShape      = "shape"
	FieldItem       = "item"
	FieldStartDate  = "start_date"
	FieldMonth      = "month"
	FieldCategory   = "category"
	FieldRow        = "row"
	FieldCount      = "count"
	FieldReason     = "reason"
	FieldMode       = "mode"
)

const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentWebhook = "webhook"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentTrace   = "trace"
	ComponentBackend = "backend"
)

const (
	OpDecode   = "decode"
	OpTally    = "tally"
	OpAudit    = "audit"
	OpIndex    = "index"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpMigrate  = "migrate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields builds slog key/value pairs.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithDelivery adds the identifying fields of a webhook delivery.
func (f LogFields) WithDelivery(id, shape, item string) LogFields {
	f[FieldDeliveryID] = id
	if shape != "" {
		f[FieldShape] = shape
	}
	if item != "" {
		f[FieldItem] = item
	}
	return f
}

// WithTally adds the report cell a delivery was counted in.
func (f LogFields) WithTally(month, category string, row, count int) LogFields {
	f[FieldMonth] = month
	f[FieldCategory] = category
	f[FieldRow] = row
	f[FieldCount] = count
	return f
}

func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice flattens the fields for slog.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
