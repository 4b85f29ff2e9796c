package log

import (
	"maps"
	"slices"
	"time"
)

// Attribute keys shared across packages.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldArgs       = "args"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldCategory   = "category"
	FieldAsOf       = "as_of"
	FieldDate       = "date"
	FieldSymbol     = "symbol"
	FieldQuoteKind  = "quote_kind"
	FieldSource     = "source"
	FieldFile       = "file"
	FieldRows       = "rows"
	FieldRow        = "row"
	FieldImportID   = "import_id"
)

// Values for the component attribute.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentReport  = "report"
	ComponentLedger  = "ledger"
	ComponentQuotes  = "quotes"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
	ComponentCLI     = "cli"
)

// Values for the operation attribute.
const (
	OpHome               = "home"
	OpSpendingByCategory = "spending_by_category"
	OpIncreasedCashback  = "increased_cashback"
	OpLoad               = "load"
	OpNormalize          = "normalize"
)

// LogFields collects attributes before a log call. Each With method
// mutates and returns the receiver.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError is a no-op for a nil error.
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

// WithDuration adds the elapsed time in milliseconds.
func (f LogFields) WithDuration(d time.Duration) LogFields {
	f[FieldDuration] = d.Milliseconds()
	return f
}

// WithQuote adds the identity of an external quote lookup.
func (f LogFields) WithQuote(kind, symbol, date string) LogFields {
	f[FieldQuoteKind] = kind
	f[FieldSymbol] = symbol
	f[FieldDate] = date
	return f
}

// WithHTTPRequest omits an empty user agent.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice flattens the fields into slog key/value args in key order.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		slice = append(slice, k, f[k])
	}
	return slice
}
