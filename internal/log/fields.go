package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldDuration   = "duration_ms"
	FieldMonthID    = "month_id"
	FieldMonth      = "month"
	FieldYear       = "year"
	FieldTemplateID = "template_id"
	FieldCategoryID = "category_id"
	FieldName       = "name"
	FieldAmountCAD  = "amount_cad"
	FieldAmountUSD  = "amount_usd"
	FieldRate       = "rate"
	FieldCacheKey   = "cache_key"
	FieldCreated    = "created"
	FieldSkipped    = "skipped"
	FieldFailed     = "failed"
	FieldRoutingKey = "routing_key"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentMonth     = "month"
	ComponentRecurring = "recurring"
	ComponentTemplate  = "template"
	ComponentTxn       = "transaction"
	ComponentCategory  = "category"
	ComponentCurrency  = "currency"
	ComponentStorage   = "storage"
	ComponentCache     = "cache"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpRead        = "read"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpList        = "list"
	OpMaterialize = "materialize"
	OpRecompute   = "recompute"
	OpFetchRate   = "fetch_rate"
	OpPublish     = "publish"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMonth adds month identity fields
func (f LogFields) WithMonth(id int64, month, year int) LogFields {
	f[FieldMonthID] = id
	f[FieldMonth] = month
	f[FieldYear] = year
	return f
}

// WithTemplate adds recurring template fields
func (f LogFields) WithTemplate(id int64, name string) LogFields {
	f[FieldTemplateID] = id
	f[FieldName] = name
	return f
}

// ToSlice converts LogFields to key/value pairs for Logger methods
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
