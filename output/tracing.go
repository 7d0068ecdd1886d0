package output

// ReportLogger receives a copy of every report a TracingPort sends. The
// concrete implementation (internal/log.ReportLogger) hex-dumps them; this
// interface exists so the output package doesn't depend on internal/log.
type ReportLogger interface {
	LogKeys(modifiers uint8, keys []uint8)
	LogConsumer(usage uint16)
}

// TracingPort wraps a Port, forwarding every call unchanged but also
// mirroring keyboard and consumer reports to a ReportLogger — useful for
// diagnosing a misbehaving pipeline without instrumenting every handler.
type TracingPort struct {
	Port
	Logger ReportLogger
}

// NewTracingPort wraps port so every SendKeys/SendConsumer call is also
// mirrored to logger.
func NewTracingPort(port Port, logger ReportLogger) *TracingPort {
	return &TracingPort{Port: port, Logger: logger}
}

func (t *TracingPort) SendKeys(modifiers uint8, keys []uint8) error {
	if t.Logger != nil {
		t.Logger.LogKeys(modifiers, keys)
	}
	return t.Port.SendKeys(modifiers, keys)
}

func (t *TracingPort) SendConsumer(usage uint16) error {
	if t.Logger != nil {
		t.Logger.LogConsumer(usage)
	}
	return t.Port.SendConsumer(usage)
}

var _ Port = (*TracingPort)(nil)
