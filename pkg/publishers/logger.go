package publishers

// Logger defines the logging surface publishers rely on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// logDelivery records the outcome of one publish. ref is the sink's message
// id or status, when it reports one.
func logDelivery(log Logger, p Publisher, evt Event, ref string, err error) {
	fields := map[string]any{
		"publisher_id":   p.ID(),
		"publisher_type": p.Type(),
		"target_id":      evt.TargetID,
	}
	if ref != "" {
		fields["ref"] = ref
	}
	if err != nil {
		fields["error"] = err.Error()
		log.ErrorObj("publisher delivery failed", "publisher_delivery", fields)
		return
	}
	log.DebugObj("publisher delivered snapshot", "publisher_delivery", fields)
}
