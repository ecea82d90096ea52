package ws

// Metrics receives realtime counters. It is implemented by internal/metrics.
type Metrics interface {
	SetConnections(total, authenticated int)
	ObserveBroadcast(frame string, report DeliveryReport)
	ObserveEviction(reason string)
	ObserveAuthFailure()
}

type NopMetrics struct{}

func (NopMetrics) SetConnections(int, int)                 {}
func (NopMetrics) ObserveBroadcast(string, DeliveryReport) {}
func (NopMetrics) ObserveEviction(string)                  {}
func (NopMetrics) ObserveAuthFailure()                     {}
