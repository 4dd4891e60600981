package metrics

import "net/http"

// Collector records link and weld activity.
type Collector interface {
	ConnectionState(state string)
	Reconnect()
	Line(kind string)
	Status(packVoltage, temperature, current float64)
	WeldPersisted(energyJoules, peakCurrentAmps float64)
	WeldDiscarded()
	WeldPersistFailed()
	// Handler serves the collected metrics in the Prometheus text format.
	Handler() http.Handler
}

// ConnectionStates lists every label value ConnectionState accepts, so the
// gauge always exposes the full set.
var ConnectionStates = []string{"disconnected", "connecting", "connected"}
