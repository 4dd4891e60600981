package protocol

// Handler receives typed messages. Implementations must not block for long:
// they run on the link's read goroutine.
type Handler interface {
	OnStatus(Status)
	OnCells(Cells)
	OnSample(Sample)
	OnCaptureSummary(CaptureSummary)
	OnFired(Fired)
	OnPedal(Pedal)
	OnCharger(Charger)
	OnWeldEvent(WeldEvent)
	OnLog(Log)
}

// Dispatch parses line and routes the result to h. It returns the kind so
// callers can count traffic.
func Dispatch(h Handler, line string) Kind {
	msg := Parse(line)
	if msg == nil {
		return KindIgnored
	}

	switch m := msg.(type) {
	case Status:
		h.OnStatus(m)
	case Cells:
		h.OnCells(m)
	case Sample:
		h.OnSample(m)
	case CaptureSummary:
		h.OnCaptureSummary(m)
	case Fired:
		h.OnFired(m)
	case Pedal:
		h.OnPedal(m)
	case Charger:
		h.OnCharger(m)
	case WeldEvent:
		h.OnWeldEvent(m)
	case Log:
		h.OnLog(m)
	}

	return msg.Kind()
}

// NopHandler ignores everything. Embed it to handle a subset of messages.
type NopHandler struct{}

func (NopHandler) OnStatus(Status)                 {}
func (NopHandler) OnCells(Cells)                   {}
func (NopHandler) OnSample(Sample)                 {}
func (NopHandler) OnCaptureSummary(CaptureSummary) {}
func (NopHandler) OnFired(Fired)                   {}
func (NopHandler) OnPedal(Pedal)                   {}
func (NopHandler) OnCharger(Charger)               {}
func (NopHandler) OnWeldEvent(WeldEvent)           {}
func (NopHandler) OnLog(Log)                       {}
