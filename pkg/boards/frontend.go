package boards

// Logger receives board-visible events.
type Logger interface {
	LogInfo(msg string)
	LogWarning(msg string)
	LogError(msg string)
}

// Frontend exposes discovered boards to the outside world.
type Frontend interface {
	Logger
	// NewBoard is called once per newly discovered board instance.
	NewBoard(inst *Instance) BoardHandler
	// ReportBusLoad reports traffic of every bus in bytes per second.
	ReportBusLoad(loads []BusLoad)
}

// BoardHandler is the frontend side of one board instance.
type BoardHandler interface {
	// FieldDataInbound delivers field or function data by entry index.
	FieldDataInbound(index int, data []byte)
	// ReplaceBackend tells the instance is now served by conn.
	ReplaceBackend(conn *Connection)
	// Shutdown tells the board left on its own.
	Shutdown()
	// ConnectionLost tells the serving connection has been declared dead.
	ConnectionLost()
}

// BusLoad is the traffic of one bus.
type BusLoad struct {
	Bus            string
	BytesPerSecond float64
}
