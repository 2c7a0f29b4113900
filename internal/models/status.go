package models

// StatusKind 连接状态类别（取值与前端 status-badge 样式类一致）
type StatusKind string

const (
	StatusSimulated StatusKind = "simulated"
	StatusConnected StatusKind = "connected"
	StatusError     StatusKind = "error"
)

// 状态文案
const (
	MsgSimulationMode      = "Simulation Mode"
	MsgConnecting          = "Connecting…"
	MsgBackendConnected    = "Backend Connected"
	MsgBackendDisconnected = "Backend Disconnected"
)

// ConnectionStatus 连接状态 + 可读文案，由数据源复用器独占修改
type ConnectionStatus struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
}

func SimulatedStatus() ConnectionStatus {
	return ConnectionStatus{Kind: StatusSimulated, Message: MsgSimulationMode}
}

func ConnectingStatus() ConnectionStatus {
	return ConnectionStatus{Kind: StatusConnected, Message: MsgConnecting}
}

func ConnectedStatus() ConnectionStatus {
	return ConnectionStatus{Kind: StatusConnected, Message: MsgBackendConnected}
}

func DisconnectedStatus() ConnectionStatus {
	return ConnectionStatus{Kind: StatusError, Message: MsgBackendDisconnected}
}

// SourceMode 当前活跃的数据生产者
type SourceMode int

const (
	ModeNone SourceMode = iota
	ModeSimulating
	ModePolling
)

func (m SourceMode) String() string {
	switch m {
	case ModeSimulating:
		return "SIMULATING"
	case ModePolling:
		return "POLLING"
	default:
		return "NONE"
	}
}

func (m SourceMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
