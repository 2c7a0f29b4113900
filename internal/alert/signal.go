package alert

import "github.com/suvro-04/Driving-alert-system/internal/models"

// Signal 下发给硬件桥的告警信号
type Signal string

const (
	SignalNormal     Signal = "NORMAL"
	SignalDrowsy     Signal = "DROWSY"
	SignalYawn       Signal = "YAWN"
	SignalDistracted Signal = "DISTRACTED"
)

// DistractedTilt 头部偏转超过该角度（绝对值）视为分心
const DistractedTilt = 25

// Classify 按优先级 DROWSY > YAWN > DISTRACTED > NORMAL 判定信号
func Classify(r models.TelemetryRecord) Signal {
	tilt := r.HeadTilt
	if tilt < 0 {
		tilt = -tilt
	}

	switch {
	case r.IsDrowsy():
		return SignalDrowsy
	case r.Yawning:
		return SignalYawn
	case tilt > DistractedTilt:
		return SignalDistracted
	default:
		return SignalNormal
	}
}
