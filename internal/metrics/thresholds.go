package metrics

// Level 指标告警级别（对应前端 metric-card 的样式类）
type Level string

const (
	LevelNormal  Level = "normal"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// 阈值
const (
	EARDanger  = 0.20
	EARWarning = 0.25

	HeadTiltDanger  = 15
	HeadTiltWarning = 10
)

// ClassifyEAR EAR 越低越危险：<0.20 danger，<0.25 warning
func ClassifyEAR(ear float64) Level {
	switch {
	case ear < EARDanger:
		return LevelDanger
	case ear < EARWarning:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// ClassifyHeadTilt 按绝对值判断：>15 danger，>10 warning
func ClassifyHeadTilt(deg int) Level {
	if deg < 0 {
		deg = -deg
	}
	switch {
	case deg > HeadTiltDanger:
		return LevelDanger
	case deg > HeadTiltWarning:
		return LevelWarning
	default:
		return LevelNormal
	}
}
