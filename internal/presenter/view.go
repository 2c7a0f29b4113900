package presenter

import (
	"strconv"

	"github.com/suvro-04/Driving-alert-system/internal/metrics"
	"github.com/suvro-04/Driving-alert-system/internal/models"
)

// 叠加层颜色
const (
	ColorDrowsy = "#ea4335"
	ColorAlert  = "#4285f4"
)

// Placeholder 缺失值的占位符
const Placeholder = "--"

// View 仪表盘渲染所需的投影；不修正 eyesOpen/yawning 与 state 的不一致
type View struct {
	Record models.TelemetryRecord `json:"record"`

	EARText      string `json:"earText"`
	BlinkText    string `json:"blinkText"`
	YawnText     string `json:"yawnText"`
	HeadTiltText string `json:"headTiltText"`

	EARLevel      metrics.Level `json:"earLevel"`
	HeadTiltLevel metrics.Level `json:"headTiltLevel"`

	StateLabel   string `json:"stateLabel"`
	AlertOverlay bool   `json:"alertOverlay"`

	Serial          string `json:"serial"`
	Buzzer          string `json:"buzzer"`
	Vibration       string `json:"vibration"`
	VibrationActive bool   `json:"vibrationActive"`

	BoxColor     string `json:"boxColor,omitempty"`
	BoxLabel     string `json:"boxLabel,omitempty"`
	EyesLabel    string `json:"eyesLabel,omitempty"`
	YawningLabel string `json:"yawningLabel,omitempty"`
}

// NewView 由遥测记录构建渲染视图
// 零值字段视为缺失：文本显示占位符，EAR 不参与阈值着色
func NewView(r models.TelemetryRecord) View {
	v := View{
		Record:        r,
		EARText:       Placeholder,
		BlinkText:     Placeholder,
		YawnText:      strconv.Itoa(r.YawnCount),
		HeadTiltText:  Placeholder,
		EARLevel:      metrics.LevelNormal,
		HeadTiltLevel: metrics.ClassifyHeadTilt(r.HeadTilt),
	}

	if r.EAR != 0 {
		v.EARText = strconv.FormatFloat(r.EAR, 'f', 2, 64)
		v.EARLevel = metrics.ClassifyEAR(r.EAR)
	}
	if r.BlinkRate != 0 {
		v.BlinkText = strconv.Itoa(r.BlinkRate)
	}
	if r.HeadTilt != 0 {
		v.HeadTiltText = strconv.Itoa(r.HeadTilt)
	}

	if r.IsDrowsy() {
		v.StateLabel = "Drowsy"
		v.AlertOverlay = true
	} else {
		v.StateLabel = "Alert"
	}

	v.Serial = onOff(r.SerialConnected, "Connected", "Disconnected")
	v.Buzzer = onOff(r.BuzzerActive, "Active", "Inactive")
	// 振动器与蜂鸣器同步
	v.Vibration = v.Buzzer
	v.VibrationActive = r.BuzzerActive

	if r.FaceBox != nil {
		if r.IsDrowsy() {
			v.BoxColor, v.BoxLabel = ColorDrowsy, "DROWSY"
		} else {
			v.BoxColor, v.BoxLabel = ColorAlert, "ALERT"
		}
		v.EyesLabel = onOff(r.EyesOpen, "Eyes: Open", "Eyes: Closed")
		if r.Yawning {
			v.YawningLabel = "Yawning"
		}
	}

	return v
}

func onOff(b bool, on, off string) string {
	if b {
		return on
	}
	return off
}
