package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DriverState 驾驶员警觉状态
type DriverState string

const (
	StateAlert  DriverState = "ALERT"
	StateDrowsy DriverState = "DROWSY"
)

// ParseDriverState 宽松解析状态：大小写不敏感，非 drowsy 一律视为 ALERT
func ParseDriverState(s string) DriverState {
	if strings.EqualFold(strings.TrimSpace(s), string(StateDrowsy)) {
		return StateDrowsy
	}
	return StateAlert
}

// MarshalJSON 输出小写（与检测后端 /api/metrics 一致）
func (s DriverState) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToLower(string(s)))
}

func (s *DriverState) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = StateAlert
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	*s = ParseDriverState(str)
	return nil
}

// FaceBox 人脸框（用于视频叠加层）
type FaceBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// TelemetryRecord 单个 tick 产生的遥测记录，创建后不再修改
type TelemetryRecord struct {
	EAR             float64     `json:"ear"`       // 眼睛纵横比，约 [0,1]
	BlinkRate       int         `json:"blinkRate"` // 次/分钟
	YawnCount       int         `json:"yawnCount"`
	HeadTilt        int         `json:"headTilt"` // 度，有符号
	State           DriverState `json:"state"`
	EyesOpen        bool        `json:"eyesOpen"`
	Yawning         bool        `json:"yawning"`
	FaceBox         *FaceBox    `json:"faceBox"` // nil 表示不绘制叠加层
	SerialConnected bool        `json:"serialConnected"`
	BuzzerActive    bool        `json:"buzzerActive"`
}

// IsDrowsy 是否为 DROWSY 状态
func (r TelemetryRecord) IsDrowsy() bool {
	return r.State == StateDrowsy
}

// ErrNotObject 响应体不是 JSON 对象
var ErrNotObject = errors.New("telemetry body is not a JSON object")

// flexNumber 兼容数字、数字字符串（旧前端 toFixed(2) 输出）和 null
type flexNumber struct {
	set   bool
	value float64
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		n.set, n.value = true, v
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.set, n.value = true, v
	return nil
}

func (n flexNumber) round() int {
	if !n.set || math.IsNaN(n.value) || math.IsInf(n.value, 0) {
		return 0
	}
	return int(math.Round(n.value))
}

func (n flexNumber) count() int {
	v := n.round()
	if v < 0 {
		return 0
	}
	return v
}

// UnmarshalJSON 宽松解码后端返回的遥测记录
// 缺失字段保持零值（展示层渲染为占位符），计数字段负数归零
func (r *TelemetryRecord) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotObject
	}

	var raw struct {
		EAR             flexNumber  `json:"ear"`
		BlinkRate       flexNumber  `json:"blinkRate"`
		YawnCount       flexNumber  `json:"yawnCount"`
		HeadTilt        flexNumber  `json:"headTilt"`
		State           DriverState `json:"state"`
		EyesOpen        bool        `json:"eyesOpen"`
		Yawning         bool        `json:"yawning"`
		FaceBox         *FaceBox    `json:"faceBox"`
		SerialConnected bool        `json:"serialConnected"`
		BuzzerActive    bool        `json:"buzzerActive"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	state := raw.State
	if state == "" {
		state = StateAlert
	}

	*r = TelemetryRecord{
		EAR:             raw.EAR.value,
		BlinkRate:       raw.BlinkRate.count(),
		YawnCount:       raw.YawnCount.count(),
		HeadTilt:        raw.HeadTilt.round(),
		State:           state,
		EyesOpen:        raw.EyesOpen,
		Yawning:         raw.Yawning,
		FaceBox:         raw.FaceBox,
		SerialConnected: raw.SerialConnected,
		BuzzerActive:    raw.BuzzerActive,
	}
	return nil
}
