package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/suvro-04/Driving-alert-system/internal/models"
)

// 驻留时间：超过该 tick 数后切换状态
const (
	AlertDwellTicks  = 10
	DrowsyDwellTicks = 6
)

// SimulatedFaceBox 模拟模式下固定的人脸框
var SimulatedFaceBox = models.FaceBox{X: 200, Y: 100, W: 300, H: 350}

// Generator 模拟遥测生成器（ALERT/DROWSY 驻留时间状态机）
// 非并发安全，由调用方串行驱动
type Generator struct {
	rng          *rand.Rand
	state        models.DriverState
	ticksInState int
}

// NewGenerator 创建生成器；rng 为 nil 时使用基于时间的种子
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng, state: models.StateAlert}
}

// NewSeededGenerator 使用固定种子创建生成器（测试/复现）
func NewSeededGenerator(seed int64) *Generator {
	return NewGenerator(rand.New(rand.NewSource(seed)))
}

// Reset 回到初始状态 (ALERT, 0)
func (g *Generator) Reset() {
	g.state = models.StateAlert
	g.ticksInState = 0
}

func (g *Generator) State() models.DriverState { return g.state }

func (g *Generator) TicksInState() int { return g.ticksInState }

// Step 推进一个 tick 的状态机，不生成记录
func (g *Generator) Step() models.DriverState {
	g.ticksInState++

	switch {
	case g.state == models.StateAlert && g.ticksInState > AlertDwellTicks:
		g.state = models.StateDrowsy
		g.ticksInState = 0
	case g.state == models.StateDrowsy && g.ticksInState > DrowsyDwellTicks:
		g.state = models.StateAlert
		g.ticksInState = 0
	}

	return g.state
}

// Next 推进一个 tick 并按当前状态生成一条记录
func (g *Generator) Next() models.TelemetryRecord {
	return g.synthesize(g.Step())
}

func (g *Generator) synthesize(state models.DriverState) models.TelemetryRecord {
	box := SimulatedFaceBox

	if state == models.StateDrowsy {
		return models.TelemetryRecord{
			EAR:             truncate2(0.16 + g.rng.Float64()*0.04),
			BlinkRate:       3 + g.rng.Intn(4),
			YawnCount:       g.chance(0.3),
			HeadTilt:        15 + g.rng.Intn(8),
			State:           models.StateDrowsy,
			EyesOpen:        false,
			Yawning:         g.chance(0.3) == 1,
			FaceBox:         &box,
			SerialConnected: true,
			BuzzerActive:    true,
		}
	}

	return models.TelemetryRecord{
		EAR:             truncate2(0.26 + g.rng.Float64()*0.04),
		BlinkRate:       12 + g.rng.Intn(6),
		YawnCount:       0,
		HeadTilt:        -2 + g.rng.Intn(4),
		State:           models.StateAlert,
		EyesOpen:        true,
		Yawning:         false,
		FaceBox:         &box,
		SerialConnected: true,
		BuzzerActive:    false,
	}
}

func (g *Generator) chance(p float64) int {
	if g.rng.Float64() < p {
		return 1
	}
	return 0
}

// truncate2 截断到两位小数（向下取整，保证不越过半开区间上界）
func truncate2(v float64) float64 {
	return math.Floor(v*100) / 100
}
