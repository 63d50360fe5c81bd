package state

import "fmt"

// State 单次抽奖的状态
const (
	StateIdle          = "idle"           // 未开始
	StateCreditChecked = "credit_checked" // 已锁定用户并确认次数充足
	StateSelected      = "selected"       // 已选出奖品
	StateCommitted     = "committed"      // 扣次数与写记录已提交（终态）
	StateRolledBack    = "rolled_back"    // 已回滚（终态）
)

// Event 抽奖流程事件
const (
	EvtCreditOK = "credit_ok"
	EvtSelect   = "select"
	EvtCommit   = "commit"
	EvtFail     = "fail"
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
// 任一非终态遇到 fail 都转入 rolled_back
func NextState(cur, evt string) (string, error) {
	if evt == EvtFail && !IsTerminal(cur) {
		return StateRolledBack, nil
	}
	switch cur {
	case StateIdle:
		if evt == EvtCreditOK {
			return StateCreditChecked, nil
		}
	case StateCreditChecked:
		if evt == EvtSelect {
			return StateSelected, nil
		}
	case StateSelected:
		if evt == EvtCommit {
			return StateCommitted, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}

// IsTerminal 是否为终态
func IsTerminal(s string) bool {
	return s == StateCommitted || s == StateRolledBack
}

// Machine 记录一次抽奖的状态流转
type Machine struct {
	cur string
}

func NewMachine() *Machine { return &Machine{cur: StateIdle} }

// Current 当前状态
func (m *Machine) Current() string { return m.cur }

// Step 先校验 evt 在当前状态合法，再执行 fn；fn 成功才迁移
// 转换非法时 fn 不执行；fn 失败时进入 rolled_back
func (m *Machine) Step(evt string, fn func() error) error {
	next, err := NextState(m.cur, evt)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		m.Fail()
		return err
	}
	m.cur = next
	return nil
}

// Fail 非终态转入 rolled_back，终态不变
func (m *Machine) Fail() {
	if !IsTerminal(m.cur) {
		m.cur = StateRolledBack
	}
}
