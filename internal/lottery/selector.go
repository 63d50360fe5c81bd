package lottery

// 抽奖区间划分与选奖
//
// 区间按奖品列表顺序从 0 开始连续排布：
//   - 第一个奖品：[0, prob0]
//   - 之后的奖品：[上一个 end+1, 上一个 end+1+prob]
//
// 命中判断为 start <= r <= end，按顺序取第一个命中的奖品。
// 相邻区间的端点各自包含在内，因此每个奖品实际覆盖 prob+1 个点位（见 EffectiveWeights）。

const (
	// RollSpace 随机数取值范围 [0, RollSpace)
	RollSpace = 100
	// MaxTotalProbability 奖品概率总和上限（百分比）
	MaxTotalProbability = 100

	NoWinID   int64 = 0
	NoWinName       = "谢谢参与"
)

// Prize 参与选奖的奖品（只读快照）
type Prize struct {
	ID          int64
	Name        string
	Probability int
}

// Outcome 选奖结果；ID 为 0 表示未中奖
type Outcome struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Won 是否中奖
func (o Outcome) Won() bool { return o.ID != NoWinID }

// NoWin 未中奖哨兵值
func NoWin() Outcome { return Outcome{ID: NoWinID, Name: NoWinName} }

// Section 单个奖品占用的闭区间
type Section struct {
	PrizeID int64  `json:"prize_id"`
	Name    string `json:"name"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Contains r 是否落在区间内（两端包含）
func (s Section) Contains(r int) bool { return s.Start <= r && r <= s.End }

// Sections 计算奖品列表的区间布局
func Sections(prizes []Prize) []Section {
	out := make([]Section, 0, len(prizes))
	next := 0
	for _, p := range prizes {
		start := next
		end := start + p.Probability
		out = append(out, Section{PrizeID: p.ID, Name: p.Name, Start: start, End: end})
		next = end + 1
	}
	return out
}

// Select 根据随机数 r 选出奖品，确定性：同样的奖品顺序与 r 得到同样结果
func Select(prizes []Prize, r int) Outcome {
	if r < 0 || r >= RollSpace {
		return NoWin()
	}
	for _, s := range Sections(prizes) {
		if s.Contains(r) {
			return Outcome{ID: s.PrizeID, Name: s.Name}
		}
	}
	return NoWin()
}

// EffectiveWeights 统计 [0, RollSpace) 内每个奖品实际命中的点位数，key 为奖品ID，未中奖记在 NoWinID 下
func EffectiveWeights(prizes []Prize) map[int64]int {
	w := make(map[int64]int, len(prizes)+1)
	for r := 0; r < RollSpace; r++ {
		w[Select(prizes, r).ID]++
	}
	return w
}

// TotalProbability 概率总和
func TotalProbability(prizes []Prize) int {
	sum := 0
	for _, p := range prizes {
		sum += p.Probability
	}
	return sum
}
