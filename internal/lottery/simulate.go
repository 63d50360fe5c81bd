package lottery

import (
	"fmt"
	"strconv"
	"strings"
)

// Simulate 用给定随机源连续抽 n 次，返回每个奖品ID（含 NoWinID）的命中次数
func Simulate(prizes []Prize, src RandomSource, n int) (map[int64]int, error) {
	hits := make(map[int64]int, len(prizes)+1)
	for i := 0; i < n; i++ {
		r, err := src.Roll()
		if err != nil {
			return nil, err
		}
		hits[Select(prizes, r).ID]++
	}
	return hits, nil
}

// ParseProbabilities 解析 "30,50" 形式的概率列表，奖品按顺序编号 1..n，名称为 p0..pn-1
func ParseProbabilities(s string) ([]Prize, error) {
	var out []Prize
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 0 || p > MaxTotalProbability {
			return nil, fmt.Errorf("invalid probability %q", part)
		}
		out = append(out, Prize{ID: int64(len(out) + 1), Name: "p" + strconv.Itoa(i), Probability: p})
	}
	if TotalProbability(out) > MaxTotalProbability {
		return nil, fmt.Errorf("total probability %d exceeds %d", TotalProbability(out), MaxTotalProbability)
	}
	return out, nil
}
