package lottery

import "testing"

func TestSimulateMatchesEffectiveWeights(t *testing.T) {
	prizes := []Prize{{ID: 1, Name: "p0", Probability: 30}, {ID: 2, Name: "p1", Probability: 50}}

	// 每个点位恰好出现一次时，命中次数等于有效权重
	rolls := make([]int, RollSpace)
	for i := range rolls {
		rolls[i] = i
	}
	hits, err := Simulate(prizes, NewFixedSource(rolls...), RollSpace)
	if err != nil {
		t.Fatal(err)
	}
	want := EffectiveWeights(prizes)
	for id, w := range want {
		if hits[id] != w {
			t.Fatalf("prize %d: hits %d want %d", id, hits[id], w)
		}
	}
}

func TestSimulateSeededDistribution(t *testing.T) {
	prizes := []Prize{{ID: 1, Name: "p0", Probability: 30}, {ID: 2, Name: "p1", Probability: 50}}
	const n = 200000
	hits, err := Simulate(prizes, NewSeededSource(42), n)
	if err != nil {
		t.Fatal(err)
	}
	for id, w := range EffectiveWeights(prizes) {
		got := float64(hits[id]) / n * 100
		if got < float64(w)-1 || got > float64(w)+1 {
			t.Fatalf("prize %d: empirical %.2f%% want about %d%%", id, got, w)
		}
	}
}

func TestSimulatePropagatesSourceError(t *testing.T) {
	if _, err := Simulate(nil, NewFixedSource(), 1); err == nil {
		t.Fatal("expected error from empty source")
	}
}

func TestParseProbabilities(t *testing.T) {
	prizes, err := ParseProbabilities(" 30, 50 ")
	if err != nil {
		t.Fatal(err)
	}
	if len(prizes) != 2 || prizes[1].ID != 2 || prizes[1].Probability != 50 {
		t.Fatalf("prizes = %+v", prizes)
	}
	for _, bad := range []string{"x", "-1", "101", "60,50"} {
		if _, err := ParseProbabilities(bad); err == nil {
			t.Errorf("ParseProbabilities(%q) expected error", bad)
		}
	}
}
