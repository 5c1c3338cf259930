package domain

import "testing"

func TestParseMove(t *testing.T) {
	cases := []struct {
		in   string
		want Move
		ok   bool
	}{
		{"rock", MoveRock, true},
		{" Paper ", MovePaper, true},
		{"scissors", MoveScissor, true},
		{"scissor", MoveScissor, true},
		{"lizard", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseMove(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseMove(%q) = %q,%v; want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMatchWinnerAndResult(t *testing.T) {
	m := Match{
		Challenger: Participant{ID: 1},
		Challenged: Participant{ID: 2},
	}
	if m.Winner() != nil || m.ResultFor(1) != GameResultDraw {
		t.Fatal("0-0 should be a draw")
	}
	m.ChallengedScore = 2
	m.ChallengerScore = 1
	if w := m.Winner(); w == nil || *w != 2 {
		t.Fatalf("winner = %v", w)
	}
	if m.ResultFor(1) != GameResultLose || m.ResultFor(2) != GameResultWin {
		t.Fatal("wrong per-player result")
	}
	if opp, ok := m.Opponent(1); !ok || opp.ID != 2 {
		t.Fatalf("opponent = %+v", opp)
	}
	if _, ok := m.Opponent(3); ok {
		t.Fatal("outsider has an opponent")
	}
}

func TestStatusTerminal(t *testing.T) {
	for s, want := range map[MatchStatus]bool{
		MatchPending:   false,
		MatchActive:    false,
		MatchCompleted: true,
		MatchDeclined:  true,
		MatchExpired:   true,
	} {
		if s.Terminal() != want {
			t.Fatalf("%s.Terminal() = %v", s, !want)
		}
	}
}

func TestPlayerStatsApply(t *testing.T) {
	var s PlayerStats
	s = s.Apply(GameResultWin, []Move{MoveRock, MoveRock, MovePaper}, 15)
	s = s.Apply(GameResultDraw, []Move{MoveScissor}, 5)
	s = s.Apply(GameResultLose, nil, 3)

	if s.TotalGames != 3 || s.Wins != 1 || s.Ties != 1 || s.Losses != 1 {
		t.Fatalf("counters %+v", s)
	}
	if s.ChallengeGames != 3 || s.ChallengeWins != 1 || s.ChallengeLosses != 1 {
		t.Fatalf("challenge counters %+v", s)
	}
	if s.RockPlayed != 2 || s.PaperPlayed != 1 || s.ScissorPlayed != 1 {
		t.Fatalf("move counters %+v", s)
	}
	if s.ExperiencePts != 23 {
		t.Fatalf("xp = %d", s.ExperiencePts)
	}
	if s.FavoriteMove() != MoveRock {
		t.Fatalf("favorite = %s", s.FavoriteMove())
	}
	if s.WinRate() != 33.3 {
		t.Fatalf("win rate = %v", s.WinRate())
	}
}

func TestPlayerProgressApply(t *testing.T) {
	var p PlayerProgress
	p = p.Apply("m1", GameResultWin, []Move{MoveRock, MoveRock})
	p = p.Apply("m2", GameResultWin, []Move{MoveRock})
	if p.WinStreak != 2 || p.MoveStreak != 3 || p.LastMove != MoveRock {
		t.Fatalf("progress %+v", p)
	}

	// same match again is ignored
	again := p.Apply("m2", GameResultWin, []Move{MoveRock})
	if again != p {
		t.Fatalf("re-applied match changed progress: %+v", again)
	}

	p = p.Apply("m3", GameResultDraw, []Move{MovePaper})
	if p.WinStreak != 0 || p.MoveStreak != 1 || p.LastMove != MovePaper {
		t.Fatalf("after draw %+v", p)
	}
}

func TestEvaluationAchievements(t *testing.T) {
	e := Evaluation{Players: []PlayerEvaluation{
		{PlayerID: 1, Achievements: []Achievement{{Type: AchievementFirstWin}}},
		{PlayerID: 2},
	}}
	if n := len(e.Achievements()); n != 1 {
		t.Fatalf("achievements = %d", n)
	}
	if _, ok := e.For(3); ok {
		t.Fatal("found evaluation for unknown player")
	}
}
