package model

import "testing"

func TestGradeForScore_Bands(t *testing.T) {
	cases := []struct {
		score float64
		want  Grade
	}{
		{100, GradeAPlus},
		{95, GradeAPlus},
		{94.9, GradeA},
		{90, GradeA},
		{89.9, GradeAMin},
		{85, GradeAMin},
		{84.9, GradeBPlus},
		{80, GradeBPlus},
		{79.9, GradeB},
		{75, GradeB},
		{74.9, GradeBMin},
		{70, GradeBMin},
		{69.9, GradeCPlus},
		{65, GradeCPlus},
		{64.9, GradeC},
		{60, GradeC},
		{59.9, GradeD},
		{0, GradeD},
	}
	for _, c := range cases {
		if got := GradeForScore(c.score); got != c.want {
			t.Errorf("GradeForScore(%v) = %s, want %s", c.score, got, c.want)
		}
	}
}
