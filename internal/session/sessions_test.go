package session_test

import (
	"testing"
	"time"

	"smc-prop-engine/internal/model"
	"smc-prop-engine/internal/session"
)

func at(hour int) time.Time {
	return time.Date(2025, 6, 2, hour, 30, 0, 0, time.UTC)
}

func TestCurrent(t *testing.T) {
	cases := []struct {
		hour int
		want session.Name
	}{
		{0, session.Asian},
		{7, session.Asian},
		{8, session.London},
		{11, session.London},
		{12, session.Off}, // 伦敦收盘与纽约开盘之间的空档
		{13, session.NY},
		{16, session.NY},
		{17, session.Off},
		{23, session.Off},
	}
	for _, c := range cases {
		if got := session.Current(at(c.hour)); got != c.want {
			t.Errorf("hour %d: got %s, want %s", c.hour, got, c.want)
		}
	}
}

func TestIsValid(t *testing.T) {
	off := at(18)
	if !session.IsValid(off, false) {
		t.Fatal("filter disabled must always pass")
	}
	if session.IsValid(off, true) {
		t.Fatal("off-session time must fail when the filter is on")
	}
	if !session.IsValid(at(9), true) {
		t.Fatal("london hours must pass the filter")
	}
	if !session.IsLondonOrNY(at(14)) || session.IsLondonOrNY(at(3)) {
		t.Fatal("IsLondonOrNY window wrong")
	}
}

func TestAsianRange(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mk := func(offset time.Duration, high, low float64) model.Candle {
		return model.Candle{Time: day.Add(offset).UnixMilli(), High: high, Low: low}
	}
	candles := []model.Candle{
		mk(1*time.Hour, 101, 99),
		mk(4*time.Hour, 103, 98),
		mk(7*time.Hour, 102, 97),
		mk(9*time.Hour, 200, 1), // 亚盘之外，不参与
	}

	r := session.AsianRange(candles, now)
	if r == nil {
		t.Fatal("expected a range")
	}
	if r.High != 103 || r.Low != 97 {
		t.Fatalf("range = %+v, want 103/97", r)
	}

	if got := session.AsianRange(nil, now); got != nil {
		t.Fatalf("no candles in window must give nil, got %+v", got)
	}
}
