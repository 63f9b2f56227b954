package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2024, 10, 10, 10, 17, 42, 0, time.UTC)
	to := time.Date(2024, 10, 10, 14, 3, 9, 0, time.UTC)

	gotFrom, gotTo := AlignFromTo(from, to, "4h")
	if gotFrom != time.Date(2024, 10, 10, 8, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected from %v", gotFrom)
	}
	if gotTo != time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected to %v", gotTo)
	}
}

func TestNextDailyUTC(t *testing.T) {
	offset := 9 * time.Hour
	before := time.Date(2024, 10, 10, 7, 0, 0, 0, time.UTC)
	after := time.Date(2024, 10, 10, 11, 0, 0, 0, time.UTC)

	if got := NextDailyUTC(before, offset); got != time.Date(2024, 10, 10, 9, 0, 0, 0, time.UTC) {
		t.Fatalf("before: got %v", got)
	}
	if got := NextDailyUTC(after, offset); got != time.Date(2024, 10, 11, 9, 0, 0, 0, time.UTC) {
		t.Fatalf("after: got %v", got)
	}
	// exactly at the boundary rolls to the next day
	at := time.Date(2024, 10, 10, 9, 0, 0, 0, time.UTC)
	if got := NextDailyUTC(at, offset); got != time.Date(2024, 10, 11, 9, 0, 0, 0, time.UTC) {
		t.Fatalf("at: got %v", got)
	}
}
