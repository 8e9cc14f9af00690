package models

import "sync"

const SummaryTotal = "total"

// Summary counts rows per mode and status, plus a "total" bucket across
// modes.
type Summary map[string]map[string]int

func NewSummary() Summary {
	return Summary{
		string(ModePDP): {},
		string(ModePLP): {},
		SummaryTotal:    {},
	}
}

func Summarize(rows []*ResultRow) Summary {
	s := NewSummary()
	for _, row := range rows {
		s.Add(row)
	}
	return s
}

func (s Summary) Add(row *ResultRow) {
	mode := string(row.Mode)
	if mode == "" {
		mode = "unknown"
	}
	status := string(row.Status)
	if status == "" {
		status = "unknown"
	}
	if s[mode] == nil {
		s[mode] = map[string]int{}
	}
	if s[SummaryTotal] == nil {
		s[SummaryTotal] = map[string]int{}
	}
	s[mode][status]++
	s[SummaryTotal][status]++
}

func (s Summary) Total() int {
	n := 0
	for _, c := range s[SummaryTotal] {
		n += c
	}
	return n
}

func (s Summary) Clone() Summary {
	out := make(Summary, len(s))
	for mode, counts := range s {
		inner := make(map[string]int, len(counts))
		for status, n := range counts {
			inner[status] = n
		}
		out[mode] = inner
	}
	return out
}

// Tally is a Summary that can be updated and read from different
// goroutines.
type Tally struct {
	mu      sync.RWMutex
	summary Summary
}

func NewTally() *Tally {
	return &Tally{summary: NewSummary()}
}

func (t *Tally) Add(row *ResultRow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Add(row)
}

func (t *Tally) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.summary.Clone()
}
