package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ildang/internal/aggregate"
	"ildang/internal/sheets"
)

// Store keeps month tabs in memory. It is used when no spreadsheet is configured
// and in tests.
type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
}

var _ sheets.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{tabs: make(map[string][][]any)}
}

// WriteMonth replaces the tab of m.Month.
func (s *Store) WriteMonth(ctx context.Context, payee string, m aggregate.MonthlyData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rows := sheets.MonthRows(payee, m)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[m.Month] = rows
	s.writes++
	return fmt.Sprintf("mem:%s!A1", sheets.TabName(m.Month)), nil
}

// DeleteMonth drops the tab of month.
func (s *Store) DeleteMonth(ctx context.Context, month string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tabs, month)
	return nil
}

// Months lists the months that have a tab, ascending.
func (s *Store) Months(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tabs))
	for m := range s.tabs {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// Tab returns a copy of the rows of month.
func (s *Store) Tab(month string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[month]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), rows...), true
}

// Writes counts WriteMonth calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
