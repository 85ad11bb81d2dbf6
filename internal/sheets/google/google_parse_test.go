package google

import "testing"

func TestMonthFromTab(t *testing.T) {
	tests := []struct {
		title string
		want  string
		ok    bool
	}{
		{"2024년 6월", "2024-06", true},
		{"2024년 12월", "2024-12", true},
		{" 2025년 1월 ", "2025-01", true},
		{"2024년 13월", "", false},
		{"2024년 6월 메모", "", false},
		{"Sheet1", "", false},
		{"요약", "", false},
	}
	for _, tt := range tests {
		got, ok := monthFromTab(tt.title)
		if ok != tt.ok || got != tt.want {
			t.Errorf("monthFromTab(%q) = %q, %v; want %q, %v", tt.title, got, ok, tt.want, tt.ok)
		}
	}
}
