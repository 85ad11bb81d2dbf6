package google

import (
	"fmt"
	"strings"
)

// monthFromTab converts a tab title such as "2024년 6월" back to "2024-06".
func monthFromTab(title string) (string, bool) {
	var year, month int
	var rest string
	n, _ := fmt.Sscanf(strings.TrimSpace(title), "%d년 %d월%s", &year, &month, &rest)
	if n < 2 || rest != "" {
		return "", false
	}
	if year < 1900 || year > 9999 || month < 1 || month > 12 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d", year, month), true
}
