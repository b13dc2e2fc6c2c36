package replen

import (
	"testing"

	"github.com/wms-core/server/internal/domain"
)

func TestSizeByMethodCaseBreakCapsToNeeded(t *testing.T) {
	got := sizeByMethod(domain.ReplenCaseBreak, 100, 7, 12)
	if got != 7 {
		t.Fatalf("case_break should pull exactly what's needed, got %d", got)
	}
}

func TestSizeByMethodCaseBreakCapsToAvailable(t *testing.T) {
	got := sizeByMethod(domain.ReplenCaseBreak, 5, 7, 12)
	if got != 5 {
		t.Fatalf("case_break should cap at availability, got %d", got)
	}
}

func TestSizeByMethodFullCaseRoundsUpToWholeCases(t *testing.T) {
	got := sizeByMethod(domain.ReplenFullCase, 100, 7, 12)
	if got != 12 {
		t.Fatalf("full_case needing 7 of a 12-unit case should pull one whole case (12), got %d", got)
	}
}

func TestSizeByMethodFullCaseCapsToWholeCasesAvailable(t *testing.T) {
	got := sizeByMethod(domain.ReplenFullCase, 20, 30, 12)
	if got != 12 {
		t.Fatalf("only one whole case (12) fits in 20 available, got %d", got)
	}
}
