package status

import (
	"testing"
	"time"
)

var (
	testToday     = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	testYesterday = time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	testTomorrow  = time.Date(2024, 6, 16, 23, 59, 0, 0, time.UTC)
)

func TestClassifyPaidTokenWinsOverDueDate(t *testing.T) {
	table := DefaultTokenTable()

	got := Classify(table, "LIQUIDADO", testYesterday, nil, testToday)
	if got != StatusPaid {
		t.Fatalf("expected paid, got %s", got)
	}
}

func TestClassifyPaymentDateWinsOverEverything(t *testing.T) {
	table := DefaultTokenTable()
	paidAt := testToday

	got := Classify(table, "CANCELADO", testYesterday, &paidAt, testToday)
	if got != StatusPaid {
		t.Fatalf("expected paid, got %s", got)
	}
}

func TestClassifyCancelledToken(t *testing.T) {
	table := DefaultTokenTable()

	got := Classify(table, "CANCELADO", testYesterday, nil, testToday)
	if got != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}
}

func TestClassifyNoSituationUsesDueDate(t *testing.T) {
	table := DefaultTokenTable()

	if got := Classify(table, "", testYesterday, nil, testToday); got != StatusOverdue {
		t.Fatalf("expected overdue for past due date, got %s", got)
	}
	if got := Classify(table, "", testTomorrow, nil, testToday); got != StatusPending {
		t.Fatalf("expected pending for future due date, got %s", got)
	}
}

func TestClassifyDueTodayIsNotOverdue(t *testing.T) {
	table := DefaultTokenTable()
	dueToday := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	if got := Classify(table, "", dueToday, nil, testToday); got != StatusPending {
		t.Fatalf("expected pending when due today, got %s", got)
	}
}

func TestClassifyOpenTokenStillEvaluatesDueDate(t *testing.T) {
	table := DefaultTokenTable()

	if got := Classify(table, "EM ABERTO", testYesterday, nil, testToday); got != StatusOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
	if got := Classify(table, "Registrado", testTomorrow, nil, testToday); got != StatusPending {
		t.Fatalf("expected pending, got %s", got)
	}
}

func TestClassifyTokenTableVariants(t *testing.T) {
	table := DefaultTokenTable()

	cases := []struct {
		situation string
		due       time.Time
		want      Status
	}{
		{"liquidado hoje", testTomorrow, StatusPaid},
		{"  BAIXADO  ", testYesterday, StatusPaid},
		{"Pago", testYesterday, StatusPaid},
		{"baixa solicitada", testTomorrow, StatusCancelled},
		{"VENCIDO", testYesterday, StatusOverdue},
		{"a vencer", testTomorrow, StatusPending},
	}

	for _, tc := range cases {
		if got := Classify(table, tc.situation, tc.due, nil, testToday); got != tc.want {
			t.Errorf("Classify(%q, due=%s) = %s, want %s", tc.situation, tc.due.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestClassifyUnknownTokenFallsBackToDueDate(t *testing.T) {
	table := DefaultTokenTable()

	if got := Classify(table, "SITUACAO_DESCONHECIDA", testYesterday, nil, testToday); got != StatusOverdue {
		t.Fatalf("expected overdue fallback, got %s", got)
	}
	if got := Classify(table, "SITUACAO_DESCONHECIDA", testTomorrow, nil, testToday); got != StatusPending {
		t.Fatalf("expected pending fallback, got %s", got)
	}
}
