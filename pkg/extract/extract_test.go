package extract

import "testing"

func TestParsePriorityOrder(t *testing.T) {
	record := Parse(topupDoneText)
	if record == nil || record.Topup == nil {
		t.Fatal("expected topup record")
	}
	if record.Account != nil || record.Prices != nil {
		t.Fatal("expected exactly one record kind")
	}
}

func TestParseAccountFallthrough(t *testing.T) {
	record := Parse("NAME : Robayet\nBALANCE : 10.5")
	if record == nil || record.Account == nil {
		t.Fatal("expected account record")
	}
}

func TestParseNoMatch(t *testing.T) {
	if record := Parse("just chatting"); record != nil {
		t.Fatalf("expected nil, got %+v", record)
	}
	if record := Parse("   "); record != nil {
		t.Fatalf("expected nil for blank text, got %+v", record)
	}
}

func TestCorrelationValue(t *testing.T) {
	record := Parse(topupDoneText)
	if got := record.CorrelationValue(); got != "2194747891" {
		t.Fatalf("correlation value = %q, want 2194747891", got)
	}

	var empty *Record
	if got := empty.CorrelationValue(); got != "" {
		t.Fatalf("nil record correlation value = %q, want empty", got)
	}

	account := Parse("NAME : Robayet")
	if got := account.CorrelationValue(); got != "" {
		t.Fatalf("account correlation value = %q, want empty", got)
	}
}
