package engine

import (
	"testing"

	"webhook-bot/internal/model"
)

func TestReconcileConditions(t *testing.T) {
	existing := []model.Condition{
		{ID: 1, PayloadID: 5, Field: "a", Operator: "==", Value: "1", Position: 0},
		{ID: 2, PayloadID: 5, Field: "b", Operator: "==", Value: "2", Position: 1},
		{ID: 3, PayloadID: 5, Field: "c", Operator: "==", Value: "3", Position: 2},
	}
	submitted := []model.Condition{
		{ID: 2, Field: "b", Operator: "!=", Value: "20"},
		{Field: "d", Operator: ">", Value: "4"},
		{ID: 99, Field: "stolen", Operator: "==", Value: "x"},
	}

	diff := ReconcileConditions(existing, submitted, []int64{3})

	if len(diff.Delete) != 1 || diff.Delete[0] != 1 {
		t.Fatalf("expected delete [1], got %v", diff.Delete)
	}
	if len(diff.Update) != 1 {
		t.Fatalf("expected 1 update, got %d", len(diff.Update))
	}
	up := diff.Update[0]
	if up.ID != 2 || up.Operator != "!=" || up.Value != "20" || up.Position != 1 || up.PayloadID != 5 {
		t.Fatalf("unexpected update %+v", up)
	}
	if len(diff.Insert) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(diff.Insert))
	}
	if diff.Insert[0].Field != "d" || diff.Insert[0].Position != 3 {
		t.Fatalf("unexpected insert %+v", diff.Insert[0])
	}
}

func TestReconcileConditions_EmptySubmissionDeletesAll(t *testing.T) {
	existing := []model.Condition{{ID: 1}, {ID: 2}}
	diff := ReconcileConditions(existing, nil, nil)
	if len(diff.Delete) != 2 {
		t.Fatalf("expected all existing deleted, got %v", diff.Delete)
	}
	if len(diff.Insert) != 0 || len(diff.Update) != 0 {
		t.Fatalf("expected no writes, got %+v", diff)
	}
}

func TestReconcileConditions_InsertsKeepOrder(t *testing.T) {
	diff := ReconcileConditions(nil, []model.Condition{{Field: "x"}, {Field: "y"}, {Field: "z"}}, nil)
	for i, c := range diff.Insert {
		if c.Position != i {
			t.Fatalf("insert %d has position %d", i, c.Position)
		}
	}
	if diff.Empty() {
		t.Fatal("diff should not be empty")
	}
	if !ReconcileConditions(nil, nil, nil).Empty() {
		t.Fatal("diff of nothing should be empty")
	}
}
