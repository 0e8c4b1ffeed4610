package rules

import "testing"

func TestPatch_Apply(t *testing.T) {
	t.Run("assign_queue", func(t *testing.T) {
		var p Patch
		errs := p.Apply([]Action{{Type: ActionAssignQueue, Value: "8"}})
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if p.QueueID == nil || *p.QueueID != 8 {
			t.Errorf("QueueID = %v, want 8", p.QueueID)
		}
	})

	t.Run("assign_resolver also sets status", func(t *testing.T) {
		var p Patch
		errs := p.Apply([]Action{{Type: ActionAssignResolver, Value: "3"}})
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if p.AssignedToID == nil || *p.AssignedToID != 3 {
			t.Errorf("AssignedToID = %v, want 3", p.AssignedToID)
		}
		if p.Status == nil || *p.Status != StatusInProgress {
			t.Errorf("Status = %v, want %s", p.Status, StatusInProgress)
		}
	})

	t.Run("later action wins", func(t *testing.T) {
		var p Patch
		errs := p.Apply([]Action{
			{Type: ActionSetPriority, Value: "high"},
			{Type: ActionSetPriority, Value: "low"},
		})
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if p.Priority == nil || *p.Priority != "low" {
			t.Errorf("Priority = %v, want low", p.Priority)
		}
	})

	t.Run("explicit status after resolver assignment wins", func(t *testing.T) {
		var p Patch
		errs := p.Apply([]Action{
			{Type: ActionAssignResolver, Value: "3"},
			{Type: ActionSetStatus, Value: "pending"},
		})
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if p.Status == nil || *p.Status != "pending" {
			t.Errorf("Status = %v, want pending", p.Status)
		}
	})

	t.Run("malformed id fails only itself", func(t *testing.T) {
		var p Patch
		errs := p.Apply([]Action{
			{Type: ActionAssignQueue, Value: "abc"},
			{Type: ActionSetPriority, Value: "high"},
		})
		if len(errs) != 1 {
			t.Fatalf("expected 1 error, got %v", errs)
		}
		if p.QueueID != nil {
			t.Error("malformed assign_queue should not set QueueID")
		}
		if p.Priority == nil || *p.Priority != "high" {
			t.Error("remaining actions should still apply")
		}
	})

	t.Run("unknown action type fails only itself", func(t *testing.T) {
		var p Patch
		errs := p.Apply([]Action{
			{Type: "send_email", Value: "x"},
			{Type: ActionSetStatus, Value: "open"},
		})
		if len(errs) != 1 {
			t.Fatalf("expected 1 error, got %v", errs)
		}
		if p.Status == nil || *p.Status != "open" {
			t.Error("remaining actions should still apply")
		}
	})
}

func TestPatch_Zero(t *testing.T) {
	var p Patch
	if !p.Zero() {
		t.Error("fresh patch should be zero")
	}
	p.Apply([]Action{{Type: ActionSetStatus, Value: "open"}})
	if p.Zero() {
		t.Error("patch with a status should not be zero")
	}
}

func TestDecodeActions(t *testing.T) {
	actions, err := DecodeActions([]byte(`[{"type":"assign_queue","value":"8"},{"type":"set_priority","value":"high"}]`))
	if err != nil {
		t.Fatalf("DecodeActions: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].Type != ActionAssignQueue || actions[0].Value != "8" {
		t.Errorf("unexpected action %+v", actions[0])
	}

	if _, err := DecodeActions([]byte(`[{"type":`)); err == nil {
		t.Error("expected error for malformed actions")
	}

	empty, err := DecodeActions(nil)
	if err != nil || empty != nil {
		t.Errorf("empty input should decode to nil, got %v, %v", empty, err)
	}
}

func TestKnownActionKind(t *testing.T) {
	for _, k := range []ActionKind{ActionAssignQueue, ActionAssignResolver, ActionSetPriority, ActionSetStatus} {
		if !KnownActionKind(k) {
			t.Errorf("%s should be known", k)
		}
	}
	if KnownActionKind("send_email") {
		t.Error("send_email should be unknown")
	}
}
