package commands

import (
	"testing"

	"quicktasks/internal/service"
)

func TestParseTaskRef_Position(t *testing.T) {
	ref, err := ParseTaskRef([]string{"5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Num != 5 || ref.ID != "" {
		t.Errorf("expected position 5, got %+v", ref)
	}
}

func TestParseTaskRef_IDPrefix(t *testing.T) {
	ref, err := ParseTaskRef([]string{"3f2a9c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ID != "3f2a9c" || ref.Num != 0 {
		t.Errorf("expected id prefix, got %+v", ref)
	}
}

func TestParseTaskRef_Zero_Error(t *testing.T) {
	_, err := ParseTaskRef([]string{"0"})
	if err == nil {
		t.Fatal("expected error for position 0")
	}
	expectedMsg := "task number out of range: 0"
	if err.Error() != expectedMsg {
		t.Errorf("expected %q, got %q", expectedMsg, err.Error())
	}
}

func TestParseTaskRef_ShortPrefix_Error(t *testing.T) {
	_, err := ParseTaskRef([]string{"ab"})
	if err == nil {
		t.Fatal("expected error for short prefix")
	}
	expectedMsg := "invalid task reference: ab"
	if err.Error() != expectedMsg {
		t.Errorf("expected %q, got %q", expectedMsg, err.Error())
	}
}

func TestParseTaskRef_BadChars_Error(t *testing.T) {
	_, err := ParseTaskRef([]string{"abc/def"})
	if err == nil || err.Error() != "invalid task reference: abc/def" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestParseTaskRef_NoArgs_Error(t *testing.T) {
	_, err := ParseTaskRef([]string{})
	if err != ErrTaskRefRequired {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}

func refTasks() []service.Task {
	return []service.Task{
		{ID: "abcd-1111", Title: "one"},
		{ID: "abcd-2222", Title: "two"},
		{ID: "ffff-3333", Title: "three"},
	}
}

func TestResolve_Position(t *testing.T) {
	task, err := TaskRef{Num: 2}.Resolve(refTasks())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Title != "two" {
		t.Errorf("expected two, got %q", task.Title)
	}

	if _, err := (TaskRef{Num: 4}).Resolve(refTasks()); err == nil || err.Error() != "task number out of range: 4" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestResolve_Prefix(t *testing.T) {
	task, err := TaskRef{ID: "ffff"}.Resolve(refTasks())
	if err != nil || task.Title != "three" {
		t.Errorf("expected three, got %+v (%v)", task, err)
	}

	if _, err := (TaskRef{ID: "abcd"}).Resolve(refTasks()); err == nil || err.Error() != "ambiguous task reference: abcd" {
		t.Errorf("expected ambiguity, got %v", err)
	}

	task, err = TaskRef{ID: "abcd-2222"}.Resolve(refTasks())
	if err != nil || task.Title != "two" {
		t.Errorf("expected exact match, got %+v (%v)", task, err)
	}

	if _, err := (TaskRef{ID: "zzzz"}).Resolve(refTasks()); err == nil || err.Error() != "task not found: zzzz" {
		t.Errorf("expected not found, got %v", err)
	}
}
