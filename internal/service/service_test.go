package service_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"quicktasks/internal/service"
)

func TestStatusNext_Cycle(t *testing.T) {
	s := service.StatusTodo
	want := []service.Status{service.StatusInProgress, service.StatusCompleted, service.StatusTodo}
	for i, w := range want {
		s = s.Next()
		if s != w {
			t.Fatalf("step %d: expected %q, got %q", i+1, w, s)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := service.ParseStatus(" In-Progress ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != service.StatusInProgress {
		t.Errorf("expected in-progress, got %q", s)
	}

	if _, err := service.ParseStatus("done"); err == nil {
		t.Error("expected error for unknown status")
	} else if err.Error() != "invalid status: done" {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestParsePriority(t *testing.T) {
	p, err := service.ParsePriority("HIGH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != service.PriorityHigh {
		t.Errorf("expected high, got %q", p)
	}
	if _, err := service.ParsePriority("urgent"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func sampleTasks() []service.Task {
	return []service.Task{
		{ID: "1", Title: "a", Status: service.StatusTodo, Priority: service.PriorityHigh},
		{ID: "2", Title: "b", Status: service.StatusInProgress, Priority: service.PriorityLow},
		{ID: "3", Title: "c", Status: service.StatusCompleted, Priority: service.PriorityHigh},
		{ID: "4", Title: "d", Status: service.StatusTodo, Priority: service.PriorityMedium},
	}
}

func ids(tasks []service.Task) string {
	s := ""
	for _, t := range tasks {
		s += t.ID
	}
	return s
}

func TestFilter_AllIsIdentity(t *testing.T) {
	tasks := sampleTasks()
	got := service.FilterAll.Apply(tasks)
	if ids(got) != "1234" {
		t.Errorf("expected all tasks, got %q", ids(got))
	}
}

func TestFilter_StatusAndPriority(t *testing.T) {
	tasks := sampleTasks()

	if got := ids(service.Filter("todo").Apply(tasks)); got != "14" {
		t.Errorf("todo filter: expected 14, got %q", got)
	}
	if got := ids(service.Filter("completed").Apply(tasks)); got != "3" {
		t.Errorf("completed filter: expected 3, got %q", got)
	}
	if got := ids(service.Filter("high").Apply(tasks)); got != "13" {
		t.Errorf("high filter: expected 13, got %q", got)
	}
	if got := ids(service.Filter("low").Apply(tasks)); got != "2" {
		t.Errorf("low filter: expected 2, got %q", got)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	tasks := sampleTasks()
	for _, f := range service.Filters {
		once := f.Apply(tasks)
		twice := f.Apply(once)
		if ids(once) != ids(twice) {
			t.Errorf("filter %s: expected %q, got %q", f, ids(once), ids(twice))
		}
	}
}

func TestParseFilter(t *testing.T) {
	f, err := service.ParseFilter("")
	if err != nil || f != service.FilterAll {
		t.Errorf("expected all for empty filter, got %q (%v)", f, err)
	}
	f, err = service.ParseFilter("In-Progress")
	if err != nil || f != service.Filter("in-progress") {
		t.Errorf("expected in-progress, got %q (%v)", f, err)
	}
	if _, err := service.ParseFilter("urgent"); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func TestDecodeTask_Defaults(t *testing.T) {
	now := time.Now()
	task, err := service.DecodeTask("id1", "u1", map[string]any{"title": "Buy milk"}, now, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Priority != service.PriorityMedium {
		t.Errorf("expected default priority medium, got %q", task.Priority)
	}
	if task.Status != service.StatusTodo {
		t.Errorf("expected default status todo, got %q", task.Status)
	}
	if task.Description != "" {
		t.Errorf("expected empty description, got %q", task.Description)
	}
}

func TestDecodeTask_Rejects(t *testing.T) {
	now := time.Now()
	cases := map[string]map[string]any{
		"bad status":   {"status": "done"},
		"bad priority": {"priority": "urgent"},
		"title type":   {"title": 42},
	}
	for name, doc := range cases {
		if _, err := service.DecodeTask("id1", "u1", doc, now, now); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := service.DecodeTask("id1", "", map[string]any{}, now, now); err == nil {
		t.Error("expected error for missing owner")
	}
}

func TestPatch_ApplyAndDocument(t *testing.T) {
	high := service.PriorityHigh
	p := service.Patch{Priority: &high}
	task := p.Apply(service.Task{ID: "1", Title: "x", Priority: service.PriorityLow})
	if task.Priority != service.PriorityHigh || task.Title != "x" {
		t.Errorf("unexpected task after apply: %+v", task)
	}
	doc := p.Document()
	if len(doc) != 1 || doc["priority"] != "high" {
		t.Errorf("unexpected document: %v", doc)
	}
	if !(service.Patch{}).IsEmpty() {
		t.Error("expected empty patch")
	}
}

func TestRemote_WrapsOnce(t *testing.T) {
	base := errors.New("permission denied")
	err := service.Remote("update", base)
	if err.Error() != "permission denied" {
		t.Errorf("expected message passthrough, got %q", err.Error())
	}
	if service.Remote("update", err) != err {
		t.Error("expected already wrapped error to be returned unchanged")
	}
	if !errors.Is(service.Remote("create", fmt.Errorf("x: %w", service.ErrStoreUnavailable)), service.ErrStoreUnavailable) {
		t.Error("expected store unavailable to stay classified")
	}
	var re *service.RemoteError
	if !errors.As(err, &re) || re.Op != "update" {
		t.Errorf("expected RemoteError with op update, got %#v", err)
	}
}
