package web

import (
	"context"
	"errors"
	"net/http"

	"quicktasks/internal/controller"
	"quicktasks/internal/identity"
	"quicktasks/internal/notify"
	"quicktasks/internal/output"
	"quicktasks/internal/service"
)

// newController builds a request-scoped controller acting for the caller.
// Notifications are recorded so failures can be answered with the same
// text the CLI prints.
func (s *Server) newController(r *http.Request, opts ...controller.Option) (*controller.Controller, *notify.Recorder) {
	u, _ := UserFromContext(r.Context())
	users := controller.UserFunc(func(context.Context) (identity.User, error) { return u, nil })
	rec := &notify.Recorder{}
	opts = append([]controller.Option{controller.WithLogger(s.logger)}, opts...)
	return controller.New(users, s.backend, s.backend, rec, opts...), rec
}

// failure answers with the last error notification, or err itself.
func failure(w http.ResponseWriter, rec *notify.Recorder, err error) {
	msg := err.Error()
	if n, ok := rec.Last(); ok && n.IsError() {
		msg = n.Description
	}
	writeError(w, statusFor(err), msg)
}

// ownedTask loads task id and answers 404 unless the caller owns it.
func (s *Server) ownedTask(w http.ResponseWriter, r *http.Request) (service.Task, bool) {
	u, _ := UserFromContext(r.Context())
	id := r.PathValue("id")
	task, err := s.backend.Get(r.Context(), id)
	if err != nil || task.UserID != u.UID {
		if err != nil && !errors.Is(err, service.ErrNotFound) {
			writeError(w, statusFor(err), err.Error())
			return service.Task{}, false
		}
		writeError(w, http.StatusNotFound, "task not found: "+id)
		return service.Task{}, false
	}
	return task, true
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := service.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, _ := UserFromContext(r.Context())
	tasks, err := s.backend.ListForOwner(r.Context(), u.UID)
	if err != nil {
		s.logger.Printf("error fetching tasks: %v", err)
		writeError(w, statusFor(err), controller.MsgFetchFailed)
		return
	}
	writeJSON(w, http.StatusOK, filter.Apply(tasks))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var fields service.Fields
	if !decodeBody(w, r, &fields) {
		return
	}

	ctrl, rec := s.newController(r)
	id, err := ctrl.Create(r.Context(), fields)
	if err != nil {
		failure(w, rec, err)
		return
	}

	task, err := s.backend.Get(r.Context(), id)
	if err != nil {
		// The task exists; answer with what is known.
		s.logger.Printf("created task %s but could not load it: %v", id, err)
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch service.Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "nothing to change")
		return
	}
	task, ok := s.ownedTask(w, r)
	if !ok {
		return
	}

	ctrl, rec := s.newController(r)
	var err error
	if patch.Status != nil && patch.Title == nil && patch.Description == nil && patch.Priority == nil {
		err = ctrl.ChangeStatus(r.Context(), task.ID, *patch.Status)
	} else {
		ctrl.OpenEditor(&task)
		err = ctrl.Update(r.Context(), patch)
	}
	if err != nil {
		failure(w, rec, err)
		return
	}

	updated, err := s.backend.Get(r.Context(), task.ID)
	if err != nil {
		s.logger.Printf("updated task %s but could not reload it: %v", task.ID, err)
		writeJSON(w, http.StatusOK, patch.Apply(task))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.ownedTask(w, r)
	if !ok {
		return
	}

	ctrl, rec := s.newController(r)
	ctrl.OpenDelete(&task)
	if err := ctrl.ConfirmDelete(r.Context()); err != nil {
		failure(w, rec, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleTasksPage renders the caller's list as text, the way the CLI
// prints it.
func (s *Server) handleTasksPage(w http.ResponseWriter, r *http.Request) {
	filter, err := service.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		filter = service.FilterAll
	}
	u, _ := UserFromContext(r.Context())
	tasks, err := s.backend.ListForOwner(r.Context(), u.UID)
	if err != nil {
		s.logger.Printf("error fetching tasks: %v", err)
		http.Error(w, controller.MsgFetchFailed, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	st := output.PlainStyles(w)
	st.FormatFilterBar(w, filter)
	shown := 0
	for i, t := range tasks {
		if filter.Match(t) {
			st.FormatTask(w, i+1, t, t.Status)
			shown++
		}
	}
	if shown == 0 {
		st.FormatEmpty(w, filter)
	}
}
