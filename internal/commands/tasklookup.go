package commands

import (
	"fmt"
	"slices"

	"firetodo/internal/service"
)

// errOutOfRange is returned for a reference that names no task.
type errOutOfRange struct {
	ref  TaskRef
	gone bool
}

func (e *errOutOfRange) Error() string {
	switch {
	case e.ref.ID != "":
		return fmt.Sprintf("task not found: %s", e.ref)
	case e.gone:
		return fmt.Sprintf("task %d is no longer in the list", e.ref.TaskNum)
	default:
		return fmt.Sprintf("task number out of range: %d", e.ref.TaskNum)
	}
}

// shownList is the task list as last printed by list, for one user.
type shownList struct {
	owner string
	tasks []service.Task
}

// displayOrder sorts tasks oldest first. Ties keep the backend's order.
func displayOrder(tasks []service.Task) []service.Task {
	slices.SortStableFunc(tasks, func(a, b service.Task) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return tasks
}

// remember records tasks as the numbered list the user now sees.
func (e *Env) remember(tasks []service.Task) {
	user, ok := e.Session.User()
	if !ok {
		e.shown = shownList{}
		return
	}
	e.shown = shownList{owner: user.ID, tasks: service.CloneTasks(tasks)}
}

// liveTasks returns the current snapshot in display order.
func (e *Env) liveTasks() []service.Task {
	return displayOrder(e.Tasks.Tasks())
}

// resolve looks up refs for the signed-in user. Positions refer to the list
// as last printed; until list has run they refer to the current snapshot.
// IDs always refer to the current snapshot.
func (e *Env) resolve(refs []TaskRef) ([]service.Task, error) {
	live := e.liveTasks()
	shown := live
	if user, ok := e.Session.User(); ok && e.shown.owner == user.ID {
		shown = e.shown.tasks
	}
	return resolveTasks(shown, live, refs)
}

// resolveTasks looks up every ref before anything is written, so removing
// several tasks does not shift later positions. Positions index shown and
// must still exist in live. Duplicate refs resolve to a single task.
func resolveTasks(shown, live []service.Task, refs []TaskRef) ([]service.Task, error) {
	seen := make(map[string]bool, len(refs))
	result := make([]service.Task, 0, len(refs))
	for _, ref := range refs {
		task, err := lookupTask(shown, live, ref)
		if err != nil {
			return nil, err
		}
		if seen[task.ID] {
			continue
		}
		seen[task.ID] = true
		result = append(result, task)
	}
	return result, nil
}

func lookupTask(shown, live []service.Task, ref TaskRef) (service.Task, error) {
	id := ref.ID
	if id == "" {
		if ref.TaskNum < 1 || ref.TaskNum > len(shown) {
			return service.Task{}, &errOutOfRange{ref: ref}
		}
		id = shown[ref.TaskNum-1].ID
	}
	for _, t := range live {
		if t.ID == id {
			return t, nil
		}
	}
	return service.Task{}, &errOutOfRange{ref: ref, gone: ref.ID == ""}
}
