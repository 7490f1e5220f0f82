package cache

import "tarevity/internal/service"

// Prepend returns a transform that inserts t at the front.
func Prepend(t service.Task) func([]service.Task) []service.Task {
	return func(tasks []service.Task) []service.Task {
		out := make([]service.Task, 0, len(tasks)+1)
		out = append(out, t.Clone())
		return append(out, tasks...)
	}
}

// MapByID returns a transform that replaces the record with the given id by fn(record).
func MapByID(id string, fn func(service.Task) service.Task) func([]service.Task) []service.Task {
	return func(tasks []service.Task) []service.Task {
		for i := range tasks {
			if tasks[i].ID == id {
				tasks[i] = fn(tasks[i])
			}
		}
		return tasks
	}
}

// RemoveByID returns a transform that drops the record with the given id.
func RemoveByID(id string) func([]service.Task) []service.Task {
	return func(tasks []service.Task) []service.Task {
		out := tasks[:0]
		for _, t := range tasks {
			if t.ID != id {
				out = append(out, t)
			}
		}
		return out
	}
}

// Find returns the record with the given id.
func Find(tasks []service.Task, id string) (service.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}
