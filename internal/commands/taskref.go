package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"tarevity/internal/cache"
	"tarevity/internal/service"
	"tarevity/internal/session"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Num int    // 1-based position in the list output, 0 when ID is set
	ID  string // literal task ID
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the task reference in args[0].
//
// A reference made only of digits is the number printed by the list
// command. Anything else is taken as a task ID.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 || args[0] == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	ref := args[0]
	if isAllDigits(ref) {
		num, err := strconv.Atoi(ref)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
		}
		return TaskRef{Num: num}, nil
	}
	return TaskRef{ID: ref}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// errOutOfRange is returned by ResolveTask for a number past the end of the
// collection.
type errOutOfRange int

func (e errOutOfRange) Error() string { return fmt.Sprintf("task number out of range: %d", int(e)) }

// ResolveTask finds the task ref points at in the session's collection.
//
// Numbers must hit a cached task. An ID that is not cached is returned as a
// bare Task{ID} with found=false, so mutations still reach the store.
func ResolveTask(ctx context.Context, sess *session.Session, ref TaskRef) (task service.Task, found bool, err error) {
	tasks, err := sess.Cache.Fetch(ctx)
	if err != nil {
		return service.Task{}, false, err
	}

	if ref.ID != "" {
		if t, ok := cache.Find(tasks, ref.ID); ok {
			return t, true, nil
		}
		return service.Task{ID: ref.ID}, false, nil
	}

	if ref.Num < 1 || ref.Num > len(tasks) {
		return service.Task{}, false, errOutOfRange(ref.Num)
	}
	return tasks[ref.Num-1], true, nil
}

// resolveArg parses and resolves args[0], printing any error. It returns
// ok=false with the exit code on failure.
func resolveArg(ctx context.Context, sess *session.Session, args []string, errOut io.Writer) (service.Task, bool, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return service.Task{}, false, usageError(errOut, "%v", err)
	}
	task, _, err := ResolveTask(ctx, sess, ref)
	if err != nil {
		var oor errOutOfRange
		if errors.As(err, &oor) {
			return service.Task{}, false, usageError(errOut, "%v", err)
		}
		return service.Task{}, false, fail(errOut, err, "Error fetching tasks")
	}
	return task, true, 0
}
