// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tarevity/internal/notify"
	"tarevity/internal/service"
)

const (
	// DateFormat is used for due dates.
	DateFormat = "2006-01-02"

	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"
)

// FormatTask formats a task line for the list command.
// Format: "{N:>4}  [{MARK}] {TITLE}" followed by "  !{priority}" and
// "  due {date}" when set.
func FormatTask(w io.Writer, num int, task service.Task) {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d  [%s] %s", num, marker(task), normalizeTitle(task.Title))
	if task.Priority == service.PriorityHigh {
		b.WriteString("  !high")
	}
	if task.DueDate != nil {
		b.WriteString("  due " + task.DueDate.Format(DateFormat))
	}
	fmt.Fprintln(w, b.String())
}

// FormatTaskDetail prints every field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "ID:        %s\n", task.ID)
	fmt.Fprintf(w, "Title:     %s\n", normalizeTitle(task.Title))
	fmt.Fprintf(w, "Status:    %s\n", task.Status)
	fmt.Fprintf(w, "Priority:  %s\n", task.Priority)
	if task.DueDate != nil {
		fmt.Fprintf(w, "Due:       %s\n", task.DueDate.Format(DateFormat))
	}
	if task.Description != nil && *task.Description != "" {
		fmt.Fprintf(w, "Notes:     %s\n", strings.ReplaceAll(*task.Description, "\n", "\n           "))
	}
}

// FormatSectionHeader formats a section header in the shell.
func FormatSectionHeader(w io.Writer, title string) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, ListSeparator)
}

// FormatNotification formats a notification line.
func FormatNotification(w io.Writer, n notify.Notification) {
	fmt.Fprintf(w, "%s  %s  %s\n", n.ID, n.TodoID, normalizeTitle(n.Message))
}

func marker(t service.Task) string {
	switch {
	case t.IsCompleted:
		return "x"
	case t.Status == service.StatusReview:
		return "r"
	}
	return " "
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
