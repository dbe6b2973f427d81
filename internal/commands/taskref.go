package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	TaskNum int    // 1-based position in the task list, 0 if ID is set
	ID      string // task ID given as "#<id>"
}

func (r TaskRef) String() string {
	if r.ID != "" {
		return "#" + r.ID
	}
	return strconv.Itoa(r.TaskNum)
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses one task reference.
//
// Parsing rules:
// 1. All digits → position in the displayed list (e.g. 3)
// 2. '#' followed by a non-empty ID → task ID (e.g. #3f2a...)
// 3. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(arg string) (TaskRef, error) {
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	// Case 1: All digits → numeric reference
	if isAllDigits(arg) {
		num, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{TaskNum: num}, nil
	}

	// Case 2: #<id>
	if id, ok := strings.CutPrefix(arg, "#"); ok && id != "" {
		return TaskRef{ID: id}, nil
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
}

// ParseTaskRefs parses every argument as a task reference.
func ParseTaskRefs(args []string) ([]TaskRef, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	refs := make([]TaskRef, 0, len(args))
	for _, arg := range args {
		ref, err := ParseTaskRef(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
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
