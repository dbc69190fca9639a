package descriptions

import (
	"fmt"
	"sort"
	"strings"
)

// Change is one interface whose description differs from the plan.
type Change struct {
	Interface string
	Old       string
	New       string
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %q -> %q", c.Interface, c.Old, c.New)
}

// Diff compares planned descriptions with those read from the device.
// A nil current map means the device output could not be parsed, so every
// planned interface is changed. Interfaces the device does not have are
// returned in missing and produce no change.
func Diff(planned, current map[string]string) (changes []Change, missing []string) {
	byKey := make(map[string]string, len(current))
	names := make(map[string]string, len(current))
	for name, desc := range current {
		k := interfaceKey(name)
		byKey[k] = desc
		names[k] = name
	}

	for _, intf := range sortedKeys(planned) {
		want := planned[intf]
		if current == nil {
			changes = append(changes, Change{Interface: intf, New: want})
			continue
		}
		k := interfaceKey(intf)
		have, ok := byKey[k]
		if !ok {
			missing = append(missing, intf)
			continue
		}
		if have == want {
			continue
		}
		changes = append(changes, Change{Interface: names[k], Old: have, New: want})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Interface < changes[j].Interface
	})
	return changes, missing
}

// Commands renders the configuration lines that apply changes.
func Commands(changes []Change) []string {
	cmds := make([]string, 0, 2*len(changes))
	for _, c := range changes {
		cmds = append(cmds, "interface "+c.Interface)
		if c.New == "" {
			cmds = append(cmds, " no description")
		} else {
			cmds = append(cmds, " description "+c.New)
		}
	}
	return cmds
}

// RollbackCommands renders the lines that restore the descriptions
// changes replaced.
func RollbackCommands(changes []Change) []string {
	undo := make([]Change, len(changes))
	for i, c := range changes {
		undo[i] = Change{Interface: c.Interface, Old: c.New, New: c.Old}
	}
	return Commands(undo)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
