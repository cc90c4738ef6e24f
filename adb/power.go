package adb

import (
	"errors"
	"strings"
)

var errNoPowerState = errors.New("adb: no display power state in dumpsys output")

// parseWakefulness extracts the display state from `dumpsys power`.
// Newer releases print mWakefulness=Awake|Asleep|Dreaming|Dozing, older ones
// only carry "Display Power: state=ON|OFF".
func parseWakefulness(out string) (bool, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "mWakefulness="); ok {
			return strings.EqualFold(strings.TrimSpace(v), "Awake"), nil
		}
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Display Power: state="); ok {
			return strings.EqualFold(strings.TrimSpace(v), "ON"), nil
		}
	}
	return false, errNoPowerState
}
