package capture

import "fmt"

// StartCommand is the adb service that makes the device stream raw H.264 at
// the given size on the socket it was sent on.
func StartCommand(width, height int) string {
	return fmt.Sprintf("shell:stty raw; screenrecord --output-format=h264 --size %dx%d -", width, height)
}
