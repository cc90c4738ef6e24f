// 解析 adb 伺服器回應的狀態與長度前綴字串
package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrUnexpectedStatus is returned when the server answers with neither OKAY nor FAIL.
var ErrUnexpectedStatus = errors.New("adb: unexpected status")

// FailError carries the message the adb server attached to a FAIL status.
type FailError struct {
	Message string
}

func (e *FailError) Error() string {
	return "adb: request failed: " + e.Message
}

// ReadStatus consumes one status word. It returns nil for OKAY and a
// *FailError holding the server's message for FAIL.
func ReadStatus(r io.Reader) error {
	var status [4]byte
	if _, err := io.ReadFull(r, status[:]); err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	switch string(status[:]) {
	case StatusOkay:
		return nil
	case StatusFail:
		msg, err := ReadHexString(r)
		if err != nil {
			return fmt.Errorf("read fail message: %w", err)
		}
		return &FailError{Message: msg}
	default:
		return fmt.Errorf("%w %q", ErrUnexpectedStatus, status[:])
	}
}

// ReadHexString reads a four digit hex length followed by that many bytes.
func ReadHexString(r io.Reader) (string, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(string(hdr[:]), 16, 16)
	if err != nil {
		return "", fmt.Errorf("parse length %q: %w", hdr[:], err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
