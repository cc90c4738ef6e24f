// adb smart-socket 請求編碼
package protocol

import "fmt"

// Status words returned by the adb server after every request.
const (
	StatusOkay = "OKAY"
	StatusFail = "FAIL"
)

// EncodeRequest frames an adb service request: a four digit hex length
// followed by the service string, e.g. "000chost:version".
func EncodeRequest(service string) []byte {
	return []byte(fmt.Sprintf("%04x%s", len(service), service))
}

// TransportRequest returns the host service that routes the rest of the
// connection to the given device, or to the only attached one when serial is
// empty.
func TransportRequest(serial string) string {
	if serial == "" {
		return "host:transport-any"
	}
	return "host:transport:" + serial
}
