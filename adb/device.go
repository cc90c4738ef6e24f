// Package adb wraps the subset of adb interactions required to stream and
// snapshot a device screen: bootstrapping the adb server, listing devices and
// talking the adb smart-socket protocol for shell, exec and framebuffer
// services.
package adb

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cowby123/droidscreen/internal/utils"
)

// Default adb server endpoint.
const (
	DefaultServerHost = "127.0.0.1"
	DefaultServerPort = 5037
)

// Options configure how adb is reached and which device is targeted.
type Options struct {
	// Serial is the adb device identifier (e.g. from `adb devices` or `adb connect`).
	// Leave empty to use the only attached device.
	Serial string
	// ServerHost and ServerPort point to a specific adb server instance.
	// Leave empty/zero to use adb's defaults (local server on 127.0.0.1:5037).
	ServerHost string
	ServerPort int
}

func normalizeOptions(opts Options) Options {
	if opts.ServerHost == "" {
		opts.ServerHost = DefaultServerHost
	}
	if opts.ServerPort == 0 {
		opts.ServerPort = DefaultServerPort
	}
	return opts
}

// Addr returns the adb server address after defaults are applied.
func (o Options) Addr() string {
	o = normalizeOptions(o)
	return net.JoinHostPort(o.ServerHost, strconv.Itoa(o.ServerPort))
}

func buildADBArgs(opts Options, includeSerial bool, extra ...string) []string {
	args := make([]string, 0, 6+len(extra))
	if opts.ServerHost != "" {
		args = append(args, "-H", opts.ServerHost)
	}
	if opts.ServerPort != 0 {
		args = append(args, "-P", strconv.Itoa(opts.ServerPort))
	}
	if includeSerial && opts.Serial != "" {
		args = append(args, "-s", opts.Serial)
	}
	args = append(args, extra...)
	return args
}

// EnsureServer makes sure the adb server is running by invoking the adb binary.
func EnsureServer(ctx context.Context, opts Options) error {
	cmd := exec.CommandContext(ctx, "adb", buildADBArgs(opts, false, "start-server")...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("start adb server: %w (%s)", err, utils.TrimString(string(out), 200))
	}
	return nil
}

// ADBDevice 代表一個 ADB 設備
type ADBDevice struct {
	Serial string // 設備序號或 IP:port
	State  string // device, offline, unauthorized 等
}

// ListDevices 列出所有 ADB 可見的設備
// 用途：執行 `adb devices` 並解析輸出
func ListDevices(ctx context.Context, opts Options) ([]ADBDevice, error) {
	cmd := exec.CommandContext(ctx, "adb", buildADBArgs(opts, false, "devices")...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w (%s)", err, utils.TrimString(string(out), 200))
	}
	return parseDevicesOutput(string(out)), nil
}

// parseDevicesOutput 解析 `adb devices` 的輸出
// 格式範例：
// List of devices attached
// 192.168.66.102:5555	device
// emulator-5554	offline
func parseDevicesOutput(output string) []ADBDevice {
	devices := []ADBDevice{}

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		// 跳過標題與 daemon 啟動訊息
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		// 格式: <serial>\t<state>
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			devices = append(devices, ADBDevice{
				Serial: parts[0],
				State:  parts[1],
			})
		}
	}

	return devices
}
