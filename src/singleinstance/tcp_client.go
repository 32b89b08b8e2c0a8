package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// RequestCapture asks a resident to start a region selection. If no resident
// is found, it returns delegated=false, err=nil.
func RequestCapture(ctx context.Context) (delegated bool, err error) {
	deadline := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}
	port, ok := DetectResidentPort(ctx)
	if !ok {
		return false, nil
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	resp, err := roundTrip(addr, captureRequest, deadline)
	if err != nil {
		return true, err
	}
	if resp != okResponse {
		return true, fmt.Errorf("resident rejected capture: %q", resp)
	}
	return true, nil
}

func roundTrip(addr, request string, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(request); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return bufio.NewReader(conn).ReadString('\n')
}
