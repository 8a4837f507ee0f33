//go:build !windows

package supervisor

import (
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestSystemdNotifierSendsState(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sock, Net: "unixgram"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()
	t.Setenv("NOTIFY_SOCKET", sock)

	if err := (SystemdNotifier{}).Notify("READY=1"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	buf := make([]byte, 256)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "READY=1" {
		t.Errorf("received %q, want READY=1", got)
	}
}

func TestSystemdNotifierWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	if err := (SystemdNotifier{}).Notify("READY=1"); err != nil {
		t.Errorf("Notify outside systemd: %v", err)
	}
}
