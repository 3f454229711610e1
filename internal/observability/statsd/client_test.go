package statsd

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" scheduler/tick ": "scheduler_tick",
		"job..processed":   "job.processed",
		".leading.":        "leading",
		"a:b|c":            "a_b_c",
	}
	for input, want := range tests {
		if got := metricName(input); got != want {
			t.Fatalf("metricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestEncodeTags(t *testing.T) {
	t.Parallel()

	global := Tags{"env": "prod", " service ": " inboxjobs "}
	local := Tags{"outcome": " advanced ", "": "ignored", "env": "stage"}

	got := encodeTags(global, local)
	want := "|#env:stage,outcome:advanced,service:inboxjobs"
	if got != want {
		t.Fatalf("encodeTags() = %q, want %q", got, want)
	}
	if got := encodeTags(nil, nil); got != "" {
		t.Fatalf("encodeTags(nil, nil) = %q, want empty", got)
	}
}

func TestDisabledClientDropsMetrics(t *testing.T) {
	t.Parallel()

	c, err := NewClient(context.Background(), Config{Address: "127.0.0.1:8125"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Enabled() {
		t.Fatal("client without Enabled should not emit")
	}
	c.Count("scheduler.invocation", 1, nil)
	if err = c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	if nilClient.Enabled() {
		t.Fatal("nil client reports enabled")
	}
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	pc, err := (&net.ListenConfig{}).ListenPacket(context.Background(), "udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	c, err := NewClient(context.Background(), Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     "inboxjobs.",
		GlobalTags: Tags{"env": "test"},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	c.Count("scheduler.invocation", 1, Tags{"outcome": "completed"})
	c.Timing("scheduler.duration", 1500*time.Microsecond, nil)

	want := []string{
		"inboxjobs.scheduler.invocation:1|c|#env:test,outcome:completed",
		"inboxjobs.scheduler.duration:1.5|ms|#env:test",
	}
	buf := make([]byte, 512)
	for _, w := range want {
		if err = pc.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatalf("deadline: %v", err)
		}
		n, _, readErr := pc.ReadFrom(buf)
		if readErr != nil {
			t.Fatalf("read: %v", readErr)
		}
		if got := strings.TrimSpace(string(buf[:n])); got != w {
			t.Fatalf("line = %q, want %q", got, w)
		}
	}
}
