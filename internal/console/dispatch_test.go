package console

import "testing"

func newTestDispatcher(calls *[]string) *Dispatcher {
	d := NewDispatcher(func(line string) Reply { return say("unknown: " + line) })
	record := func(name string) HandlerFunc {
		return func(args string) Reply {
			*calls = append(*calls, name+"|"+args)
			return say(name)
		}
	}
	d.Handle(record("ip-route"), "show ip route")
	d.Handle(record("ip-brief"), "show ip int brief", "sh ip int br")
	d.Handle(record("en"), "en", "enable")
	d.Handle(record("end"), "end")
	d.Handle(record("host"), "hostname", "host")
	return d
}

func TestDispatcherLongestPrefix(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"show ip route", "ip-route|"},
		{"show ip int brief", "ip-brief|"},
		{"sh ip int br", "ip-brief|"},
		{"end", "end|"},
		{"en", "en|"},
		{"ena", "en|a"},
		{"enable", "en|"},
		{"hostname Core-1", "host|Core-1"},
		{"host Edge", "host|Edge"},
		{"SHOW IP ROUTE", "ip-route|"},
		{"  show   ip    route  ", "ip-route|"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			var calls []string
			d := newTestDispatcher(&calls)
			d.Dispatch(tt.line)
			if len(calls) != 1 || calls[0] != tt.want {
				t.Errorf("Dispatch(%q) calls = %v, want [%s]", tt.line, calls, tt.want)
			}
		})
	}
}

func TestDispatcherPreservesArgumentCase(t *testing.T) {
	var calls []string
	d := newTestDispatcher(&calls)
	d.Dispatch("HOSTNAME CoreRouter")
	if len(calls) != 1 || calls[0] != "host|CoreRouter" {
		t.Errorf("expected argument case to be preserved, got %v", calls)
	}
}

func TestDispatcherUnknownAndBlank(t *testing.T) {
	var calls []string
	d := newTestDispatcher(&calls)

	reply := d.Dispatch("frobnicate now")
	if len(reply.Lines) != 1 || reply.Lines[0] != "unknown: frobnicate now" {
		t.Errorf("unexpected unknown reply %v", reply.Lines)
	}

	reply = d.Dispatch("   ")
	if len(reply.Lines) != 0 {
		t.Errorf("expected blank line to produce no output, got %v", reply.Lines)
	}
	if len(calls) != 0 {
		t.Errorf("expected no handler calls, got %v", calls)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("\t ip   address  1.1.1.1 \n"); got != "ip address 1.1.1.1" {
		t.Errorf("Normalize = %q", got)
	}
}
