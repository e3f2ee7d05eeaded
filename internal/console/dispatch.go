package console

import "strings"

// HandlerFunc handles one command; args is the remainder of the line after the matched key
type HandlerFunc func(args string) Reply

// Command binds a key (one or more lower-case words) to a handler
type Command struct {
	Key     string
	Handler HandlerFunc
}

// Dispatcher matches a command line against its keys.
// The longest key that is a case-insensitive prefix of the line wins, so
// abbreviations such as "sh ip int br" are explicit keys rather than derived.
type Dispatcher struct {
	commands []Command
	unknown  func(line string) Reply
}

// NewDispatcher creates a dispatcher; unknown builds the reply for unmatched input
func NewDispatcher(unknown func(line string) Reply) *Dispatcher {
	return &Dispatcher{unknown: unknown}
}

// Handle registers handler under every given key
func (d *Dispatcher) Handle(handler HandlerFunc, keys ...string) {
	for _, key := range keys {
		d.commands = append(d.commands, Command{Key: strings.ToLower(key), Handler: handler})
	}
}

// Lookup returns the command whose key is the longest prefix of line.
// line must already be normalized.
func (d *Dispatcher) Lookup(line string) (Command, string, bool) {
	var (
		best  Command
		found bool
	)
	for _, cmd := range d.commands {
		if len(cmd.Key) > len(line) || !strings.EqualFold(line[:len(cmd.Key)], cmd.Key) {
			continue
		}
		if !found || len(cmd.Key) > len(best.Key) {
			best, found = cmd, true
		}
	}
	if !found {
		return Command{}, "", false
	}
	return best, strings.TrimSpace(line[len(best.Key):]), true
}

// Dispatch normalizes line and runs the matching handler.
// Blank input yields an empty reply.
func (d *Dispatcher) Dispatch(line string) Reply {
	line = Normalize(line)
	if line == "" {
		return Reply{}
	}

	cmd, args, ok := d.Lookup(line)
	if !ok {
		return d.unknown(line)
	}
	return cmd.Handler(args)
}

// Normalize trims the line and collapses runs of whitespace to a single space
func Normalize(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
