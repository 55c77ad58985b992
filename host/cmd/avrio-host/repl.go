package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"avrio/avr8/sim"
	"avrio/core"
	"avrio/host/console"
)

// runConsole loads the dictionary and runs the interactive loop
func runConsole(ctx context.Context, client *console.Client, link *sim.Link, in io.Reader, out io.Writer) error {
	if err := client.RetrieveDictionary(ctx); err != nil {
		return fmt.Errorf("failed to retrieve dictionary: %w", err)
	}
	client.OnDebug(func(level core.DebugLevel, id core.DebugID) {
		fmt.Fprintf(out, "device debug: %s %s\n", level, id)
	})
	return newREPL(client, link, out).run(ctx, in)
}

type replFunc func(ctx context.Context, args map[string]string) error

type repl struct {
	client   *console.Client
	link     *sim.Link // nil when attached to hardware
	out      io.Writer
	commands map[string]replFunc
	usage    map[string]string
}

func newREPL(client *console.Client, link *sim.Link, out io.Writer) *repl {
	r := &repl{
		client:   client,
		link:     link,
		out:      out,
		commands: make(map[string]replFunc),
		usage:    make(map[string]string),
	}
	r.add("dict", "", "Print the device dictionary", r.cmdDict)
	r.add("raw", "", "Print the raw dictionary JSON", r.cmdRaw)
	r.add("get_capabilities", "", "Show which IO operations the device supports", r.cmdCapabilities)
	r.add("pin_set_mode", "pin=N mode=input|output", "Set pin direction", r.cmdPinSetMode)
	r.add("pin_set_pullup", "pin=N mode=none|up", "Set pin pull-up", r.cmdPinSetPullup)
	r.add("digital_write", "pin=N value=0|1", "Drive an output pin", r.cmdDigitalWrite)
	r.add("digital_read", "pin=N", "Sample a pin", r.cmdDigitalRead)
	r.add("analog_read", "pin=N", "Sample an analog channel", r.cmdAnalogRead)
	r.add("pwm_write", "pin=N duty=PERCENT", "Set a PWM duty cycle", r.cmdPwmWrite)
	r.add("serial_begin", "dev=N baud=N", "Open a device UART", r.cmdSerialBegin)
	r.add("get_time", "", "Read the device millisecond counter", r.cmdGetTime)
	r.add("set_debug_level", "level=error|info|detailed|very_detailed", "Set forwarded debug level", r.cmdSetDebugLevel)
	if link != nil {
		r.add("drive", "pin=N value=0|1", "Drive a simulated pin from outside", r.cmdDrive)
		r.add("release", "pin=N", "Stop driving a simulated pin", r.cmdRelease)
		r.add("ports", "", "Show the simulated port registers", r.cmdPorts)
		r.add("ticks", "n=N", "Deliver N timer compare interrupts at once", r.cmdTicks)
		r.add("ring", "", "Dump the simulated device's debug ring", r.cmdRing)
	}
	return r
}

func (r *repl) add(name, args, help string, fn replFunc) {
	r.commands[name] = fn
	r.usage[name] = fmt.Sprintf("%-44s %s", strings.TrimSpace(name+" "+args), help)
}

// run reads lines until quit, EOF or ctx is done
func (r *repl) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(r.out, "Enter commands (type 'help' for available commands, 'quit' to exit):")
	for {
		fmt.Fprint(r.out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}
		quit, err := r.exec(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// exec runs one console line
func (r *repl) exec(ctx context.Context, line string) (quit bool, err error) {
	words, err := shlex.Split(line)
	if err != nil {
		return false, err
	}
	if len(words) == 0 {
		return false, nil
	}

	switch words[0] {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		r.printHelp()
		return false, nil
	}

	fn, ok := r.commands[words[0]]
	if !ok {
		return false, fmt.Errorf("unknown command %q (type 'help' for available commands)", words[0])
	}
	args, err := parseArgs(words[1:])
	if err != nil {
		return false, err
	}
	return false, fn(ctx, args)
}

func (r *repl) printHelp() {
	names := maps.Keys(r.usage)
	slices.Sort(names)
	fmt.Fprintln(r.out, "\nAvailable commands:")
	for _, name := range names {
		fmt.Fprintf(r.out, "  %s\n", r.usage[name])
	}
	fmt.Fprintf(r.out, "  %-44s %s\n", "help", "Show this help message")
	fmt.Fprintf(r.out, "  %-44s %s\n\n", "quit/exit/q", "Exit the program")
}

// parseArgs splits key=value words
func parseArgs(words []string) (map[string]string, error) {
	args := make(map[string]string, len(words))
	for _, w := range words {
		k, v, ok := strings.Cut(w, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", w)
		}
		args[k] = v
	}
	return args, nil
}

func intArg(args map[string]string, key string, bits int) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %s", key)
	}
	n, err := strconv.ParseInt(v, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("argument %s: %w", key, err)
	}
	return n, nil
}

func pinArg(args map[string]string) (core.PinID, error) {
	n, err := intArg(args, "pin", 16)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 0xFF {
		return 0, fmt.Errorf("pin %d out of range", n)
	}
	return core.PinID(n), nil
}

// enumArg accepts either a value name from the device dictionary or a number
func (r *repl) enumArg(args map[string]string, key, enum string) (uint32, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %s", key)
	}
	if dict := r.client.Dictionary(); dict != nil {
		if n, ok := dict.Enumerations[enum][v]; ok {
			return uint32(n), nil
		}
	}
	n, err := strconv.ParseUint(v, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("argument %s: unknown %s %q", key, enum, v)
	}
	return uint32(n), nil
}

func (r *repl) cmdDict(ctx context.Context, args map[string]string) error {
	dict := r.client.Dictionary()
	fmt.Fprintf(r.out, "Version: %s\nBuild: %s\n\nConfig:\n", dict.Version, dict.BuildVersions)
	keys := maps.Keys(dict.Config)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(r.out, "  %s = %s\n", k, dict.Config[k])
	}
	fmt.Fprintf(r.out, "\nCommands (%d):\n", len(dict.Commands))
	for _, name := range dict.CommandNames() {
		id, _ := dict.CommandID(name)
		format, _ := dict.Format(name)
		fmt.Fprintf(r.out, "  [%d] %s %s\n", id, name, format)
	}
	fmt.Fprintf(r.out, "\nResponses (%d):\n", len(dict.Responses))
	keys = maps.Keys(dict.Responses)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(r.out, "  [%d] %s\n", dict.Responses[k], k)
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *repl) cmdRaw(ctx context.Context, args map[string]string) error {
	raw := r.client.RawDictionary()
	fmt.Fprintf(r.out, "Raw dictionary data (%d bytes):\n%s\n", len(raw), raw)
	return nil
}

func (r *repl) cmdCapabilities(ctx context.Context, args map[string]string) error {
	caps, err := r.client.Capabilities(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "capabilities: %s (0x%x)\n", caps, uint32(caps))
	return nil
}

func (r *repl) cmdPinSetMode(ctx context.Context, args map[string]string) error {
	pin, err := pinArg(args)
	if err != nil {
		return err
	}
	mode, err := r.enumArg(args, "mode", "pin_mode")
	if err != nil {
		return err
	}
	return r.client.PinSetMode(ctx, pin, core.PinMode(mode))
}

func (r *repl) cmdPinSetPullup(ctx context.Context, args map[string]string) error {
	pin, err := pinArg(args)
	if err != nil {
		return err
	}
	mode, err := r.enumArg(args, "mode", "pullup_mode")
	if err != nil {
		return err
	}
	return r.client.PinSetPullup(ctx, pin, core.PullupMode(mode))
}

func (r *repl) cmdDigitalWrite(ctx context.Context, args map[string]string) error {
	pin, err := pinArg(args)
	if err != nil {
		return err
	}
	value, err := intArg(args, "value", 8)
	if err != nil {
		return err
	}
	return r.client.DigitalWrite(ctx, pin, value != 0)
}

func (r *repl) cmdDigitalRead(ctx context.Context, args map[string]string) error {
	pin, err := pinArg(args)
	if err != nil {
		return err
	}
	value, err := r.client.DigitalRead(ctx, pin)
	if err != nil {
		return err
	}
	level := 0
	if value {
		level = 1
	}
	if r.link != nil {
		fmt.Fprintf(r.out, "pin %d (%s) = %d\n", pin, r.link.Chip.Ports.PinName(pin), level)
		return nil
	}
	fmt.Fprintf(r.out, "pin %d = %d\n", pin, level)
	return nil
}

func (r *repl) cmdAnalogRead(ctx context.Context, args map[string]string) error {
	pin, err := pinArg(args)
	if err != nil {
		return err
	}
	value, err := r.client.AnalogRead(ctx, pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "analog %d = %d\n", pin, value)
	return nil
}

func (r *repl) cmdPwmWrite(ctx context.Context, args map[string]string) error {
	pin, err := pinArg(args)
	if err != nil {
		return err
	}
	duty, err := intArg(args, "duty", 32)
	if err != nil {
		return err
	}
	return r.client.PwmWrite(ctx, pin, int32(duty))
}

func (r *repl) cmdSerialBegin(ctx context.Context, args map[string]string) error {
	dev, err := intArg(args, "dev", 8)
	if err != nil {
		return err
	}
	baud, err := intArg(args, "baud", 32)
	if err != nil {
		return err
	}
	return r.client.SerialBegin(ctx, uint8(dev), int32(baud))
}

func (r *repl) cmdGetTime(ctx context.Context, args map[string]string) error {
	ms, err := r.client.CurrentTimeMs(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "time: %d ms\n", ms)
	return nil
}

func (r *repl) cmdSetDebugLevel(ctx context.Context, args map[string]string) error {
	level, err := r.enumArg(args, "level", "debug_level")
	if err != nil {
		return err
	}
	return r.client.SetDebugLevel(ctx, core.DebugLevel(level))
}

func (r *repl) cmdDrive(ctx context.Context, args map[string]string) error {
	pin, err := pinArg(args)
	if err != nil {
		return err
	}
	value, err := intArg(args, "value", 8)
	if err != nil {
		return err
	}
	return r.link.Chip.DrivePin(pin, value != 0)
}

func (r *repl) cmdRelease(ctx context.Context, args map[string]string) error {
	pin, err := pinArg(args)
	if err != nil {
		return err
	}
	return r.link.Chip.ReleasePin(pin)
}

func (r *repl) cmdPorts(ctx context.Context, args map[string]string) error {
	for _, p := range r.link.Chip.Snapshot() {
		fmt.Fprintf(r.out, "  port %s  DDR=%08b  PORT=%08b  PIN=%08b\n", p.Name, p.DDR, p.PORT, p.PIN)
	}
	return nil
}

func (r *repl) cmdTicks(ctx context.Context, args map[string]string) error {
	n, err := intArg(args, "n", 32)
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("n must not be negative")
	}
	fired := r.link.Chip.Timer1.FireN(int(n))
	fmt.Fprintf(r.out, "delivered %d interrupts\n", fired)
	return nil
}

func (r *repl) cmdRing(ctx context.Context, args map[string]string) error {
	r.link.Ring.Dump(func(s string) {
		fmt.Fprintln(r.out, s)
	})
	return nil
}
