package facility

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Cell markers for the floor view.
const (
	markFree     = "🅿️"
	markOccupied = "🚗"
)

// shellTimeLayout is the timestamp form accepted on the command line
// (no spaces, so it survives whitespace splitting).
const shellTimeLayout = "2006-01-02T15:04"

// Shell is the line-oriented operator console over the registry.
type Shell struct {
	registry  *InstrumentedRegistry
	scanner   *bufio.Scanner
	telemetry *TelemetryProvider
}

func NewShell(registry *InstrumentedRegistry, telemetry *TelemetryProvider) *Shell {
	return &Shell{
		registry:  registry,
		scanner:   bufio.NewScanner(os.Stdin),
		telemetry: telemetry,
	}
}

func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for {
		if !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	tracer := s.telemetry.Tracer()
	_, span := tracer.Start(ctx, "shell.parse_command")
	defer span.End()

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	command := parts[0]
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "enter":
		s.handleEnter(ctx, parts)
	case "leave":
		s.handleLeave(ctx, parts)
	case "subscribe":
		s.handleSubscribe(ctx, parts)
	case "reserve":
		s.handleReserve(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "floor":
		s.handleFloor(ctx, parts)
	case "history":
		s.handleHistory(parts)
	case "help":
		s.printHelp()
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		fmt.Printf("Unknown command: %s (try 'help')\n", command)
	}
}

func (s *Shell) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  enter <plate> <floor> <row> <col> [compact|electric|disabled-permit]")
	fmt.Println("  leave <plate>")
	fmt.Println("  subscribe <plate> <30|365>")
	fmt.Printf("  reserve <plate> <enter> <leave>   (times as %s)\n", shellTimeLayout)
	fmt.Println("  status")
	fmt.Println("  floor <n>")
	fmt.Println("  history <plate>")
}

func (s *Shell) handleEnter(ctx context.Context, parts []string) {
	if len(parts) < 5 || len(parts) > 6 {
		fmt.Println("Usage: enter <plate> <floor> <row> <col> [class]")
		return
	}

	floor, err1 := strconv.Atoi(parts[2])
	row, err2 := strconv.Atoi(parts[3])
	col, err3 := strconv.Atoi(parts[4])
	if err1 != nil || err2 != nil || err3 != nil {
		fmt.Println("Floor, row and column must be numbers")
		return
	}

	class := ClassNone
	if len(parts) == 6 {
		var ok bool
		class, ok = ParseVehicleClass(parts[5])
		if !ok {
			fmt.Printf("Unknown vehicle class: %s\n", parts[5])
			return
		}
	}

	// Report per-floor availability before allocating.
	counts := s.registry.AvailableByFloor()
	for f := len(counts); f >= 1; f-- {
		fmt.Printf("%dF: %d spots available\n", f, counts[f-1])
	}

	sess, err := s.registry.Enter(ctx, parts[1], floor, row, col, class)
	if err != nil && sess == nil {
		fmt.Printf("Entry refused: %s\n", err.Error())
		return
	}
	if err != nil {
		fmt.Printf("Warning: %s\n", err.Error())
	}
	fmt.Printf("Vehicle %s parked at %dF position %d\n", sess.VehicleID, sess.Floor, sess.PositionNum)
}

func (s *Shell) handleLeave(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: leave <plate>")
		return
	}

	receipt, err := s.registry.Leave(ctx, parts[1])
	if err != nil && receipt == nil {
		fmt.Printf("Error: %s\n", err.Error())
		return
	}
	if err != nil {
		fmt.Printf("Warning: %s\n", err.Error())
	}
	fmt.Printf("Vehicle %s left at %s, fee: %d won\n",
		receipt.Session.VehicleID, receipt.End.Format(TimeLayout), receipt.Fee)
}

func (s *Shell) handleSubscribe(ctx context.Context, parts []string) {
	if len(parts) != 3 {
		fmt.Println("Usage: subscribe <plate> <30|365>")
		return
	}

	planDays, err := strconv.Atoi(parts[2])
	if err != nil {
		fmt.Println("Plan must be 30 or 365")
		return
	}

	if err := s.registry.GrantSubscription(ctx, parts[1], planDays); err != nil {
		if errors.Is(err, ErrSaveFailed) {
			fmt.Printf("Warning: %s\n", err.Error())
		} else {
			fmt.Printf("Error: %s\n", err.Error())
			return
		}
	}
	fmt.Printf("Subscription granted to %s for %d days\n", parts[1], planDays)
}

func (s *Shell) handleReserve(ctx context.Context, parts []string) {
	if len(parts) != 4 {
		fmt.Println("Usage: reserve <plate> <enter> <leave>")
		return
	}

	enterAt, err := time.ParseInLocation(shellTimeLayout, parts[2], time.Local)
	if err != nil {
		fmt.Printf("Bad entry time, expected %s\n", shellTimeLayout)
		return
	}
	leaveAt, err := time.ParseInLocation(shellTimeLayout, parts[3], time.Local)
	if err != nil {
		fmt.Printf("Bad exit time, expected %s\n", shellTimeLayout)
		return
	}

	if err := s.registry.Reserve(ctx, parts[1], enterAt, leaveAt); err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		return
	}
	fmt.Printf("Reserved %s from %s to %s\n",
		parts[1], enterAt.Format(TimeLayout), leaveAt.Format(TimeLayout))
}

func (s *Shell) handleStatus(ctx context.Context) {
	statuses := s.registry.QueryAll(ctx)
	// Top floor first, matching the posted floor plans.
	for i := len(statuses) - 1; i >= 0; i-- {
		printFloor(statuses[i])
	}
}

func (s *Shell) handleFloor(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: floor <n>")
		return
	}

	floor, err := strconv.Atoi(parts[1])
	if err != nil {
		fmt.Println("Floor must be a number")
		return
	}

	status, err := s.registry.QueryFloor(ctx, floor)
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		return
	}
	printFloor(status)
}

func (s *Shell) handleHistory(parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: history <plate>")
		return
	}

	records := s.registry.History(parts[1])
	if len(records) == 0 {
		fmt.Printf("No history for %s\n", parts[1])
		return
	}

	fmt.Println("Entered\t\t\tLeft\t\t\tSpot\tFee")
	for _, rec := range records {
		fmt.Printf("%s\t%s\t%dF-%d\t%d\n",
			rec.Start.Format(TimeLayout), rec.End.Format(TimeLayout),
			rec.Floor, rec.PositionNum, rec.Fee)
	}
}

func printFloor(status FloorStatus) {
	fmt.Printf("[%dF] %d available\n", status.Floor, status.Available)
	for _, row := range status.Occupied {
		var line strings.Builder
		for _, occupied := range row {
			if occupied {
				line.WriteString(markOccupied)
			} else {
				line.WriteString(markFree)
			}
		}
		fmt.Println(line.String())
	}
	fmt.Println()
}
