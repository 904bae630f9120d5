package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"LeafScan/internal/controller"
	"LeafScan/internal/display"
	"LeafScan/internal/journal"
	"LeafScan/internal/session"
)

// History lists journaled predictions
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Console is the interactive presentation layer: it forwards commands to the
// controller and re-renders whenever the session changes.
type Console struct {
	controller *controller.Controller
	history    History
	logger     *slog.Logger
	endpoint   string
	sessionID  string

	in  io.Reader
	out *syncWriter

	pending sync.WaitGroup
}

// syncWriter serialises writes from the prompt loop and from observers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// New creates a Console. history may be nil.
func New(ctrl *controller.Controller, history History, logger *slog.Logger, endpoint, sessionID string, in io.Reader, out io.Writer) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Console{
		controller: ctrl,
		history:    history,
		logger:     logger,
		endpoint:   endpoint,
		sessionID:  sessionID,
		in:         in,
		out:        &syncWriter{w: out},
	}
	ctrl.Observe(c.onChange)
	return c
}

// onChange re-renders for the phases that matter to the user.
func (c *Console) onChange(snap session.Snapshot) {
	switch snap.Phase {
	case session.PhaseSucceeded, session.PhaseFailed, session.PhaseSubmitting:
		fmt.Fprintln(c.out)
		display.Render(c.out, snap)
	}
}

// commands lists the verbs handleCommand understands.
var commands = map[string]bool{
	"/quit":    true,
	"/exit":    true,
	"/open":    true,
	"/predict": true,
	"/reset":   true,
	"/status":  true,
	"/history": true,
	"/help":    true,
}

// expand turns a bare path into /open. Absolute paths also start with a
// slash, so anything that is not a known command but names a file counts.
func expand(input string) string {
	fields := strings.Fields(input)
	if len(fields) == 0 || commands[fields[0]] {
		return input
	}
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		return "/open " + input
	}
	if !strings.HasPrefix(input, "/") {
		return "/open " + input
	}
	return input
}

// handleCommand handles a console command. It reports whether the console should exit.
func (c *Console) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/open":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /open <path>")
		}
		path := strings.TrimSpace(strings.TrimPrefix(cmd, parts[0]))
		img, err := session.LoadImage(path)
		if err != nil {
			return false, err
		}
		if err := c.controller.SetImage(img); err != nil {
			return false, err
		}
		display.Render(c.out, c.controller.Read())
		return false, nil

	case "/predict":
		switch c.controller.Read().Phase {
		case session.PhaseSubmitting:
			fmt.Fprintln(c.out, "A prediction is already running.")
			return false, nil
		case session.PhaseIdle:
			return false, fmt.Errorf("no image selected; use /open <path> first")
		case session.PhaseSucceeded, session.PhaseFailed:
			return false, fmt.Errorf("select an image again with /open to run a new prediction")
		}
		c.pending.Add(1)
		done := c.controller.SubmitAsync(ctx)
		go func() {
			defer c.pending.Done()
			<-done
		}()
		return false, nil

	case "/reset":
		if c.controller.Read().Phase == session.PhaseSubmitting {
			fmt.Fprintln(c.out, "Reset is disabled while a prediction is running.")
			return false, nil
		}
		c.controller.Reset()
		display.Render(c.out, c.controller.Read())
		return false, nil

	case "/status":
		display.Render(c.out, c.controller.Read())
		return false, nil

	case "/history":
		if c.history == nil {
			fmt.Fprintln(c.out, "The prediction journal is not available.")
			return false, nil
		}
		limit := 10
		if len(parts) > 1 {
			n, err := strconv.Atoi(parts[1])
			if err != nil || n <= 0 {
				return false, fmt.Errorf("usage: /history [count]")
			}
			limit = n
		}
		entries, err := c.history.Recent(ctx, limit)
		if err != nil {
			return false, fmt.Errorf("failed to load history: %w", err)
		}
		PrintHistory(c.out, entries)
		return false, nil

	case "/help":
		fmt.Fprintln(c.out, "Available commands:")
		fmt.Fprintln(c.out, "  /open <path>     - Select a potato leaf image")
		fmt.Fprintln(c.out, "  /predict         - Send the selected image to the classifier")
		fmt.Fprintln(c.out, "  /reset           - Clear the current selection and result")
		fmt.Fprintln(c.out, "  /status          - Show the current session")
		fmt.Fprintln(c.out, "  /history [count] - Show recent predictions")
		fmt.Fprintln(c.out, "  /quit, /exit     - Exit")
		fmt.Fprintln(c.out, "  /help            - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q, type /help for commands", parts[0])
	}
}

// Run reads commands until EOF or /quit, then waits for any running prediction.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "=== Potato Disease Detector ===")
	fmt.Fprintf(c.out, "Session:    %s\n", c.sessionID)
	fmt.Fprintf(c.out, "Classifier: %s\n", c.endpoint)
	fmt.Fprintln(c.out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(c.out)

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		input = expand(input)

		shouldQuit, err := c.handleCommand(ctx, input)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			c.logger.Warn("command error", "command", input, "error", err)
		}
		if shouldQuit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	c.pending.Wait()
	fmt.Fprintln(c.out, "Goodbye!")
	return nil
}

// PrintHistory writes journal entries as a table.
func PrintHistory(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No predictions recorded yet.")
		return
	}
	for _, e := range entries {
		detail := e.Kind
		if e.Kind == "success" {
			detail = fmt.Sprintf("%s %s", display.Style(e.Class).Label, display.Percent(e.Confidence))
		}
		fmt.Fprintf(w, "%s  %-24s %-28s %dms\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Image, detail, e.DurationMS)
	}
}
