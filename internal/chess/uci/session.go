package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/park285/chess-evalboard/internal/obslog"
	"go.uber.org/zap"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	stopDrainTimeout     = time.Second
	quitGracePeriod      = 200 * time.Millisecond
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
)

var (
	ErrNoScore = errors.New("engine reported no score")
	// ErrInterrupted marks a search stopped by its context after the engine
	// acknowledged the stop. The session remains usable.
	ErrInterrupted = errors.New("search interrupted")
)

// Command describes how to launch the engine binary.
type Command struct {
	Path string
	Args []string
	Env  []string
}

type Options struct {
	Threads int
	HashMB  int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

// Score is a UCI score token pair: "cp N" or "mate N", relative to the side to move.
type Score struct {
	Mate  bool
	Value int
}

// Line is the latest info line seen for one multipv slot.
type Line struct {
	Move      string
	Depth     int
	Score     Score
	Principal []string
}

type Session struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	readErr error
	done    chan struct{}
	mu      sync.Mutex
	search  sync.Mutex
	logger  *zap.Logger
}

// NewSession starts the engine and runs the uci/isready handshake. ctx bounds
// the handshake only; the process outlives it until Close.
func NewSession(ctx context.Context, command Command, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	if strings.TrimSpace(command.Path) == "" {
		return nil, fmt.Errorf("engine path required")
	}

	cmd := exec.Command(command.Path, command.Args...)
	if len(command.Env) > 0 {
		cmd.Env = command.Env
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, 64),
		done:   make(chan struct{}),
		logger: obslog.Named("uci").With(zap.Int("pid", cmd.Process.Pid)),
	}
	go s.readLoop(bufio.NewReader(stdoutPipe))

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type SearchRequest struct {
	FEN    string
	Limits Limits
}

type SearchResponse struct {
	Lines    []Line
	BestMove string
}

// Best returns the principal line, or ErrNoScore if the engine printed none.
func (r SearchResponse) Best() (Line, error) {
	if len(r.Lines) == 0 {
		return Line{}, ErrNoScore
	}
	return r.Lines[0], nil
}

func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	goTokens, err := buildGoTokens(req.Limits)
	if err != nil {
		return SearchResponse{}, err
	}

	positionCmd := buildPositionCommand(req.FEN)
	if err := s.send(positionCmd); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}
	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(req.Limits))
	defer cancel()

	lines := make(map[int]Line)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil && searchCtx.Err() != nil && ctx.Err() != nil {
			// the caller gave up; stop the search and keep the process in sync
			if stopErr := s.stopSearch(); stopErr != nil {
				return SearchResponse{}, fmt.Errorf("stop search: %w (%v)", err, stopErr)
			}
			return SearchResponse{}, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		if err != nil {
			s.logger.Warn("uci read failed",
				zap.String("position", strings.TrimSpace(positionCmd)),
				zap.String("go", goCmd),
				zap.Error(err),
			)
			return SearchResponse{}, fmt.Errorf("read line: %w", err)
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if pv, l, ok := parseInfo(line); ok {
				lines[pv] = l
			}
		case strings.HasPrefix(line, "bestmove"):
			var best string
			if parts := strings.Fields(line); len(parts) >= 2 {
				best = parts[1]
			}
			return SearchResponse{Lines: collapseLines(lines), BestMove: best}, nil
		}
	}
}

// stopSearch sends stop and consumes output up to the bestmove it triggers.
func (s *Session) stopSearch() error {
	if err := s.send("stop\n"); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopDrainTimeout)
	defer cancel()
	if err := s.awaitPrefix(ctx, "bestmove"); err != nil {
		return fmt.Errorf("wait bestmove: %w", err)
	}
	s.logger.Debug("search stopped")
	return nil
}

func buildPositionCommand(fen string) string {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + fen + "\n"
}

func validateOptions(opt Options) error {
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	return nil
}

func buildGoTokens(l Limits) ([]string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if l.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(l.NodeCap))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return args, nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		ms := l.MoveTimeMillis + 2000
		return time.Duration(ms) * time.Millisecond * 3
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 300 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 20*time.Second {
			base = 20 * time.Second
		}
		return base
	}
	return 6 * time.Second
}

// parseInfo extracts multipv, depth, score and pv from an info line.
// Lines without a score (currmove, string, hashfull) are skipped.
func parseInfo(line string) (int, Line, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return 0, Line{}, false
	}
	var (
		multipv  = 1
		out      Line
		scoreSet bool
		pvIdx    = -1
	)

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					out.Depth = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				kind := parts[i+1]
				if v, err := strconv.Atoi(parts[i+2]); err == nil {
					switch kind {
					case "cp":
						out.Score = Score{Value: v}
						scoreSet = true
					case "mate":
						out.Score = Score{Mate: true, Value: v}
						scoreSet = true
					}
				}
				i += 2
			}
		case "lowerbound", "upperbound":
			// bound scores are provisional; keep the last exact one
			return 0, Line{}, false
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}

	if !scoreSet {
		return 0, Line{}, false
	}
	if pvIdx != -1 && pvIdx < len(parts) {
		out.Principal = append([]string(nil), parts[pvIdx:]...)
		out.Move = out.Principal[0]
	}
	return multipv, out, true
}

func collapseLines(m map[int]Line) []Line {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	result := make([]Line, 0, len(keys))
	for _, k := range keys {
		result = append(result, m[k])
	}
	return result
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts {
			return err
		}
		s.logger.Debug("ensure ready retry after ucinewgame",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", newGameRetryAttempts),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

// Close asks the engine to quit, killing it if it has not exited within
// quitGracePeriod. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return nil
	}
	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "quit\n")
		s.stdin.Close()
		s.stdin = nil
	}

	cmd := s.cmd
	s.cmd = nil
	close(s.done)
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-time.After(quitGracePeriod):
		s.logger.Debug("engine ignored quit, killing")
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		err = <-done
	}
	if err != nil && isKilled(err) {
		return nil
	}
	return err
}

func isKilled(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) applyOptions(opt Options) error {
	var cmds []string
	if opt.Threads > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Threads value %d\n", opt.Threads))
	}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return io.ErrClosedPipe
	}
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) awaitPrefix(ctx context.Context, prefix string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.HasPrefix(line, prefix) {
			return nil
		}
	}
}

// readLoop owns stdout for the lifetime of the process, so a line that
// arrives after a reader gave up is still delivered to the next one.
func (s *Session) readLoop(r *bufio.Reader) {
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			select {
			case s.lines <- line:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.readErr = err
			close(s.lines)
			return
		}
	}
}

// readLine blocks for one line or until ctx is done.
func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", io.ErrClosedPipe
	case line, ok := <-s.lines:
		if !ok {
			return "", s.readErr
		}
		return line, nil
	}
}
