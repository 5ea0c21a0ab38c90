// Package ucitest provides a scripted UCI engine for tests. The engine runs
// inside the test binary itself: TestMain calls RunIfRequested, and tests
// launch os.Args[0] with the environment from Env.
package ucitest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	envMode  = "EVALBOARD_FAKE_UCI"
	envScore = "EVALBOARD_FAKE_SCORE"
	envDelay = "EVALBOARD_FAKE_DELAY"
	// envMark names a file the fake appends its pid to when it starts.
	envMark = "EVALBOARD_FAKE_MARK"
)

const (
	ModeOK    = "ok"
	ModeCrash = "crash"
	ModeHang  = "hang"
	ModeMute  = "mute"
)

// Env returns the environment that turns the test binary into a fake engine.
// score is the final "score" payload, e.g. "cp 34" or "mate -2".
func Env(mode, score string, delay time.Duration) []string {
	env := append([]string(nil), os.Environ()...)
	env = append(env, envMode+"="+mode)
	if score != "" {
		env = append(env, envScore+"="+score)
	}
	if delay > 0 {
		env = append(env, envDelay+"="+delay.String())
	}
	return env
}

// RunIfRequested serves the UCI protocol on stdio and exits when the
// process was started through Env. Otherwise it returns immediately.
func RunIfRequested() {
	mode := os.Getenv(envMode)
	if mode == "" {
		return
	}
	if mark := os.Getenv(envMark); mark != "" {
		if f, err := os.OpenFile(mark, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			fmt.Fprintln(f, os.Getpid())
			f.Close()
		}
	}
	delay, _ := time.ParseDuration(os.Getenv(envDelay))
	score := os.Getenv(envScore)
	if score == "" {
		score = "cp 34"
	}
	Serve(os.Stdin, os.Stdout, mode, score, delay)
	os.Exit(0)
}

// Serve runs the fake engine loop until quit or EOF. Searches run in the
// background so that stop and isready are answered while one is pending;
// ModeHang ignores both go and stop.
func Serve(in io.Reader, out io.Writer, mode, score string, delay time.Duration) {
	scanner := bufio.NewScanner(in)
	w := bufio.NewWriter(out)
	var mu sync.Mutex
	reply := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format+"\n", args...)
		w.Flush()
	}

	var stop chan struct{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "uci":
			if mode == ModeMute {
				continue
			}
			reply("id name ucitest")
			reply("option name Hash type spin default 16 min 1 max 1024")
			reply("uciok")
		case line == "isready":
			reply("readyok")
		case line == "quit":
			return
		case line == "stop":
			if stop != nil {
				close(stop)
				stop = nil
			}
		case strings.HasPrefix(line, "go"):
			switch mode {
			case ModeCrash:
				os.Exit(3)
			case ModeHang:
				continue
			}
			stop = make(chan struct{})
			go search(reply, score, delay, stop)
		}
	}
}

func search(reply func(string, ...any), score string, delay time.Duration, stop <-chan struct{}) {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-stop:
			reply("info depth 1 seldepth 1 score cp 12 nodes 20 pv e2e4")
			reply("bestmove e2e4")
			return
		}
	}
	reply("info depth 1 seldepth 1 score cp 12 nodes 20 pv e2e4")
	reply("info string evaluating")
	reply("info depth 8 seldepth 10 score %s nodes 4000 pv e2e4 e7e5", score)
	reply("bestmove e2e4 ponder e7e5")
}
