// Package logger provides the logging interface used across jenkins-monitor.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger defines the interface for logging throughout the application.
// Components take a Logger so that tests and the MCP stdio server can swap in
// a silent implementation.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs. Debug and info go to stdout,
// warnings and errors go to stderr.
type ConsoleLogger struct {
	component string
	debug     bool
	out       io.Writer
	errOut    io.Writer
	mu        *sync.Mutex
}

// NewConsoleLogger creates a ConsoleLogger. Debug output is dropped unless debug is set.
func NewConsoleLogger(debug bool) *ConsoleLogger {
	return &ConsoleLogger{
		debug:  debug,
		out:    os.Stdout,
		errOut: os.Stderr,
		mu:     &sync.Mutex{},
	}
}

// NewWriterLogger creates a ConsoleLogger that writes every level to w.
func NewWriterLogger(w io.Writer, debug bool) *ConsoleLogger {
	return &ConsoleLogger{
		debug:  debug,
		out:    w,
		errOut: w,
		mu:     &sync.Mutex{},
	}
}

// With returns a logger that prefixes messages with the component name.
func (c *ConsoleLogger) With(component string) *ConsoleLogger {
	child := *c
	child.component = component
	return &child
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if !c.debug {
		return
	}
	c.write(c.out, "DEBUG", msg, args...)
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.write(c.out, "INFO", msg, args...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	c.write(c.errOut, "WARN", msg, args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.write(c.errOut, "ERROR", msg, args...)
}

func (c *ConsoleLogger) write(w io.Writer, level, msg string, args ...interface{}) {
	line := fmt.Sprintf(msg, args...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.component != "" {
		fmt.Fprintf(w, "[%s] [%s] %s\n", level, c.component, line)
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", level, line)
}

// SilentLogger discards all log messages.
// Used by tests and by the MCP server, where stdout carries the protocol.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
