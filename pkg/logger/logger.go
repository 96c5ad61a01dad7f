// Package logger provides an asynchronous structured logger that batches
// JSON lines to daily rotated files or to stdout.
package logger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
	LevelFatal LogLevel = "FATAL"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// Interface is what engines and handlers depend on.
type Interface interface {
	Debug(message string, fields ...map[string]interface{})
	Info(message string, fields ...map[string]interface{})
	Warn(message string, fields ...map[string]interface{})
	Error(message string, err error, fields ...map[string]interface{})
}

// LogEntry is one JSON line
type LogEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"@timestamp"`
	Level       LogLevel  `json:"level"`
	Message     string    `json:"message"`
	Service     string    `json:"service"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	Hostname    string    `json:"hostname"`
	PID         int       `json:"pid"`
	ExecID      string    `json:"exec_id"`

	Caller *CallerContext `json:"caller,omitempty"`
	HTTP   *HTTPContext   `json:"http,omitempty"`
	Error  *ErrorContext  `json:"error,omitempty"`

	Fields map[string]interface{} `json:"fields,omitempty"`
}

// CallerContext points at the source line that emitted the entry
type CallerContext struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// HTTPContext contains HTTP request/response information
type HTTPContext struct {
	Method       string  `json:"method"`
	Path         string  `json:"path"`
	Query        string  `json:"query,omitempty"`
	RemoteIP     string  `json:"remote_ip"`
	StatusCode   int     `json:"status_code"`
	RequestID    string  `json:"request_id"`
	Actor        string  `json:"actor,omitempty"`
	DurationMs   float64 `json:"duration_ms"`
	RequestBody  string  `json:"request_body,omitempty"`
	ResponseBody string  `json:"response_body,omitempty"`
}

// ErrorContext contains error information
type ErrorContext struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Config holds the logger configuration
type Config struct {
	Service       string
	Version       string
	Environment   string
	LogDir        string // empty with Stdout=false falls back to ./logs
	Stdout        bool   // write to stdout instead of files
	FlushInterval time.Duration
	BatchSize     int
	BufferSize    int
	LogLevel      LogLevel
	EnableCaller  bool
	ExecutionID   string
	MaxFileSize   int64
	WriterBuffer  int
}

// sink is where batched entries end up
type sink interface {
	write(entry LogEntry) error
	flush() error
	close() error
}

// fileWriter manages the current log file with buffering
type fileWriter struct {
	mu           sync.Mutex
	file         *os.File
	writer       *bufio.Writer
	currentSize  int64
	currentDate  string
	currentIndex int
	maxSize      int64
	logDir       string
	bufferSize   int
}

// streamWriter writes to an already open stream such as stdout
type streamWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// FileLogger is the main logger instance
type FileLogger struct {
	config      Config
	logChannel  chan LogEntry
	flushReq    chan chan struct{}
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	hostname    string
	pid         int
	ExecutionID string
	out         sink
	closeOnce   sync.Once
}

// NewLogger creates a new FileLogger instance
func NewLogger(config Config) *FileLogger {
	if config.LogDir == "" {
		config.LogDir = "./logs"
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = 1 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.BufferSize == 0 {
		config.BufferSize = 10000
	}
	if config.LogLevel == "" {
		config.LogLevel = LevelInfo
	}
	if config.MaxFileSize == 0 {
		config.MaxFileSize = 10 * 1024 * 1024
	}
	if config.WriterBuffer == 0 {
		config.WriterBuffer = 64 * 1024
	}
	if config.ExecutionID == "" {
		config.ExecutionID = uuid.New().String()[0:5]
	}

	hostname, _ := os.Hostname()
	ctx, cancel := context.WithCancel(context.Background())

	var out sink
	if config.Stdout {
		out = newStreamWriter(os.Stdout, config.WriterBuffer)
	} else {
		if err := os.MkdirAll(config.LogDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		}
		out = &fileWriter{
			maxSize:    config.MaxFileSize,
			logDir:     config.LogDir,
			bufferSize: config.WriterBuffer,
		}
	}

	l := &FileLogger{
		config:      config,
		logChannel:  make(chan LogEntry, config.BufferSize),
		flushReq:    make(chan chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		hostname:    hostname,
		pid:         os.Getpid(),
		ExecutionID: config.ExecutionID,
		out:         out,
	}

	l.wg.Add(1)
	go l.processLogs()

	return l
}

func newStreamWriter(w io.Writer, size int) *streamWriter {
	return &streamWriter{w: bufio.NewWriterSize(w, size)}
}

func (sw *streamWriter) write(entry LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if _, err := sw.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	return nil
}

func (sw *streamWriter) flush() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Flush()
}

func (sw *streamWriter) close() error { return sw.flush() }

// ensureCurrentFile ensures we have a valid file for the current date.
// Callers hold fw.mu.
func (fw *fileWriter) ensureCurrentFile() error {
	currentDate := time.Now().Format("2006-01-02")
	if fw.file == nil || fw.currentDate != currentDate || fw.currentSize >= fw.maxSize {
		return fw.rotateFile(currentDate)
	}
	return nil
}

// rotateFile creates a new log file
func (fw *fileWriter) rotateFile(date string) error {
	if fw.writer != nil {
		_ = fw.writer.Flush()
		fw.writer = nil
	}
	if fw.file != nil {
		_ = fw.file.Close()
		fw.file = nil
	}

	if fw.currentDate != date {
		fw.currentIndex = 0
		fw.currentDate = date
	} else {
		fw.currentIndex++
	}

	filename := fmt.Sprintf("app-%s-%03d.log", date, fw.currentIndex)
	logFilePath := filepath.Join(fw.logDir, date, filename)

	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return fmt.Errorf("failed to create date directory: %w", err)
	}

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	fw.file = file
	fw.writer = bufio.NewWriterSize(file, fw.bufferSize)
	fw.currentSize = stat.Size()

	return nil
}

func (fw *fileWriter) write(entry LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if err := fw.ensureCurrentFile(); err != nil {
		return err
	}

	n, err := fw.writer.Write(append(data, '\n'))
	if err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	fw.currentSize += int64(n)

	return nil
}

func (fw *fileWriter) flush() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.writer != nil {
		return fw.writer.Flush()
	}
	return nil
}

func (fw *fileWriter) close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	var err error
	if fw.writer != nil {
		err = fw.writer.Flush()
		fw.writer = nil
	}
	if fw.file != nil {
		if e := fw.file.Close(); e != nil && err == nil {
			err = e
		}
		fw.file = nil
	}
	return err
}

// processLogs handles batching and writing logs
func (l *FileLogger) processLogs() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]LogEntry, 0, l.config.BatchSize)

	flush := func() {
		for _, entry := range batch {
			if err := l.out.write(entry); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write log entry: %v\n", err)
			}
		}
		if err := l.out.flush(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush log buffer: %v\n", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-l.logChannel:
			batch = append(batch, entry)
			if len(batch) >= l.config.BatchSize {
				flush()
			}

		case done := <-l.flushReq:
			for drained := false; !drained; {
				select {
				case entry := <-l.logChannel:
					batch = append(batch, entry)
				default:
					drained = true
				}
			}
			flush()
			close(done)

		case <-ticker.C:
			flush()

		case <-l.ctx.Done():
			for {
				select {
				case entry := <-l.logChannel:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (l *FileLogger) shouldLog(level LogLevel) bool {
	return levelRank[level] >= levelRank[l.config.LogLevel]
}

// createLogEntry creates a base log entry with common fields
func (l *FileLogger) createLogEntry(level LogLevel, message string, skip int) LogEntry {
	entry := LogEntry{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		Service:     l.config.Service,
		Version:     l.config.Version,
		Environment: l.config.Environment,
		Hostname:    l.hostname,
		PID:         l.pid,
		ExecID:      l.config.ExecutionID,
	}

	if l.config.EnableCaller {
		if pc, file, line, ok := runtime.Caller(skip); ok {
			entry.Caller = &CallerContext{File: file, Line: line}
			if fn := runtime.FuncForPC(pc); fn != nil {
				entry.Caller.Function = fn.Name()
			}
		}
	}

	return entry
}

// log sends a log entry to the processing channel
func (l *FileLogger) log(entry LogEntry) {
	if l.ctx.Err() != nil {
		return
	}
	select {
	case l.logChannel <- entry:
	default:
		fmt.Fprintf(os.Stderr, "Logger channel full, dropping log: %s\n", entry.Message)
	}
}

func (l *FileLogger) emit(level LogLevel, message string, err error, fields []map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}
	entry := l.createLogEntry(level, message, 3)
	if err != nil {
		entry.Error = &ErrorContext{
			Type:    fmt.Sprintf("%T", err),
			Message: err.Error(),
		}
	}
	if len(fields) > 0 {
		entry.Fields = fields[0]
	}
	l.log(entry)
}

// Debug logs a debug message
func (l *FileLogger) Debug(message string, fields ...map[string]interface{}) {
	l.emit(LevelDebug, message, nil, fields)
}

// Info logs an info message
func (l *FileLogger) Info(message string, fields ...map[string]interface{}) {
	l.emit(LevelInfo, message, nil, fields)
}

// Warn logs a warning message
func (l *FileLogger) Warn(message string, fields ...map[string]interface{}) {
	l.emit(LevelWarn, message, nil, fields)
}

// Error logs an error message
func (l *FileLogger) Error(message string, err error, fields ...map[string]interface{}) {
	l.emit(LevelError, message, err, fields)
}

// Fatal logs a fatal message
func (l *FileLogger) Fatal(message string, err error, fields ...map[string]interface{}) {
	l.emit(LevelFatal, message, err, fields)
}

// HTTP logs one request line with its HTTP context
func (l *FileLogger) HTTP(level LogLevel, message string, ctx *HTTPContext, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}
	entry := l.createLogEntry(level, message, 2)
	entry.HTTP = ctx
	entry.Fields = fields
	l.log(entry)
}

// Flush blocks until every queued entry has been written
func (l *FileLogger) Flush() error {
	done := make(chan struct{})
	select {
	case l.flushReq <- done:
		<-done
	case <-l.ctx.Done():
	}
	return nil
}

// Close gracefully shuts down the logger
func (l *FileLogger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.cancel()
		l.wg.Wait()
		err = l.out.close()
	})
	return err
}

// Nop discards everything. Used by tests and by tools that log nowhere.
type Nop struct{}

// NewNop returns a logger that drops every entry
func NewNop() Nop { return Nop{} }

func (Nop) Debug(string, ...map[string]interface{})        {}
func (Nop) Info(string, ...map[string]interface{})         {}
func (Nop) Warn(string, ...map[string]interface{})         {}
func (Nop) Error(string, error, ...map[string]interface{}) {}
