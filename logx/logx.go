// Package logx is the process-wide tagged logger every actor (block
// tree, vote index, schedule engine, finality gadget, slot driver)
// writes through.
package logx

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

var (
	lumberjackLogger = &lumberjack.Logger{
		Filename: logFilename(),
		MaxSize:  envInt("LOGFILE_MAX_SIZE_MB", 100),
		MaxAge:   envInt("LOGFILE_MAX_AGE_DAYS", 14),
	}

	logger = log.New(lumberjackLogger, "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

func logFilename() string {
	if f := os.Getenv("LOGFILE"); f != "" {
		return "./logs/" + f
	}
	return "./logs/consensuscore.log"
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func Info(tag, msg string) {
	logger.Printf("[%s] %s", tag, msg)
}

func Warn(tag, msg string) {
	logger.Printf("[%s][WARN] %s", tag, msg)
}

func Error(tag, msg string) {
	logger.Printf("[%s][ERROR] %s", tag, msg)
}

func Infof(tag, format string, args ...interface{}) {
	Info(tag, fmt.Sprintf(format, args...))
}

func Warnf(tag, format string, args ...interface{}) {
	Warn(tag, fmt.Sprintf(format, args...))
}

func Errorf(tag, format string, args ...interface{}) {
	Error(tag, fmt.Sprintf(format, args...))
}
