// Package version хранит версию сборки, заданную через -ldflags.
package version

import (
	"os"
	"strings"
)

const unknown = "v0.0.0-unknown"

// Version задается при сборке:
//
//	go build -ldflags "-X github.com/maynagashev/copypasta/internal/version.Version=v1.2.3"
var Version = ""

// String возвращает версию сборки, затем APP_VERSION из окружения, затем заглушку.
func String() string {
	if Version != "" {
		return Version
	}
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return unknown
}

// Numeric возвращает версию без префикса "v".
func Numeric() string {
	return strings.TrimPrefix(String(), "v")
}
