package handlers

import (
	"net/http"

	"github.com/maynagashev/copypasta/internal/version"
	"github.com/maynagashev/copypasta/models"
)

// Ping - проверка, что сервер отвечает.
func Ping(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("pong"))
}

// Health - проверка состояния для балансировщиков.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// BuildVersion возвращает версию сборки сервера.
func BuildVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.BuildInfo{Version: version.String(), Numeric: version.Numeric()})
}
