package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/josh-kwaku/budgetory/internal/logging"
)

// Rates are quoted per 1 EUR, matching the live provider's default anchor.
var rates = map[string]float64{
	"USD": 1.0989,
	"GBP": 0.8681,
	"TRY": 32.4175,
	"JPY": 163.52,
	"CHF": 0.9712,
	"CAD": 1.4893,
	"AUD": 1.6621,
}

func main() {
	logging.Init("mock-rates", "info", os.Getenv("APP_ENV"))

	addr := ":8081"
	if v := os.Getenv("MOCK_RATES_ADDR"); v != "" {
		addr = v
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /latest", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("serving latest rates", "remote", r.RemoteAddr)
		writeJSON(w, map[string]any{
			"amount": 1.0,
			"base":   "EUR",
			"date":   time.Now().UTC().Format("2006-01-02"),
			"rates":  rates,
		})
	})

	slog.Info("mock rates server started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
