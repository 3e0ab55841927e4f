// Command fetchproxy exposes the webgrab client over HTTP: it fetches a
// requested URL with retry and bounded concurrency, optionally applies a
// CSS selector to the body, and serves Prometheus metrics.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webgrab/webgrab/pkg/client"
	"github.com/webgrab/webgrab/pkg/extract"
	"github.com/webgrab/webgrab/pkg/logging"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	port := getEnv("PORT", "8080")

	cfg := client.DefaultConfig()
	cfg.Timeout = time.Duration(getEnvInt("TIMEOUT_MS", 5000)) * time.Millisecond
	cfg.MaxRetries = getEnvInt("MAX_RETRIES", 3)
	cfg.MaxConcurrent = getEnvInt("MAX_CONCURRENT", 0)

	fetcher, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create client")
	}
	defer fetcher.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/fetch", fetchHandler(fetcher))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Dur("timeout", cfg.Timeout).
		Int("max_retries", cfg.MaxRetries).
		Int("max_concurrent", cfg.MaxConcurrent).
		Msg("Starting fetch proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// fetchHandler serves /fetch?url=U[&selector=S[&attr=A]]. Without a
// selector it proxies the fetched body through; with one it answers a
// JSON array of the extracted values.
func fetchHandler(fetcher *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" {
			http.Error(w, "missing url parameter", http.StatusBadRequest)
			return
		}

		body, err := fetcher.Fetch(r.Context(), target)
		if err != nil {
			writeFetchError(w, err)
			return
		}

		selector := r.URL.Query().Get("selector")
		if selector == "" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
			return
		}

		var values []string
		if attr := r.URL.Query().Get("attr"); attr != "" {
			values, err = fetcher.SelectAttr(body, selector, attr)
		} else {
			values, err = fetcher.Select(body, selector)
		}
		if err != nil {
			var selErr *extract.SelectorError
			if errors.As(err, &selErr) {
				http.Error(w, selErr.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if values == nil {
			values = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(values)
	}
}

// writeFetchError maps client errors onto proxy status codes: upstream
// HTTP failures keep their status, everything else is a bad gateway.
func writeFetchError(w http.ResponseWriter, err error) {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		http.Error(w, err.Error(), statusErr.StatusCode)
		return
	}
	http.Error(w, fmt.Sprintf("fetch failed: %v", err), http.StatusBadGateway)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
