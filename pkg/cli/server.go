package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/prefaudit/prefaudit/pkg/data"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080
)

var (
	portFlag = &cli.IntFlag{
		Name:     "port",
		Usage:    "Port on which the server will listen",
		Value:    serverPortDefault,
		Required: false,
	}

	serverCmd = &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local HTTP server exposing the audit results as JSON",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			portFlag,
			debugFlag,
		},
	}
)

func cmdStartServer(c *cli.Context) error {
	cfg := getConfig(c)
	port := c.Int(portFlag.Name)
	address := fmt.Sprintf("127.0.0.1:%d", port)

	mux := makeRouter(cfg.Store)
	s := &http.Server{
		Addr:           address,
		Handler:        mux,
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("error starting server", "error", err)
		}
	}()

	slog.Info("server started", "address", fmt.Sprintf("http://%s", address))

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(store *data.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /data/stats", statsAPIHandler(store))
	mux.HandleFunc("GET /data/signals", signalsAPIHandler(store))
	mux.HandleFunc("GET /data/detections", detectionsAPIHandler(store))
	mux.HandleFunc("GET /data/severe", severeAPIHandler(store))
	mux.HandleFunc("GET /data/pair/{id}", pairAPIHandler(store))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryParamFloat(r *http.Request, name string, def float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func statsAPIHandler(store *data.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.GetStats()
		if err != nil {
			slog.Error("failed to get stats", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func signalsAPIHandler(store *data.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := store.CountDetectionsBySignal()
		if err != nil {
			slog.Error("failed to count detections", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to count detections")
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func detectionsAPIHandler(store *data.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signalType := r.URL.Query().Get("signal")
		if signalType == "" {
			writeError(w, http.StatusBadRequest, "signal query parameter is required")
			return
		}

		list, err := store.GetDetectionsBySignal(signalType, queryParamFloat(r, "min", 0))
		if err != nil {
			slog.Error("failed to get detections", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get detections")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func severeAPIHandler(store *data.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.GetSevereDetections(queryParamFloat(r, "min", minSeverityDefault))
		if err != nil {
			slog.Error("failed to get severe detections", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get severe detections")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func pairAPIHandler(store *data.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		pair, err := store.GetPair(id)
		if err != nil {
			slog.Error("failed to get pair", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get pair")
			return
		}
		if pair == nil {
			writeError(w, http.StatusNotFound, "pair not found")
			return
		}

		detections, err := store.GetDetectionsForPair(id)
		if err != nil {
			slog.Error("failed to get detections", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get detections")
			return
		}

		writeJSON(w, http.StatusOK, &PairDetail{Pair: pair, Detections: detections})
	}
}
