// Command mock-backend runs a deterministic Mavi backend for demos and
// conformance testing. It serves every endpoint of the video API and
// streams chat responses in the production wire format: back-to-back
// "data:"-prefixed JSON envelopes, deliberately split at awkward byte
// boundaries to exercise client-side reassembly.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
//
// Special chat triggers:
//
//	a message containing "quota" streams an error envelope mid-answer
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	srv := &http.Server{Addr: ":" + port, Handler: NewHandler()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// NewHandler builds the mock backend routes.
func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", handleUpload)
	mux.HandleFunc("GET /searchDB", handleSearchDB)
	mux.HandleFunc("POST /searchAI", handleSearchAI)
	mux.HandleFunc("POST /searchVideoFragment", handleSearchFragment)
	mux.HandleFunc("POST /chat", handleChat)
	mux.HandleFunc("POST /subTranscription", handleSubTranscription)
	mux.HandleFunc("GET /getTranscription", handleGetTranscription)
	mux.HandleFunc("DELETE /delete", handleDelete)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return requireAPIKey(mux)
}

// requireAPIKey rejects requests without an Authorization header, the
// way the production backend does.
func requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":"0401","msg":"invalid api key"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Canned data ---

var mockVideos = []map[string]any{
	{"videoNo": "mavi_video_1", "videoName": "olympicRacer.mp4", "videoStatus": "PARSE", "uploadTime": 1717000000000},
	{"videoNo": "mavi_video_2", "videoName": "cityDrive.mp4", "videoStatus": "PARSE", "uploadTime": 1717000100000},
}

func writeEnvelope(w http.ResponseWriter, data any) {
	resp := map[string]any{"code": "0000", "msg": "success"}
	if data != nil {
		resp["data"] = data
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"code":%q,"msg":%q}`, code, msg)
}

// --- Handlers ---

func handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "0400", "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "0400", "missing file field")
		return
	}
	file.Close()

	writeEnvelope(w, map[string]any{
		"videoNo":     "mavi_video_new",
		"videoName":   header.Filename,
		"videoStatus": "UNPARSE",
		"uploadTime":  time.Now().UnixMilli(),
	})
}

func handleSearchDB(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("videoStatus")
	var matches []map[string]any
	for _, v := range mockVideos {
		if status == "" || v["videoStatus"] == status {
			matches = append(matches, v)
		}
	}
	writeEnvelope(w, map[string]any{"videoData": matches})
}

func handleSearchAI(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SearchValue string `json:"searchValue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SearchValue == "" {
		writeError(w, http.StatusBadRequest, "0400", "searchValue is required")
		return
	}
	writeEnvelope(w, map[string]any{"videos": mockVideos})
}

func handleSearchFragment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoNos    []string `json:"videoNos"`
		SearchValue string   `json:"searchValue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SearchValue == "" {
		writeError(w, http.StatusBadRequest, "0400", "searchValue is required")
		return
	}
	writeEnvelope(w, map[string]any{"videos": []map[string]any{
		{
			"videoNo": "mavi_video_1", "videoName": "olympicRacer.mp4",
			"videoStatus": "PARSE", "uploadTime": 1717000000000,
			"fragmentStartTime": 12.5, "fragmentEndTime": 18.0, "duration": 95.0,
		},
	}})
}

func handleSubTranscription(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoNo string `json:"videoNo"`
		Type    string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VideoNo == "" {
		writeError(w, http.StatusBadRequest, "0400", "videoNo is required")
		return
	}
	writeEnvelope(w, map[string]any{"taskNo": "task_mock_1"})
}

func handleGetTranscription(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("taskNo") == "" {
		writeError(w, http.StatusBadRequest, "0400", "taskNo is required")
		return
	}
	writeEnvelope(w, map[string]any{
		"taskNo": r.URL.Query().Get("taskNo"),
		"status": "FINISH",
		"transcriptions": []map[string]any{
			{"id": 1, "startTime": 0.0, "endTime": 3.2, "content": "The race begins."},
			{"id": 2, "startTime": 3.2, "endTime": 7.8, "content": "Runners round the first bend."},
		},
	})
}

func handleDelete(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil || len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "0400", "request body must be a JSON array of video IDs")
		return
	}
	writeEnvelope(w, nil)
}

// --- Chat ---

func handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoNos []string `json:"videoNos"`
		Message  string   `json:"message"`
		Stream   bool     `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		writeError(w, http.StatusBadRequest, "0400", "message is required")
		return
	}

	if body.Stream {
		handleChatStream(w, body.Message)
		return
	}

	writeEnvelope(w, map[string]any{"msg": answerFor(body.Message)})
}

func answerFor(message string) string {
	if strings.Contains(strings.ToLower(message), "count from 1 to 5") {
		return "1, 2, 3, 4, 5"
	}
	return "The video shows an athlete sprinting down the home straight."
}

// handleChatStream writes the answer as a sequence of data:-prefixed
// envelopes, flushed in pieces that split envelopes mid-JSON and
// multibyte runes mid-codepoint, exactly the fragmentation a client
// decoder has to cope with.
func handleChatStream(w http.ResponseWriter, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "0500", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	var wire []byte
	for _, word := range strings.SplitAfter(answerFor(message), " ") {
		wire = append(wire, envelopeBytes("0000", "", word)...)
	}
	if strings.Contains(strings.ToLower(message), "quota") {
		wire = append(wire, []byte(`data: {"code":"5001","msg":"quota exceeded"}`)...)
	}

	// Flush in fixed-size pieces that ignore envelope boundaries.
	const pieceSize = 7
	for i := 0; i < len(wire); i += pieceSize {
		end := i + pieceSize
		if end > len(wire) {
			end = len(wire)
		}
		w.Write(wire[i:end])
		flusher.Flush()
	}
}

func envelopeBytes(code, msg, text string) []byte {
	env := map[string]any{
		"code": code,
		"msg":  msg,
		"data": map[string]any{"msg": text},
	}
	data, _ := json.Marshal(env)
	return append([]byte("data: "), data...)
}
