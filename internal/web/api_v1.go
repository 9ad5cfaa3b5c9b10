package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
)

// maxSVGBytes bounds a single save-svg body. Boards with embedded images can
// be large, but not unbounded.
const maxSVGBytes = 256 << 20

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type statusResponse struct {
	Status int `json:"status"`
}

type saveSVGRequest struct {
	SVG string `json:"svg"`
}

type boardStatusResponse struct {
	Phase  string         `json:"phase"`
	File   string         `json:"file"`
	Mode   string         `json:"mode"`
	URL    string         `json:"url"`
	Canvas canvasResponse `json:"canvas"`
	Save   saveResponse   `json:"save"`
}

type canvasResponse struct {
	Connected bool   `json:"connected"`
	Loaded    bool   `json:"loaded"`
	LoadError string `json:"loadError,omitempty"`
	Elements  int    `json:"elements"`
}

type saveResponse struct {
	LastAttempt string `json:"lastAttempt,omitempty"`
	LastWrite   string `json:"lastWrite,omitempty"`
	Trigger     string `json:"trigger,omitempty"`
	Status      int    `json:"status"`
	Error       string `json:"error,omitempty"`
	Saves       int    `json:"saves"`
	Failures    int    `json:"failures"`
}

func apiV1RouterWithDeps(handlers APIV1Handlers, deps APIV1Deps) http.Handler {
	deps = deps.withDefaults()
	mux := http.NewServeMux()
	mux.HandleFunc("/initial-svg", func(w http.ResponseWriter, r *http.Request) { handleInitialSVG(w, r, deps) })
	mux.HandleFunc("/save-svg", func(w http.ResponseWriter, r *http.Request) { handleSaveSVG(w, r, deps) })
	mux.HandleFunc("/close", func(w http.ResponseWriter, r *http.Request) { handleClose(w, r, deps) })
	mux.HandleFunc("/close-request", func(w http.ResponseWriter, r *http.Request) { handleCloseRequest(w, r, deps) })
	mux.HandleFunc("/save", func(w http.ResponseWriter, r *http.Request) { handleSave(w, r, handlers.SaveFunc) })
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) { handleStatus(w, r, deps) })
	mux.HandleFunc("/status.png", func(w http.ResponseWriter, r *http.Request) { handleStatusPNG(w, r, deps) })
	mux.HandleFunc("/qr.png", func(w http.ResponseWriter, r *http.Request) { handleQRCode(w, r, deps) })
	if deps.Canvas != nil {
		mux.Handle("/ws", deps.Canvas)
	}
	return mux
}

func handleInitialSVG(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Board == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "board not configured")
		return
	}
	doc := deps.Board.GetInitialSVG(r.Context())
	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

func handleSaveSVG(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Board == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "board not configured")
		return
	}

	svg, err := readSVGBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIError(w, http.StatusRequestEntityTooLarge, "too_large", "document too large")
			return
		}
		writeAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: deps.Board.SaveSVG(r.Context(), svg)})
}

// readSVGBody accepts either {"svg": "..."} or the raw document.
func readSVGBody(w http.ResponseWriter, r *http.Request) (string, error) {
	body := http.MaxBytesReader(w, r.Body, maxSVGBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req saveSVGRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return "", err
		}
		return req.SVG, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func handleClose(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Board == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "board not configured")
		return
	}
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
	go deps.Board.CloseApp()
}

func handleCloseRequest(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Board == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "board not configured")
		return
	}
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
	// The listener saves over the page's socket and then closes; it must not
	// hold up this response.
	go deps.Board.RequestClose()
}

func handleSave(w http.ResponseWriter, r *http.Request, saveFunc func(ctx context.Context) error) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if saveFunc == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "save not configured")
		return
	}
	if err := saveFunc(r.Context()); err != nil {
		writeAPIError(w, http.StatusConflict, "save_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func handleStatus(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	snap := deps.Status.Snapshot()
	resp := boardStatusResponse{
		Phase: snap.Phase.String(),
		File:  snap.Board.File,
		Mode:  snap.Board.Mode,
		URL:   snap.Board.URL,
		Canvas: canvasResponse{
			Connected: snap.Canvas.Connected,
			Loaded:    snap.Canvas.Loaded,
			LoadError: snap.Canvas.LoadError,
			Elements:  snap.Canvas.Elements,
		},
		Save: saveResponse{
			Trigger:  snap.Save.Trigger,
			Status:   snap.Save.Status,
			Error:    snap.Save.Err,
			Saves:    snap.Save.Saves,
			Failures: snap.Save.Failures,
		},
	}
	if !snap.Save.LastAttempt.IsZero() {
		resp.Save.LastAttempt = snap.Save.LastAttempt.UTC().Format(timeLayout)
	}
	if !snap.Save.LastWrite.IsZero() {
		resp.Save.LastWrite = snap.Save.LastWrite.UTC().Format(timeLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func handleStatusPNG(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Card == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "status card not configured")
		return
	}
	data, err := deps.Card.PNG(deps.Status.Snapshot())
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	writePNG(w, data)
}

func handleQRCode(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.QRCode == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "qr code not configured")
		return
	}
	url := deps.Status.Snapshot().Board.URL
	if url == "" {
		writeAPIError(w, http.StatusNotFound, "no_url", "board url not known yet")
		return
	}
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 2048 {
			writeAPIError(w, http.StatusBadRequest, "invalid_size", "size must be between 1 and 2048")
			return
		}
		size = parsed
	}
	data, err := deps.QRCode(url, size)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	writePNG(w, data)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
