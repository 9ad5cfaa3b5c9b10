package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/drawboard/internal/bridge"
	"github.com/rook-computer/drawboard/internal/svgdoc"
)

// Scenarios the board file can be put into.
const (
	ScenarioBlank   = "blank"
	ScenarioSample  = "sample"
	ScenarioMissing = "missing"
	ScenarioCorrupt = "corrupt"
)

const sampleScene = `{"type":"excalidraw","version":2,"source":"drawboard-simulator","elements":[` +
	`{"id":"sim-rect","type":"rectangle","x":100,"y":100,"width":240,"height":120,"angle":0,"strokeColor":"#e3e3e8","backgroundColor":"transparent","fillStyle":"solid","strokeWidth":2,"strokeStyle":"solid","roughness":1,"opacity":100,"groupIds":[],"frameId":null,"roundness":null,"seed":1,"version":1,"versionNonce":1,"isDeleted":false,"boundElements":null,"updated":1,"link":null,"locked":false},` +
	`{"id":"sim-text","type":"text","x":130,"y":145,"width":180,"height":25,"angle":0,"strokeColor":"#e3e3e8","backgroundColor":"transparent","fillStyle":"solid","strokeWidth":2,"strokeStyle":"solid","roughness":1,"opacity":100,"groupIds":[],"frameId":null,"roundness":null,"seed":2,"version":1,"versionNonce":2,"isDeleted":false,"boundElements":null,"updated":1,"link":null,"locked":false,"text":"simulated board","fontSize":20,"fontFamily":1,"textAlign":"left","verticalAlign":"top","containerId":null,"originalText":"simulated board","autoResize":true,"lineHeight":1.25}` +
	`],"appState":{"gridSize":20,"viewBackgroundColor":"#ffffff"},"files":{}}`

const emptyScene = `{"type":"excalidraw","version":2,"source":"drawboard-simulator","elements":[],"appState":{},"files":{}}`

type SimFaults struct {
	SaveFail    bool `json:"saveFail"`
	SaveDelayMS int  `json:"saveDelayMs"`
	LoadFail    bool `json:"loadFail"`
}

// SimControl owns the simulated board file and the faults injected into
// the native bridge in front of it.
type SimControl struct {
	startupScenario string
	currentScenario atomic.Value // string

	board *bridge.FileBridge

	faults struct {
		mu sync.RWMutex
		v  SimFaults
	}

	saves atomic.Int64
}

func NewSimControl(startupScenario string, board *bridge.FileBridge) *SimControl {
	c := &SimControl{startupScenario: strings.TrimSpace(startupScenario), board: board}
	if c.startupScenario == "" {
		c.startupScenario = ScenarioSample
	}
	c.currentScenario.Store(c.startupScenario)
	return c
}

func (c *SimControl) Scenario() string { return c.currentScenario.Load().(string) }

func (c *SimControl) ApplyScenario(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.startupScenario
	}
	if err := applyScenario(c.board.Path, name); err != nil {
		return err
	}
	c.currentScenario.Store(name)
	return nil
}

func (c *SimControl) Reset() error {
	c.SetFaults(SimFaults{})
	c.saves.Store(0)
	return c.ApplyScenario(c.startupScenario)
}

func (c *SimControl) Faults() SimFaults {
	c.faults.mu.RLock()
	defer c.faults.mu.RUnlock()
	return c.faults.v
}

func (c *SimControl) SetFaults(v SimFaults) {
	c.faults.mu.Lock()
	c.faults.v = v
	c.faults.mu.Unlock()
}

// GetInitialSVG, SaveSVG, CloseApp, OnCloseRequested and RequestClose make
// SimControl a bridge with faults in front of the real file bridge.
func (c *SimControl) GetInitialSVG(ctx context.Context) string {
	if c.Faults().LoadFail {
		return ""
	}
	return c.board.GetInitialSVG(ctx)
}

func (c *SimControl) SaveSVG(ctx context.Context, svg string) int {
	faults := c.Faults()
	if faults.SaveDelayMS > 0 {
		select {
		case <-ctx.Done():
			return bridge.StatusFailed
		case <-time.After(time.Duration(faults.SaveDelayMS) * time.Millisecond):
		}
	}
	if faults.SaveFail {
		return bridge.StatusFailed
	}
	status := c.board.SaveSVG(ctx, svg)
	if status == bridge.StatusOK {
		c.saves.Add(1)
	}
	return status
}

func (c *SimControl) CloseApp()                         { c.board.CloseApp() }
func (c *SimControl) OnCloseRequested(fn func()) func() { return c.board.OnCloseRequested(fn) }
func (c *SimControl) RequestClose()                     { c.board.RequestClose() }

func applyScenario(path, scenario string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	switch scenario {
	case ScenarioMissing:
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	case ScenarioCorrupt:
		return os.WriteFile(path, []byte("<html>not a board</html>\n"), 0o644)
	case ScenarioBlank:
		return writeBoard(path, emptyScene)
	case ScenarioSample:
		return writeBoard(path, sampleScene)
	default:
		return fmt.Errorf("unknown scenario %q", scenario)
	}
}

func writeBoard(path, scene string) error {
	doc, err := svgdoc.Blank([]byte(scene))
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(doc), 0o644)
}

func registerSimEndpoints(mux *http.ServeMux, control *SimControl) {
	mux.HandleFunc("/sim/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := control.Reset(); err != nil {
			writeSimError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": control.Scenario()})
	})

	mux.HandleFunc("/sim/scenario/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/sim/scenario/")
		name = strings.Trim(name, "/")
		if err := control.ApplyScenario(name); err != nil {
			writeSimError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": control.Scenario()})
	})

	mux.HandleFunc("/sim/board", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		resp := map[string]any{"path": control.board.Path, "scenario": control.Scenario(), "saves": control.saves.Load()}
		if info, err := svgdoc.Inspect(control.board.GetInitialSVG(r.Context())); err == nil {
			resp["bytes"] = info.Bytes
			resp["hasScene"] = info.HasScene
		} else {
			resp["error"] = err.Error()
		}
		writeSimJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("/sim/faults", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeSimJSON(w, http.StatusOK, control.Faults())
			return
		case http.MethodPost:
			var patch struct {
				SaveFail    *bool `json:"saveFail"`
				SaveDelayMS *int  `json:"saveDelayMs"`
				LoadFail    *bool `json:"loadFail"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeSimError(w, http.StatusBadRequest, "invalid json")
				return
			}
			current := control.Faults()
			if patch.SaveFail != nil {
				current.SaveFail = *patch.SaveFail
			}
			if patch.SaveDelayMS != nil {
				current.SaveDelayMS = *patch.SaveDelayMS
			}
			if patch.LoadFail != nil {
				current.LoadFail = *patch.LoadFail
			}
			control.SetFaults(current)
			writeSimJSON(w, http.StatusOK, current)
			return
		default:
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
