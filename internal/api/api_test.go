package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dokzlo13/lightboard/internal/api"
	"github.com/dokzlo13/lightboard/internal/board"
	"github.com/dokzlo13/lightboard/internal/db"
	"github.com/dokzlo13/lightboard/internal/eventbus"
	"github.com/dokzlo13/lightboard/internal/hue"
	"github.com/dokzlo13/lightboard/internal/ledger"
	"github.com/dokzlo13/lightboard/internal/preset"
	"github.com/dokzlo13/lightboard/internal/storage"
)

type stubLights struct {
	err error
}

func (s *stubLights) Lights() []hue.LightState {
	return []hue.LightState{{Slot: 1, Name: "Dining Room 1", Bound: true}, {Slot: 2, Name: "Dining Room 2", Bound: true}}
}
func (s *stubLights) SetPower(context.Context, int, bool) error { return s.err }
func (s *stubLights) SetColor(context.Context, int, string) error { return s.err }
func (s *stubLights) SetBrightness(context.Context, int, int) error { return s.err }
func (s *stubLights) Reset(context.Context) error { return s.err }

type testEnv struct {
	srv    *httptest.Server
	api    *api.Server
	board  *board.Board
	lights *stubLights
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "api.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	bus := eventbus.NewWithConfig(2, 50)
	t.Cleanup(func() { bus.Close(context.Background()) })

	lights := &stubLights{}
	store := preset.NewStore(preset.NewRecords(storage.NewStore(database.DB)))
	history := ledger.New(database.DB)
	b := board.New(lights, store, bus, history)

	server := api.New(b, history, bus)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.Close()
		srv.Close()
	})

	return &testEnv{srv: srv, api: server, board: b, lights: lights}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.do(t, http.MethodGet, "/health", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("/health = %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/ready", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/ready before names = %d, want 503", resp.StatusCode)
	}

	env.board.LoadNames(context.Background(), nil)
	if resp := env.do(t, http.MethodGet, "/ready", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("/ready after names = %d, want 200", resp.StatusCode)
	}
}

func TestLightCommands(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"color", http.MethodPut, "/api/lights/1/color", `{"color":"#BE3D20"}`, http.StatusOK},
		{"empty_color", http.MethodPut, "/api/lights/1/color", `{"color":""}`, http.StatusOK},
		{"bad_color", http.MethodPut, "/api/lights/1/color", `{"color":"nope"}`, http.StatusBadRequest},
		{"missing_color", http.MethodPut, "/api/lights/1/color", `{}`, http.StatusBadRequest},
		{"brightness", http.MethodPut, "/api/lights/2/brightness", `{"brightness":42}`, http.StatusOK},
		{"bad_brightness", http.MethodPut, "/api/lights/2/brightness", `{"brightness":142}`, http.StatusBadRequest},
		{"power", http.MethodPut, "/api/lights/2/power", `{"on":false}`, http.StatusOK},
		{"bad_json", http.MethodPut, "/api/lights/2/power", `{"on":`, http.StatusBadRequest},
		{"unknown_slot", http.MethodPut, "/api/lights/3/power", `{"on":true}`, http.StatusNotFound},
		{"non_numeric_slot", http.MethodPut, "/api/lights/x/power", `{"on":true}`, http.StatusNotFound},
		{"all_on", http.MethodPost, "/api/lights/on", "", http.StatusOK},
		{"all_off", http.MethodPost, "/api/lights/off", "", http.StatusOK},
		{"reset", http.MethodPost, "/api/lights/reset", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestLightState(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPut, "/api/lights/1/color", `{"color":"#112233"}`)
	env.do(t, http.MethodPut, "/api/lights/2/brightness", `{"brightness":10}`)

	state := decode[[]board.SlotState](t, env.do(t, http.MethodGet, "/api/lights", ""))
	if len(state) != 2 || state[0].Color != "#112233" || state[1].Brightness != 10 {
		t.Errorf("state = %+v", state)
	}
}

func TestUnreachableBridge(t *testing.T) {
	env := newTestEnv(t)
	env.lights.err = hue.ErrUnreachable

	resp := env.do(t, http.MethodPost, "/api/lights/on", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["error"] == "" {
		t.Error("missing error message")
	}
}

func TestPresetLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.board.LoadNames(context.Background(), []string{"Acid Arrow"})

	env.do(t, http.MethodPut, "/api/lights/1/color", `{"color":"#FF0000"}`)

	resp := env.do(t, http.MethodPost, "/api/presets", `{"name":"Foo"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	saved := decode[preset.Preset](t, resp)
	if saved.Name != "Foo" || saved.Color1 != "#FF0000" || saved.Brightness1 != 100 {
		t.Errorf("saved = %+v", saved)
	}

	resp = env.do(t, http.MethodPost, "/api/presets", "")
	generated := decode[preset.Preset](t, resp)
	if generated.Name != "Acid Arrow" {
		t.Errorf("generated name = %q", generated.Name)
	}

	list := decode[[]preset.Preset](t, env.do(t, http.MethodGet, "/api/presets", ""))
	if len(list) != 2 || list[0].Name != "Foo" || list[1].Name != "Acid Arrow" {
		t.Errorf("list = %+v", list)
	}

	if resp := env.do(t, http.MethodGet, "/api/presets/Acid%20Arrow", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, "/api/presets/Foo/apply", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("apply status = %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, "/api/presets/Missing/apply", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("apply missing status = %d", resp.StatusCode)
	}

	if resp := env.do(t, http.MethodDelete, "/api/presets/Acid%20Arrow", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodDelete, "/api/presets/Acid%20Arrow", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}

	names := decode[preset.PoolSnapshot](t, env.do(t, http.MethodGet, "/api/names", ""))
	if len(names.Available) != 1 || names.Available[0] != "Acid Arrow" {
		t.Errorf("names = %+v", names)
	}

	history := decode[[]ledger.Entry](t, env.do(t, http.MethodGet, "/api/history?limit=100", ""))
	if len(history) == 0 {
		t.Fatal("history is empty")
	}
	for _, e := range history {
		if e.Source != board.SourceAPI && e.Source != board.SourceUnknown {
			t.Errorf("entry source = %q", e.Source)
		}
	}

	if resp := env.do(t, http.MethodGet, "/api/history?limit=abc", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", resp.StatusCode)
	}
}

func TestPresetNamesInPath(t *testing.T) {
	tests := []struct {
		name   string
		preset string
	}{
		{"percent", "50%41"},
		{"slash", "A/B"},
		{"ampersand", "Rock & Roll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			body, _ := json.Marshal(map[string]string{"name": tt.preset})
			if resp := env.do(t, http.MethodPost, "/api/presets", string(body)); resp.StatusCode != http.StatusCreated {
				t.Fatalf("save status = %d", resp.StatusCode)
			}

			path := "/api/presets/" + url.PathEscape(tt.preset)
			resp := env.do(t, http.MethodGet, path, "")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("GET %s status = %d", path, resp.StatusCode)
			}
			if got := decode[preset.Preset](t, resp); got.Name != tt.preset {
				t.Errorf("name = %q, want %q", got.Name, tt.preset)
			}
			if resp := env.do(t, http.MethodPost, path+"/apply", ""); resp.StatusCode != http.StatusOK {
				t.Errorf("apply status = %d", resp.StatusCode)
			}
			if resp := env.do(t, http.MethodDelete, path, ""); resp.StatusCode != http.StatusNoContent {
				t.Errorf("delete status = %d", resp.StatusCode)
			}
		})
	}
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The subscription is registered after the upgrade; retry until an event arrives.
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	received := make(chan eventbus.Event, 1)
	go func() {
		var ev eventbus.Event
		if err := conn.ReadJSON(&ev); err == nil {
			received <- ev
		}
	}()

	deadline := time.After(3 * time.Second)
	for {
		env.do(t, http.MethodPut, "/api/lights/1/power", `{"on":true}`)
		select {
		case ev := <-received:
			if ev.Type != eventbus.EventTypeLightChanged {
				t.Errorf("event type = %q", ev.Type)
			}
			if ev.Data["source"] != board.SourceAPI {
				t.Errorf("event source = %v", ev.Data["source"])
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("no event received")
		}
	}
}
