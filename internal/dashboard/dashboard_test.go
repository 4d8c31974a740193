package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/doctorheli/checklist/internal/daemon"
	"github.com/doctorheli/checklist/internal/supply"
	"github.com/doctorheli/checklist/internal/sync"
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)

type fakeSource struct {
	items  []supply.Item
	status sync.Status
}

func (f *fakeSource) Items() []supply.Item { return supply.CloneAll(f.items) }
func (f *fakeSource) Status() sync.Status  { return f.status }

type fakeDaemon struct{ stats daemon.Stats }

func (f fakeDaemon) Stats() daemon.Stats { return f.stats }

func testItems() []supply.Item {
	expired := fixedNow.AddDate(0, 0, -3)
	soon := fixedNow.AddDate(0, 0, 10)
	later := fixedNow.AddDate(1, 0, 0)
	return []supply.Item{
		{ID: "1", Name: "Ibuprofen", Category: supply.CategoryMedicine, IsChecked: true, ExpirationDate: &soon},
		{ID: "2", Name: "Bandages", Category: supply.CategoryConsumable, ExpirationDate: &expired},
		{ID: "3", Name: "Thermometer", Category: supply.CategoryMedicalDevice},
		{ID: "4", Name: "Insulin", Category: supply.CategoryMedicine, IsChecked: true, ExpirationDate: &later},
	}
}

func newServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(&Config{
		Port:   0,
		Host:   "127.0.0.1",
		Logger: log.New(io.Discard, "", 0),
	})
	return server
}

func newHandler(server *Server) *Handler {
	h := NewHandler(server, log.New(io.Discard, "", 0))
	h.now = func() time.Time { return fixedNow }
	return h
}

func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(testItems(), fixedNow)

	if stats.Total != 4 || stats.Checked != 2 {
		t.Errorf("Total/Checked = %d/%d, want 4/2", stats.Total, stats.Checked)
	}
	if stats.Expired != 1 || stats.ExpiringSoon != 1 {
		t.Errorf("Expired/ExpiringSoon = %d/%d, want 1/1", stats.Expired, stats.ExpiringSoon)
	}
	if stats.ByCategory[supply.CategoryMedicine] != 2 || stats.ByCategory[supply.CategoryConsumable] != 1 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
}

func TestServerStartStop(t *testing.T) {
	server := newServer(t)
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if server.Addr() == "127.0.0.1:0" {
		t.Errorf("Addr() = %s, want resolved port", server.Addr())
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestServerStopWithoutStart(t *testing.T) {
	if err := newServer(t).Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

func TestWebSocketWelcomeAndEvents(t *testing.T) {
	server := newServer(t)
	handler := newHandler(server)
	src := &fakeSource{items: testItems()}
	handler.Attach(src)
	<-server.broadcast // stats from Attach, sent before any client connects

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, server)
	defer conn.Close(websocket.StatusNormalClosure, "")

	welcome := readMessage(t, ctx, conn)
	if welcome.Type != MessageTypeStats {
		t.Fatalf("welcome type = %s, want %s", welcome.Type, MessageTypeStats)
	}
	var stats StatsData
	if err := json.Unmarshal(welcome.Data, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("welcome Total = %d, want 4", stats.Total)
	}
	if server.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", server.ClientCount())
	}

	// A deleted item is reflected in the stats that follow the event.
	src.items = src.items[:3]
	handler.Notify(sync.Event{Kind: sync.EventItemDeleted, Version: 7, ItemID: "4", ItemCount: 3, Time: fixedNow})

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeEvent {
		t.Fatalf("type = %s, want %s", msg.Type, MessageTypeEvent)
	}
	var ev sync.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.Kind != sync.EventItemDeleted || ev.Version != 7 || ev.ItemID != "4" {
		t.Errorf("event = %+v", ev)
	}

	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeStats {
		t.Fatalf("type = %s, want %s", msg.Type, MessageTypeStats)
	}
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Total != 3 || stats.Checked != 1 {
		t.Errorf("stats after delete = %+v", stats)
	}
}

func TestNotifyFailureSkipsStats(t *testing.T) {
	server := newServer(t)
	handler := newHandler(server)
	handler.Attach(&fakeSource{items: testItems()})
	<-server.broadcast // stats from Attach

	handler.Notify(sync.Event{Kind: sync.EventSyncFailed, Error: "network unreachable"})

	msg := <-server.broadcast
	if msg.Type != MessageTypeEvent {
		t.Fatalf("type = %s, want %s", msg.Type, MessageTypeEvent)
	}
	select {
	case extra := <-server.broadcast:
		t.Errorf("unexpected message after failure event: %s", extra.Type)
	default:
	}
}

func TestNotifyBeforeAttach(t *testing.T) {
	server := newServer(t)
	handler := newHandler(server)

	handler.Notify(sync.Event{Kind: sync.EventLoaded, ItemCount: 8})

	if msg := <-server.broadcast; msg.Type != MessageTypeEvent {
		t.Fatalf("type = %s, want %s", msg.Type, MessageTypeEvent)
	}
	select {
	case extra := <-server.broadcast:
		t.Errorf("unexpected stats before attach: %s", extra.Type)
	default:
	}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHTTPRoutes(t *testing.T) {
	server := newServer(t)
	handler := newHandler(server)

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()
	base := "http://" + server.Addr()

	var health map[string]any
	if code := getJSON(t, base+"/health", &health); code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("/health = %d %v", code, health)
	}

	if code := getJSON(t, base+"/status", nil); code != http.StatusServiceUnavailable {
		t.Errorf("/status before attach = %d, want 503", code)
	}

	var empty []supply.Item
	if code := getJSON(t, base+"/items", &empty); code != http.StatusOK || empty == nil || len(empty) != 0 {
		t.Errorf("/items before attach = %d %v", code, empty)
	}

	handler.Attach(&fakeSource{
		items:  testItems(),
		status: sync.Status{Configured: true, Version: 3, ItemCount: 4},
	})
	handler.AttachDaemon(fakeDaemon{stats: daemon.Stats{Refreshes: 2}})

	var items []supply.Item
	getJSON(t, base+"/items?category=Medicine", &items)
	if len(items) != 2 || items[0].Name != "Ibuprofen" {
		t.Errorf("/items?category=Medicine = %+v", items)
	}
	getJSON(t, base+"/items?q=band", &items)
	if len(items) != 1 || items[0].ID != "2" {
		t.Errorf("/items?q=band = %+v", items)
	}

	var status StatusData
	if code := getJSON(t, base+"/status", &status); code != http.StatusOK {
		t.Fatalf("/status = %d", code)
	}
	if !status.Engine.Configured || status.Engine.Version != 3 {
		t.Errorf("engine status = %+v", status.Engine)
	}
	if status.Daemon == nil || status.Daemon.Refreshes != 2 {
		t.Errorf("daemon status = %+v", status.Daemon)
	}
}
