package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"guideboard/guide"
	"guideboard/store"
	"guideboard/store/storemock"
)

// pngBytes contiene la firma PNG, sufficiente per il rilevamento del tipo
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewDisk(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewServer(ServerConfig{Store: st}), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func width(v float64) *float64 { return &v }

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])
	t.Logf("✅ Health: %v", body)
}

func TestUsersLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[map[string][]string](t, w)["users"])

	w = doJSON(t, h, http.MethodPost, "/api/users", CreateUserRequest{Username: " Exile <01> "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Exile01", decode[map[string]string](t, w)["username"])

	w = doJSON(t, h, http.MethodPost, "/api/users", CreateUserRequest{Username: "Exile01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/users", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/users", nil)
	assert.Equal(t, []string{"Exile01"}, decode[map[string][]string](t, w)["users"])

	w = doJSON(t, h, http.MethodGet, "/api/users/Exile01/data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[guide.Document](t, w)
	assert.Empty(t, doc.Sections)
	t.Logf("✅ Utente creato con documento vuoto")
}

func TestDocumentRoundTrip(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	_, err := st.CreateUser(context.Background(), "exile")
	require.NoError(t, err)

	doc := &guide.Document{
		Sections: []*guide.Section{
			{ID: "a", Act: guide.Act1, Title: "Clearfell", Content: "<b>go</b>", Order: 0, Width: width(320)},
			{ID: "b", Act: guide.Act1, Title: "Mud Burrow", Order: 1, Hidden: true},
		},
		Links: []*guide.Link{{ID: "L1", Color: "#e74c3c", SectionIDs: []string{"a", "b"}}},
	}

	w := doJSON(t, h, http.MethodPut, "/api/users/exile/data", doc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode[map[string]any](t, w)["success"])

	w = doJSON(t, h, http.MethodGet, "/api/users/exile/data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[guide.Document](t, w)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, "Clearfell", got.Sections[0].Title)
	require.NotNil(t, got.Sections[0].Width)
	assert.Equal(t, 320.0, *got.Sections[0].Width)
	assert.True(t, got.Sections[1].Hidden)
	require.Len(t, got.Links, 1)
	assert.Equal(t, []string{"a", "b"}, got.Links[0].SectionIDs)
}

func TestDocumentErrors(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	_, err := st.CreateUser(context.Background(), "exile")
	require.NoError(t, err)

	w := doJSON(t, h, http.MethodGet, "/api/users/ghost/data", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodPut, "/api/users/ghost/data", guide.NewDocument())
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/users/exile/data", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// collegamento verso una sezione inesistente
	bad := &guide.Document{
		Sections: []*guide.Section{{ID: "a", Act: guide.Act1, Title: "A"}},
		Links:    []*guide.Link{{ID: "L1", Color: "#e74c3c", SectionIDs: []string{"a", "zz"}}},
	}
	w = doJSON(t, h, http.MethodPut, "/api/users/exile/data", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func uploadImage(t *testing.T, h http.Handler, username, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/"+username+"/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestImageUploadAndServe(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	_, err := st.CreateUser(context.Background(), "exile")
	require.NoError(t, err)

	w := uploadImage(t, h, "exile", "Map.PNG", pngBytes)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]string](t, w)
	assert.Regexp(t, `^[a-f0-9]{32}\.png$`, body["filename"])
	assert.Equal(t, "/users/exile/images/"+body["filename"], body["url"])

	req := httptest.NewRequest(http.MethodGet, body["url"], nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())
	t.Logf("✅ Immagine servita: %s", body["url"])
}

func TestImageUploadRejections(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	_, err := st.CreateUser(context.Background(), "exile")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, uploadImage(t, h, "exile", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, uploadImage(t, h, "exile", "notes.txt", []byte("hello world")).Code)
	assert.Equal(t, http.StatusNotFound, uploadImage(t, h, "ghost", "a.png", pngBytes).Code)

	req := httptest.NewRequest(http.MethodGet, "/users/exile/images/..%2Fdata.json", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportAndImportNewUser(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()
	_, err := st.CreateUser(ctx, "exile")
	require.NoError(t, err)
	doc := &guide.Document{
		Sections: []*guide.Section{
			{ID: "a", Act: guide.Act2, Title: "A", Order: 0},
			{ID: "b", Act: guide.Act2, Title: "B", Order: 1},
		},
		Links: []*guide.Link{{ID: "L1", Color: "#3498db", SectionIDs: []string{"a", "b"}}},
	}
	require.NoError(t, st.PutDocument(ctx, "exile", doc))

	w := doJSON(t, h, http.MethodGet, "/api/users/exile/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "poe2-guide-backup-exile-")
	raw := w.Body.Bytes()
	bundle, err := guide.ParseBundle(raw)
	require.NoError(t, err)
	assert.Equal(t, guide.BundleVersion, bundle.Version)
	assert.Equal(t, guide.BundleType, bundle.Type)
	assert.Equal(t, "exile", bundle.Username)

	// il nome del bundle è già usato
	w = doJSON(t, h, http.MethodPost, "/api/import", map[string]any{"bundle": json.RawMessage(raw)})
	require.Equal(t, http.StatusConflict, w.Code)
	conflict := decode[map[string]string](t, w)
	assert.Equal(t, "username_taken", conflict["code"])
	assert.Equal(t, "exile", conflict["username"])

	w = doJSON(t, h, http.MethodPost, "/api/import", map[string]any{"bundle": json.RawMessage(raw), "username": "bad name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/import", map[string]any{"bundle": json.RawMessage(raw), "username": "exile2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "exile2", decode[map[string]any](t, w)["username"])

	got, err := st.GetDocument(ctx, "exile2")
	require.NoError(t, err)
	assert.Equal(t, doc.Sections[0].ID, got.Sections[0].ID)
	require.Len(t, got.Links, 1)
	assert.Equal(t, "L1", got.Links[0].ID)
	t.Logf("✅ Backup importato come nuovo utente con ID invariati")
}

func TestImportMerge(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()
	_, err := st.CreateUser(ctx, "exile")
	require.NoError(t, err)
	existing := &guide.Document{Sections: []*guide.Section{{ID: "a", Act: guide.Act1, Title: "Mine", Order: 0}}}
	require.NoError(t, st.PutDocument(ctx, "exile", existing))

	incoming := guide.Export(&guide.Document{
		Sections: []*guide.Section{
			{ID: "a", Act: guide.Act1, Title: "Theirs A", Order: 0},
			{ID: "b", Act: guide.Act1, Title: "Theirs B", Order: 1},
		},
		Links: []*guide.Link{
			{ID: "L1", Color: "#2ecc71", SectionIDs: []string{"a", "b"}},
			{ID: "L2", Color: "#2ecc71", SectionIDs: []string{"b", "missing"}},
		},
	}, "friend", time.Now())

	w := doJSON(t, h, http.MethodPost, "/api/users/exile/import", incoming)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[guide.MergeReport](t, w)
	assert.Equal(t, 2, report.SectionsAdded)
	assert.Equal(t, 1, report.LinksAdded)
	assert.Equal(t, []string{"L2"}, report.DroppedLinks)

	got, err := st.GetDocument(ctx, "exile")
	require.NoError(t, err)
	require.Len(t, got.Sections, 3)
	assert.Equal(t, "Mine", got.Sections[0].Title)
	assert.NotEqual(t, "a", report.IDMap["a"])

	w = doJSON(t, h, http.MethodPost, "/api/users/exile/import", map[string]string{"hello": "world"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := storemock.NewMockStore(ctrl)
	st.EXPECT().ListUsers(gomock.Any()).Return(nil, errors.New("disco pieno"))

	srv := NewServer(ServerConfig{Store: st})
	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/users", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Errore interno del server", decode[map[string]string](t, w)["error"])
}

func TestPutDocumentUsesStoreOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := storemock.NewMockStore(ctrl)
	st.EXPECT().PutDocument(gomock.Any(), "exile", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, doc *guide.Document) error {
			assert.NotNil(t, doc.Links)
			return nil
		}).Times(1)

	srv := NewServer(ServerConfig{Store: st})
	w := doJSON(t, srv.Handler(), http.MethodPut, "/api/users/exile/data",
		map[string]any{"sections": []any{}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebSocketBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.Hub().Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/users", CreateUserRequest{Username: "witch"})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventUserCreated, ev.Type)
	assert.Equal(t, "witch", ev.Username)
	assert.False(t, ev.Timestamp.IsZero())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return srv.Hub().Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	t.Logf("✅ Evento WebSocket ricevuto: %s", ev.Type)
}

func TestBroadcastDoesNotWaitForSlowClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	// client senza writePump: nessuno svuota la coda
	stalled := &wsClient{send: make(chan Event, sendBuffer)}
	hub.clients[stalled] = true

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i <= sendBuffer; i++ {
			hub.Broadcast(Event{Type: EventDocumentSaved, Username: "exile"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast bloccato da un client che non legge")
	}
	assert.Equal(t, 0, hub.Count(), "il client con la coda piena viene scollegato")

	queued := 0
	for range stalled.send {
		queued++
	}
	assert.Equal(t, sendBuffer, queued, "la coda viene chiusa dopo gli eventi già accodati")
	t.Logf("✅ Client lento scollegato dopo %d eventi", queued)
}
