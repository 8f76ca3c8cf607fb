package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTelegram_PushSendsChatIDAndText(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	n := NewTelegram("TESTTOKEN", srv.URL, zerolog.Nop())
	if err := n.Push(context.Background(), "12345", "Please send the amount"); err != nil {
		t.Fatalf("Push error: %v", err)
	}

	if !strings.Contains(gotPath, "botTESTTOKEN/sendMessage") {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != "12345" {
		t.Fatalf("chat_id = %q", gotBody["chat_id"])
	}
	if gotBody["text"] != "Please send the amount" {
		t.Fatalf("text = %q", gotBody["text"])
	}
}

func TestTelegram_PushReportsAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegram("TESTTOKEN", srv.URL, zerolog.Nop())
	if err := n.Push(context.Background(), "12345", "hi"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestExplorerLink(t *testing.T) {
	got := ExplorerLink("https://explorer.aptoslabs.com/", "0xabc")
	want := "https://explorer.aptoslabs.com/txn/0xabc?network=mainnet"
	if got != want {
		t.Fatalf("ExplorerLink = %q; want %q", got, want)
	}
}

func TestNop_PushIsSilent(t *testing.T) {
	if err := (Nop{}).Push(context.Background(), "s", "t"); err != nil {
		t.Fatal(err)
	}
}
