package explorer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleResponse = `{
	"status": "1",
	"message": "OK",
	"result": [
		{"from": "0xAbCd111111111111111111111111111111111111", "to": "0xFee0222222222222222222222222222222222222", "value": "10000", "timeStamp": "1716000030", "hash": "0xaaa"},
		{"from": "0x9999999999999999999999999999999999999999", "to": "0xFee0222222222222222222222222222222222222", "value": "2500", "timeStamp": "1716000000", "hash": "0xbbb"}
	]
}`

func TestClient_RecentTransfers(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "0xcontract", "0xFee0222222222222222222222222222222222222", 100)
	transfers, err := c.RecentTransfers(context.Background())
	if err != nil {
		t.Fatalf("RecentTransfers returned error: %v", err)
	}

	if len(transfers) != 2 {
		t.Fatalf("got %d transfers, want 2", len(transfers))
	}
	first := transfers[0]
	if first.Value != 10000 || first.Timestamp != 1716000030 || first.TxHash != "0xaaa" {
		t.Errorf("first transfer = %+v, want value 10000 ts 1716000030 hash 0xaaa", first)
	}

	want := map[string]string{
		"chainid":         "80002",
		"module":          "account",
		"action":          "tokentx",
		"contractaddress": "0xcontract",
		"address":         "0xFee0222222222222222222222222222222222222",
		"page":            "1",
		"offset":          "10",
		"sort":            "desc",
		"apikey":          "test-key",
	}
	for key, val := range want {
		if gotQuery[key] != val {
			t.Errorf("query %s = %q, want %q", key, gotQuery[key], val)
		}
	}
}

func TestClient_RecentTransfers_NoTransactionsYet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Etherscan returns a string result when there is nothing to list.
		w.Write([]byte(`{"status": "0", "message": "No transactions found", "result": "No transactions found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "0xcontract", "0xservice", 100)
	transfers, err := c.RecentTransfers(context.Background())
	if err != nil {
		t.Fatalf("empty result should not be an error, got %v", err)
	}
	if len(transfers) != 0 {
		t.Errorf("got %d transfers, want 0", len(transfers))
	}
}

func TestClient_RecentTransfers_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "0xcontract", "0xservice", 100)
	if _, err := c.RecentTransfers(context.Background()); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestClient_RecentTransfers_MalformedValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "1", "message": "OK", "result": [{"from": "0xa", "to": "0xb", "value": "not-a-number", "timeStamp": "1716000000", "hash": "0xccc"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "0xcontract", "0xservice", 100)
	if _, err := c.RecentTransfers(context.Background()); err == nil {
		t.Fatal("expected error on malformed value")
	}
}
