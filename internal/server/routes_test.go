package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const (
	holderA = "0x0000000000000000000000000000000000000001"
	holderB = "0x0000000000000000000000000000000000000002"
)

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

// createLedger makes a 1-unit-per-second ledger and returns its id.
func createLedger(t *testing.T, srv *Server) string {
	t.Helper()
	w := do(t, srv, "POST", "/api/ledgers", `{"name":"Test Token","symbol":"TST","decay_rate":"0.000000000000000001"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create ledger status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	id, _ := resp["id"].(string)
	if id == "" {
		t.Fatalf("no ledger id in response: %s", w.Body.String())
	}
	return id
}

func TestCreateLedger(t *testing.T) {
	srv, _, _ := testServer(t)

	w := do(t, srv, "POST", "/api/ledgers", `{"name":"Test Token","symbol":"TST","decay_rate":"0.5"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["symbol"] != "TST" {
		t.Errorf("symbol = %v", resp["symbol"])
	}
	if resp["decimals"] != float64(18) {
		t.Errorf("decimals = %v, want 18", resp["decimals"])
	}
	if resp["decay_rate"] != "0.5" {
		t.Errorf("decay_rate = %v, want 0.5", resp["decay_rate"])
	}
	if resp["self_address"] == "" {
		t.Error("missing self_address")
	}
}

func TestCreateLedgerValidation(t *testing.T) {
	srv, _, _ := testServer(t)

	cases := []string{
		`not json`,
		`{"symbol":"TST","decay_rate":"1"}`,
		`{"name":"T","symbol":"TST","decay_rate":"-1"}`,
		`{"name":"T","symbol":"TST","decay_rate":""}`,
	}
	for _, body := range cases {
		w := do(t, srv, "POST", "/api/ledgers", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestMintAndBalance(t *testing.T) {
	srv, _, now := testServer(t)
	id := createLedger(t, srv)

	w := do(t, srv, "POST", "/api/ledgers/"+id+"/mints",
		`{"to":"`+holderA+`","amount":"0.000000000000001"}`) // 1000 units
	if w.Code != http.StatusCreated {
		t.Fatalf("mint status = %d; body: %s", w.Code, w.Body.String())
	}

	var mint map[string]any
	json.Unmarshal(w.Body.Bytes(), &mint)
	if mint["from"] != "0x0000000000000000000000000000000000000000" {
		t.Errorf("mint from = %v, want zero address", mint["from"])
	}
	if mint["amount_units"] != "1000" {
		t.Errorf("amount_units = %v, want 1000", mint["amount_units"])
	}

	// 100 seconds later, 100 units have decayed.
	*now = 100
	w = do(t, srv, "GET", "/api/ledgers/"+id+"/balance?holder="+holderA, "")
	if w.Code != http.StatusOK {
		t.Fatalf("balance status = %d; body: %s", w.Code, w.Body.String())
	}
	var bal map[string]any
	json.Unmarshal(w.Body.Bytes(), &bal)
	if bal["balance_units"] != "900" {
		t.Errorf("balance_units = %v, want 900", bal["balance_units"])
	}

	// The read is pure: asking again yields the same value.
	w = do(t, srv, "GET", "/api/ledgers/"+id+"/balance?holder="+holderA, "")
	json.Unmarshal(w.Body.Bytes(), &bal)
	if bal["balance_units"] != "900" {
		t.Errorf("repeat balance_units = %v, want 900", bal["balance_units"])
	}
}

func TestBalanceUnknownHolderIsZero(t *testing.T) {
	srv, _, _ := testServer(t)
	id := createLedger(t, srv)

	w := do(t, srv, "GET", "/api/ledgers/"+id+"/balance?holder="+holderB, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var bal map[string]any
	json.Unmarshal(w.Body.Bytes(), &bal)
	if bal["balance_units"] != "0" {
		t.Errorf("balance_units = %v, want 0", bal["balance_units"])
	}
}

func TestBalanceValidation(t *testing.T) {
	srv, _, _ := testServer(t)
	id := createLedger(t, srv)

	if w := do(t, srv, "GET", "/api/ledgers/"+id+"/balance", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing holder: status = %d, want 400", w.Code)
	}
	if w := do(t, srv, "GET", "/api/ledgers/"+id+"/balance?holder=0x12", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad holder: status = %d, want 400", w.Code)
	}
	if w := do(t, srv, "GET", "/api/ledgers/nope/balance?holder="+holderA, ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown ledger: status = %d, want 404", w.Code)
	}
}

func TestTransferFlow(t *testing.T) {
	srv, _, now := testServer(t)
	id := createLedger(t, srv)

	do(t, srv, "POST", "/api/ledgers/"+id+"/mints",
		`{"to":"`+holderA+`","amount":"0.000000000000001"}`) // 1000 units

	*now = 200
	w := do(t, srv, "POST", "/api/ledgers/"+id+"/transfers",
		`{"from":"`+holderA+`","to":"`+holderB+`","amount":"0.0000000000000005"}`) // 500 units
	if w.Code != http.StatusCreated {
		t.Fatalf("transfer status = %d; body: %s", w.Code, w.Body.String())
	}

	var bal map[string]any
	w = do(t, srv, "GET", "/api/ledgers/"+id+"/balance?holder="+holderA, "")
	json.Unmarshal(w.Body.Bytes(), &bal)
	if bal["balance_units"] != "300" {
		t.Errorf("A balance_units = %v, want 300", bal["balance_units"])
	}
	w = do(t, srv, "GET", "/api/ledgers/"+id+"/balance?holder="+holderB, "")
	json.Unmarshal(w.Body.Bytes(), &bal)
	if bal["balance_units"] != "500" {
		t.Errorf("B balance_units = %v, want 500", bal["balance_units"])
	}
}

func TestTransferErrorStatuses(t *testing.T) {
	srv, _, _ := testServer(t)
	id := createLedger(t, srv)

	do(t, srv, "POST", "/api/ledgers/"+id+"/mints",
		`{"to":"`+holderA+`","amount":"0.000000000000001"}`)

	// Insufficient balance -> 409
	w := do(t, srv, "POST", "/api/ledgers/"+id+"/transfers",
		`{"from":"`+holderA+`","to":"`+holderB+`","amount":"5"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("insufficient: status = %d, want 409", w.Code)
	}

	// Zero-address recipient -> 400
	w = do(t, srv, "POST", "/api/ledgers/"+id+"/transfers",
		`{"from":"`+holderA+`","to":"0x0000000000000000000000000000000000000000","amount":"0"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero recipient: status = %d, want 400", w.Code)
	}

	// Unknown ledger -> 404
	w = do(t, srv, "POST", "/api/ledgers/nope/transfers",
		`{"from":"`+holderA+`","to":"`+holderB+`","amount":"1"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown ledger: status = %d, want 404", w.Code)
	}
}

func TestMintOverflowStatus(t *testing.T) {
	srv, _, _ := testServer(t)
	id := createLedger(t, srv)

	w := do(t, srv, "POST", "/api/ledgers/"+id+"/mints",
		`{"to":"`+holderA+`","amount":"18.446744073709551615"}`) // MaxUint64
	if w.Code != http.StatusCreated {
		t.Fatalf("max mint status = %d; body: %s", w.Code, w.Body.String())
	}

	w = do(t, srv, "POST", "/api/ledgers/"+id+"/mints",
		`{"to":"`+holderA+`","amount":"0.000000000000000001"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("overflow: status = %d, want 409", w.Code)
	}
}

func TestTransferLog(t *testing.T) {
	srv, _, now := testServer(t)
	id := createLedger(t, srv)

	do(t, srv, "POST", "/api/ledgers/"+id+"/mints",
		`{"to":"`+holderA+`","amount":"0.000000000000001"}`)
	*now = 10
	do(t, srv, "POST", "/api/ledgers/"+id+"/transfers",
		`{"from":"`+holderA+`","to":"`+holderB+`","amount":"0.0000000000000001"}`)

	w := do(t, srv, "GET", "/api/ledgers/"+id+"/transfers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("log status = %d; body: %s", w.Code, w.Body.String())
	}

	var log []map[string]any
	json.Unmarshal(w.Body.Bytes(), &log)
	if len(log) != 2 {
		t.Fatalf("log entries = %d, want 2", len(log))
	}
	// Newest first.
	if log[0]["to"] != holderB {
		t.Errorf("log[0].to = %v, want %s", log[0]["to"], holderB)
	}
	if log[1]["from"] != "0x0000000000000000000000000000000000000000" {
		t.Errorf("log[1].from = %v, want zero address (mint)", log[1]["from"])
	}

	if w := do(t, srv, "GET", "/api/ledgers/nope/transfers", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown ledger log: status = %d, want 404", w.Code)
	}
}

func TestGetAndListLedgers(t *testing.T) {
	srv, _, _ := testServer(t)
	id := createLedger(t, srv)

	w := do(t, srv, "GET", "/api/ledgers/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var info map[string]any
	json.Unmarshal(w.Body.Bytes(), &info)
	if info["id"] != id {
		t.Errorf("id = %v, want %s", info["id"], id)
	}

	w = do(t, srv, "GET", "/api/ledgers", "")
	var list []map[string]any
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}

	if w := do(t, srv, "GET", "/api/ledgers/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown ledger: status = %d, want 404", w.Code)
	}
}
