package api

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"Dauction/internal/auction"
	"Dauction/internal/devnet"
	"Dauction/internal/events"
	"Dauction/internal/pricing"
	"Dauction/internal/storage"
	"Dauction/internal/types"
)

var (
	operator = types.MustAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	escrow   = types.MustAddress("0x90f79bf6eb2c4f870365e785982e1f101e93b906")
	seller   = types.MustAddress("0x15d34aaf54267db7d7c367839aaf71a00a2c6a65")
	alice    = types.MustAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	bob      = types.MustAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")

	nft     = types.MustAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	usd     = types.MustAddress("0xe7f1725e7734ce288f8367e1bb143e90bb3f0512")
	weth    = types.MustAddress("0x9fe46736679d2d9a65f0992f2272de9f3c7fa6e0")
	ethFeed = types.MustAddress("0xdc64a140aa3e981100a9beca4e685f962f0cf6c9")
)

const t0 = 1_700_000_000

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = time.Unix(unix, 0)
}

type testNode struct {
	server *Server
	clock  *testClock
	net    *devnet.Registry
	log    *events.Log
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bus := events.NewBus()
	log, err := events.OpenLog(db, bus)
	if err != nil {
		t.Fatalf("failed to open event log: %v", err)
	}

	clock := &testClock{}
	clock.Set(t0)

	oracle := pricing.NewStaticOracle(clock.Now)
	oracle.Set(ethFeed, big.NewInt(2000_00000000), 8)

	tokens, err := auction.NewTokenRegistry(usd, []auction.AcceptedToken{
		{Token: usd, Decimals: 18},
		{Token: weth, Feed: ethFeed, Decimals: 18},
	})
	if err != nil {
		t.Fatalf("failed to build token registry: %v", err)
	}

	net := devnet.NewRegistry()
	net.AddCollection(nft)
	net.AddToken(usd, 18)
	net.AddToken(weth, 18)

	m, err := auction.New(db, tokens, pricing.NewNormalizer(oracle, 0, clock.Now), net, net, log,
		auction.Params{Self: escrow, Operator: operator},
		auction.WithClock(clock),
	)
	if err != nil {
		t.Fatalf("failed to create machine: %v", err)
	}

	server := New(Config{
		Machine: m,
		Events:  log,
		Bus:     bus,
		Storage: db,
		Devnet:  &Devnet{Registry: net, Oracle: oracle},
	})

	return &testNode{server: server, clock: clock, net: net, log: log}
}

func (n *testNode) do(t *testing.T, method, path string, from types.Address, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if !from.IsZero() {
		req.Header.Set(callerHeader, from.String())
	}

	w := httptest.NewRecorder()
	n.server.Handler().ServeHTTP(w, req)

	return w
}

// expect fails the test unless w carries status, then decodes the body into v.
func expect(t *testing.T, w *httptest.ResponseRecorder, status int, v any) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}

	if v == nil {
		return
	}

	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
}

func auctionPath(id int64, suffix string) string {
	return "/auctions/" + nft.String() + "/" + itoa(uint64(id)) + suffix
}

func saltHex(b byte) string {
	return "0x" + strings.Repeat(hexString([]byte{b})[2:], 32)
}

// openAuction mints asset id to the seller over the devnet routes and
// auctions it from t0+10 for an hour, with a one hour reveal window.
func (n *testNode) openAuction(t *testing.T, id int64, minBid string) {
	t.Helper()

	expect(t, n.do(t, "POST", "/devnet/collections/"+nft.String()+"/mint", types.Address{}, map[string]any{
		"to": seller, "id": itoa(uint64(id)),
	}), http.StatusCreated, nil)

	expect(t, n.do(t, "POST", "/devnet/collections/"+nft.String()+"/approve", types.Address{}, map[string]any{
		"owner": seller, "spender": escrow, "id": itoa(uint64(id)),
	}), http.StatusOK, nil)

	expect(t, n.do(t, "POST", "/auctions", seller, map[string]any{
		"assetContract":  nft,
		"assetId":        itoa(uint64(id)),
		"minBidPrice":    minBid,
		"startTime":      t0 + 10,
		"endTime":        t0 + 10 + 3600,
		"revealDeadline": t0 + 10 + 7200,
	}), http.StatusCreated, nil)
}

func (n *testNode) fund(t *testing.T, token, holder types.Address, amount string) {
	t.Helper()

	expect(t, n.do(t, "POST", "/devnet/tokens/"+token.String()+"/mint", types.Address{}, map[string]any{
		"to": holder, "amount": amount,
	}), http.StatusCreated, nil)

	expect(t, n.do(t, "POST", "/devnet/tokens/"+token.String()+"/approve", types.Address{}, map[string]any{
		"owner": holder, "spender": escrow, "amount": amount,
	}), http.StatusOK, nil)
}

func (n *testNode) seal(t *testing.T, bidder, token types.Address, amount, salt string) string {
	t.Helper()

	var resp map[string]string
	expect(t, n.do(t, "POST", "/devnet/commitment", types.Address{}, map[string]any{
		"amount": amount, "salt": salt, "bidder": bidder, "bidToken": token,
	}), http.StatusOK, &resp)

	return resp["commitment"]
}

func TestHealthEndpoint(t *testing.T) {
	n := newTestNode(t)

	var resp map[string]string
	expect(t, n.do(t, "GET", "/health", types.Address{}, nil), http.StatusOK, &resp)

	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestAuctionLifecycle(t *testing.T) {
	n := newTestNode(t)
	n.openAuction(t, 1, "1000")

	var view auctionView
	expect(t, n.do(t, "GET", auctionPath(1, ""), types.Address{}, nil), http.StatusOK, &view)
	if view.Status != "Active" || view.Owner != seller || view.MinBidPrice != "1000" {
		t.Fatalf("unexpected auction view: %+v", view)
	}

	n.clock.Set(t0 + 10)

	// 1500 usd against 1 wei of weth worth 2000.
	n.fund(t, usd, alice, "1500")
	n.fund(t, weth, bob, "1")

	expect(t, n.do(t, "POST", auctionPath(1, "/bids"), alice, map[string]any{
		"commitment": n.seal(t, alice, usd, "1500", saltHex(0xaa)),
		"bidToken":   usd,
	}), http.StatusCreated, nil)

	expect(t, n.do(t, "POST", auctionPath(1, "/bids"), bob, map[string]any{
		"commitment": n.seal(t, bob, weth, "1", saltHex(0xbb)),
		"bidToken":   weth,
	}), http.StatusCreated, nil)

	var bidders []types.Address
	expect(t, n.do(t, "GET", auctionPath(1, "/bidders"), types.Address{}, nil), http.StatusOK, &bidders)
	if len(bidders) != 2 || bidders[0] != alice || bidders[1] != bob {
		t.Fatalf("unexpected bidders: %v", bidders)
	}

	n.clock.Set(t0 + 10 + 3600)

	expect(t, n.do(t, "POST", auctionPath(1, "/reveal"), alice, map[string]any{
		"amount": "1500", "salt": saltHex(0xaa),
	}), http.StatusOK, nil)

	expect(t, n.do(t, "POST", auctionPath(1, "/reveal"), bob, map[string]any{
		"amount": "1", "salt": saltHex(0xbb),
	}), http.StatusOK, nil)

	var bid bidView
	expect(t, n.do(t, "GET", auctionPath(1, "/bids/"+bob.String()), types.Address{}, nil), http.StatusOK, &bid)
	if !bid.Revealed || bid.Amount != "1" || bid.BidToken != weth {
		t.Fatalf("unexpected bid view: %+v", bid)
	}

	var status map[string]string
	expect(t, n.do(t, "GET", auctionPath(1, "/status"), types.Address{}, nil), http.StatusOK, &status)
	if status["status"] != "Revealed" {
		t.Errorf("expected Revealed, got %s", status["status"])
	}

	n.clock.Set(t0 + 10 + 7200)

	var settled map[string]any
	expect(t, n.do(t, "POST", auctionPath(1, "/settle"), seller, nil), http.StatusOK, &settled)

	if settled["settled"] != true || settled["winner"] != bob.String() || settled["value"] != "2000" {
		t.Fatalf("unexpected settlement: %v", settled)
	}

	var holder map[string]string
	expect(t, n.do(t, "GET", "/devnet/collections/"+nft.String()+"/owners/1", types.Address{}, nil), http.StatusOK, &holder)
	if holder["owner"] != bob.String() {
		t.Errorf("expected asset with bob, got %s", holder["owner"])
	}

	var bal map[string]string
	expect(t, n.do(t, "GET", "/devnet/tokens/"+weth.String()+"/balances/"+seller.String(), types.Address{}, nil), http.StatusOK, &bal)
	if bal["balance"] != "1" {
		t.Errorf("expected seller paid 1 weth, got %s", bal["balance"])
	}

	expect(t, n.do(t, "GET", auctionPath(1, "/status"), types.Address{}, nil), http.StatusOK, &status)
	if status["status"] != "None" {
		t.Errorf("expected cleared slot, got %s", status["status"])
	}

	var evs []events.Event
	expect(t, n.do(t, "GET", "/events?from=1", types.Address{}, nil), http.StatusOK, &evs)

	want := []events.Kind{
		events.AuctionCreated,
		events.BidCreated, events.BidCreated,
		events.BidRevealed, events.BidRevealed,
		events.AuctionSettled,
	}
	if len(evs) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(evs))
	}
	for i, ev := range evs {
		if ev.Kind != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], ev.Kind)
		}
	}
}

func TestErrorStatusMapping(t *testing.T) {
	n := newTestNode(t)
	n.openAuction(t, 1, "1000")

	tests := []struct {
		name   string
		method string
		path   string
		from   types.Address
		body   any
		status int
		class  auction.Class
	}{
		{
			name:   "missing caller",
			method: "POST", path: auctionPath(1, "/settle"),
			status: http.StatusForbidden, class: auction.ClassAuthorization,
		},
		{
			name:   "not auction owner",
			method: "POST", path: auctionPath(1, "/settle"), from: alice,
			status: http.StatusForbidden, class: auction.ClassAuthorization,
		},
		{
			name:   "bid before start",
			method: "POST", path: auctionPath(1, "/bids"), from: alice,
			body:   map[string]any{"commitment": saltHex(0x01), "bidToken": usd},
			status: http.StatusConflict, class: auction.ClassTemporal,
		},
		{
			name:   "duplicate auction",
			method: "POST", path: "/auctions", from: seller,
			body: map[string]any{
				"assetContract": nft, "assetId": "1", "minBidPrice": "1",
				"startTime": t0 + 10, "endTime": t0 + 10 + 3600, "revealDeadline": t0 + 10 + 7200,
			},
			status: http.StatusForbidden, class: auction.ClassAuthorization,
		},
		{
			name:   "unknown field",
			method: "POST", path: auctionPath(1, "/reveal"), from: alice,
			body:   map[string]any{"amount": "1", "pepper": "x"},
			status: http.StatusBadRequest, class: auction.ClassInput,
		},
		{
			name:   "bad path address",
			method: "GET", path: "/auctions/0x12/1",
			status: http.StatusBadRequest, class: auction.ClassInput,
		},
		{
			name:   "no bids",
			method: "GET", path: auctionPath(1, "/bidders"),
			status: http.StatusNotFound, class: auction.ClassNotFound,
		},
		{
			name:   "settle unset slot",
			method: "POST", path: auctionPath(9, "/settle"), from: seller,
			status: http.StatusNotFound, class: auction.ClassNotFound,
		},
		{
			name:   "unaccepted token",
			method: "GET", path: "/tokens/" + nft.String() + "/feed",
			status: http.StatusBadRequest, class: auction.ClassInput,
		},
		{
			name:   "missing amount",
			method: "GET", path: "/prices/" + ethFeed.String() + "/base",
			status: http.StatusBadRequest, class: auction.ClassInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp map[string]string
			expect(t, n.do(t, tt.method, tt.path, tt.from, tt.body), tt.status, &resp)

			if resp["class"] != string(tt.class) {
				t.Errorf("expected class %s, got %s (%s)", tt.class, resp["class"], resp["error"])
			}
		})
	}
}

func TestRevealFailures(t *testing.T) {
	n := newTestNode(t)
	n.openAuction(t, 1, "1000")
	n.clock.Set(t0 + 10)

	expect(t, n.do(t, "POST", auctionPath(1, "/bids"), alice, map[string]any{
		"commitment": n.seal(t, alice, usd, "1500", saltHex(0xaa)),
		"bidToken":   usd,
	}), http.StatusCreated, nil)

	n.clock.Set(t0 + 10 + 3600)

	var resp map[string]string
	expect(t, n.do(t, "POST", auctionPath(1, "/reveal"), alice, map[string]any{
		"amount": "1500", "salt": saltHex(0xab),
	}), http.StatusUnprocessableEntity, &resp)

	if resp["class"] != string(auction.ClassVerification) {
		t.Errorf("expected verification class, got %s", resp["class"])
	}

	// Correct opening, but alice never funded the escrow.
	expect(t, n.do(t, "POST", auctionPath(1, "/reveal"), alice, map[string]any{
		"amount": "1500", "salt": saltHex(0xaa),
	}), http.StatusPaymentRequired, &resp)

	if resp["class"] != string(auction.ClassSolvency) {
		t.Errorf("expected solvency class, got %s", resp["class"])
	}
}

func TestPriceEndpoints(t *testing.T) {
	n := newTestNode(t)

	var price map[string]any
	expect(t, n.do(t, "GET", "/prices/"+ethFeed.String(), types.Address{}, nil), http.StatusOK, &price)
	if price["price"] != "200000000000" {
		t.Errorf("unexpected latest price: %v", price)
	}

	var base map[string]string
	expect(t, n.do(t, "GET", "/prices/"+ethFeed.String()+"/base?amount=3", types.Address{}, nil), http.StatusOK, &base)
	if base["value"] != "6000" {
		t.Errorf("expected 6000, got %s", base["value"])
	}

	expect(t, n.do(t, "POST", "/devnet/prices/"+ethFeed.String(), types.Address{}, map[string]any{
		"price": "300000000000", "decimals": 8,
	}), http.StatusOK, nil)

	expect(t, n.do(t, "GET", "/prices/"+ethFeed.String()+"/base?amount=3", types.Address{}, nil), http.StatusOK, &base)
	if base["value"] != "9000" {
		t.Errorf("expected 9000 after price update, got %s", base["value"])
	}

	var tokens []struct {
		Token     types.Address `json:"token"`
		Reference bool          `json:"reference"`
	}
	expect(t, n.do(t, "GET", "/tokens", types.Address{}, nil), http.StatusOK, &tokens)
	if len(tokens) != 2 || tokens[0].Token != usd || !tokens[0].Reference || tokens[1].Reference {
		t.Errorf("unexpected tokens: %+v", tokens)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	n := newTestNode(t)
	n.openAuction(t, 1, "1000")

	w := n.do(t, "GET", "/snapshot", types.Address{}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/zstd" {
		t.Errorf("unexpected content type %s", ct)
	}

	if w.Header().Get("X-Snapshot-Entries") == "0" || w.Body.Len() == 0 {
		t.Error("expected a non-empty snapshot")
	}
}

func TestStatsEndpoint(t *testing.T) {
	n := newTestNode(t)
	n.openAuction(t, 1, "1000")
	n.openAuction(t, 2, "1000")

	var stats map[string]any
	expect(t, n.do(t, "GET", "/stats", types.Address{}, nil), http.StatusOK, &stats)

	if stats["totalAuctions"] != float64(2) {
		t.Errorf("expected 2 auctions, got %v", stats["totalAuctions"])
	}

	if stats["nextEventSeq"] != float64(3) {
		t.Errorf("expected next seq 3, got %v", stats["nextEventSeq"])
	}

	if stats["escrow"] != escrow.String() {
		t.Errorf("expected escrow %s, got %v", escrow, stats["escrow"])
	}
}

func TestEventStreamReplaysThenFollows(t *testing.T) {
	n := newTestNode(t)
	n.openAuction(t, 1, "1000")

	ts := httptest.NewServer(n.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events/ws?from=1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev events.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("failed to read replayed event: %v", err)
	}
	if ev.Seq != 1 || ev.Kind != events.AuctionCreated {
		t.Fatalf("unexpected replayed event: %d %s", ev.Seq, ev.Kind)
	}

	n.openAuction(t, 2, "1000")

	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("failed to read live event: %v", err)
	}
	if ev.Seq != 2 || ev.AssetID.Int64() != 2 {
		t.Fatalf("unexpected live event: %d %v", ev.Seq, ev.AssetID)
	}
}

func TestEventStreamChecksOrigin(t *testing.T) {
	n := newTestNode(t)

	cfg := n.server.cfg
	cfg.CORSOrigins = []string{"https://market.example"}
	ts := httptest.NewServer(New(cfg).Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("expected upgrade from a foreign origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a foreign origin, got %v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://market.example"}})
	if err != nil {
		t.Fatalf("failed to dial from an allowed origin: %v", err)
	}
	conn.Close()

	conn, _, err = websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial without an origin: %v", err)
	}
	conn.Close()
}
