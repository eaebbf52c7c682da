package integration

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Dauction/client"
	"Dauction/internal/types"
)

var (
	seller = types.MustAddress("0x15d34aaf54267db7d7c367839aaf71a00a2c6a65")
	alice  = types.MustAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	bob    = types.MustAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// schedule is a short real-time auction window.
type schedule struct {
	start, end, reveal int64
}

func newSchedule() schedule {
	start := time.Now().Unix() + 2
	return schedule{start: start, end: start + 2, reveal: start + 4}
}

// openAuction mints asset id to the seller and auctions it.
func openAuction(t *testing.T, c *client.Client, id *big.Int, s schedule) types.Address {
	t.Helper()

	esc, err := c.Escrow()
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}

	if err := c.MintAsset(nft, id, seller); err != nil {
		t.Fatalf("mint asset: %v", err)
	}
	if err := c.ApproveAsset(nft, seller, esc, id); err != nil {
		t.Fatalf("approve asset: %v", err)
	}

	_, err = c.As(seller).CreateAuction(client.CreateParams{
		Contract:       nft,
		AssetID:        id,
		MinBidPrice:    ether(100),
		StartTime:      uint64(s.start),
		EndTime:        uint64(s.end),
		RevealDeadline: uint64(s.reveal),
	})
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}

	return esc
}

func TestAuctionLifecycleOnNode(t *testing.T) {
	h := NewHarness(t)
	node := h.StartNode("node-0", "")
	c := node.Client()

	id := big.NewInt(7)
	s := newSchedule()
	esc := openAuction(t, c, id, s)

	if err := c.Fund(usd, alice, esc, ether(1500)); err != nil {
		t.Fatalf("fund alice: %v", err)
	}
	if err := c.Fund(weth, bob, esc, ether(1)); err != nil {
		t.Fatalf("fund bob: %v", err)
	}

	waitUntil(s.start)

	aliceBid, err := c.As(alice).PlaceBid(nft, id, usd, ether(1500))
	if err != nil {
		t.Fatalf("alice bid: %v", err)
	}
	bobBid, err := c.As(bob).PlaceBid(nft, id, weth, ether(1))
	if err != nil {
		t.Fatalf("bob bid: %v", err)
	}

	waitUntil(s.end)

	if err := c.As(alice).Reveal(aliceBid); err != nil {
		t.Fatalf("alice reveal: %v", err)
	}
	if err := c.As(bob).Reveal(bobBid); err != nil {
		t.Fatalf("bob reveal: %v", err)
	}

	waitUntil(s.reveal)

	st, err := c.As(seller).Settle(nft, id)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if st.Winner != bob || st.Value.Cmp(ether(2000)) != 0 {
		t.Fatalf("expected bob to win at 2000, got %+v", st)
	}

	holder, err := c.OwnerOf(nft, id)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if holder != bob {
		t.Errorf("expected bob to hold the asset, got %s", holder)
	}

	paid, err := c.Balance(weth, seller)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if paid.Cmp(ether(1)) != 0 {
		t.Errorf("expected seller paid 1 weth, got %s", paid)
	}

	if !node.LogContains("auction settled") {
		t.Error("expected settlement in node logs")
	}
}

func TestAuctionSurvivesRestartAndRestore(t *testing.T) {
	h := NewHarness(t)
	node := h.StartNode("node-0", "")
	c := node.Client()

	id := big.NewInt(9)
	s := newSchedule()
	s.end += 60
	s.reveal += 120
	openAuction(t, c, id, s)

	node = h.RestartNode(node)
	c = node.Client()

	a, err := c.Auction(nft, id)
	if err != nil {
		t.Fatalf("get auction after restart: %v", err)
	}
	if a.Status != "Active" || a.Owner != seller {
		t.Fatalf("auction lost across restart: %+v", a)
	}

	data, err := c.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	path := filepath.Join(h.testDir, "state.snap")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	restored := h.StartNode("node-1", path)
	if !restored.LogContains("snapshot restored") {
		t.Error("expected restore in node logs")
	}

	a, err = restored.Client().Auction(nft, id)
	if err != nil {
		t.Fatalf("get auction on restored node: %v", err)
	}
	if a.Status != "Active" || a.MinBidPrice.Cmp(ether(100)) != 0 {
		t.Fatalf("restored auction mismatch: %+v", a)
	}
}
