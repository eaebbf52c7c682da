package client

import (
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"Dauction/internal/api"
	"Dauction/internal/auction"
	"Dauction/internal/commitment"
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
	wbtc    = types.MustAddress("0xcf7ed3acca5a467e9e704c703e8d87f634fb0fc9")
	btcFeed = types.MustAddress("0x5fc8d32690cc91d4c39d9d3abcbd16989f875707")
)

const t0 = 1_700_000_000

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *stepClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = time.Unix(unix, 0)
}

// startNode serves a devnet-enabled node on an httptest server.
func startNode(t *testing.T) (*Client, *stepClock) {
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

	clock := &stepClock{}
	clock.Set(t0)

	oracle := pricing.NewStaticOracle(clock.Now)
	oracle.Set(btcFeed, big.NewInt(60000_00000000), 8)

	tokens, err := auction.NewTokenRegistry(usd, []auction.AcceptedToken{
		{Token: usd, Decimals: 18},
		{Token: wbtc, Feed: btcFeed, Decimals: 8},
	})
	if err != nil {
		t.Fatalf("failed to build token registry: %v", err)
	}

	net := devnet.NewRegistry()
	net.AddCollection(nft)
	net.AddToken(usd, 18)
	net.AddToken(wbtc, 8)

	m, err := auction.New(db, tokens, pricing.NewNormalizer(oracle, 0, clock.Now), net, net, log,
		auction.Params{Self: escrow, Operator: operator},
		auction.WithClock(clock),
	)
	if err != nil {
		t.Fatalf("failed to create machine: %v", err)
	}

	server := api.New(api.Config{
		Machine: m,
		Events:  log,
		Bus:     bus,
		Devnet:  &api.Devnet{Registry: net, Oracle: oracle},
	})

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return New(ts.URL), clock
}

func units(n int64, decimals int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil))
}

func TestSealCommitsToAmountAndSalt(t *testing.T) {
	sb, err := Seal(nft, big.NewInt(1), usd, big.NewInt(500))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if sb.Salt == (types.Hash{}) {
		t.Fatal("expected a random salt")
	}

	if sb.Commitment != commitment.Commit(big.NewInt(500), sb.Salt) {
		t.Error("commitment does not match amount and salt")
	}

	if err := commitment.Verify(alice, sb.Unveil(alice), usd, big.NewInt(500), sb.Salt); err != nil {
		t.Errorf("unveil hash does not verify: %v", err)
	}

	other, err := Seal(nft, big.NewInt(1), usd, big.NewInt(500))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if other.Commitment == sb.Commitment {
		t.Error("expected distinct commitments for fresh salts")
	}
}

func TestSealRejectsNegativeAmount(t *testing.T) {
	if _, err := Seal(nft, big.NewInt(1), usd, big.NewInt(-1)); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestFullAuctionOverHTTP(t *testing.T) {
	c, clock := startNode(t)
	id := big.NewInt(42)

	if err := c.Health(); err != nil {
		t.Fatalf("health: %v", err)
	}

	esc, err := c.Escrow()
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	if esc != escrow {
		t.Fatalf("expected escrow %s, got %s", escrow, esc)
	}

	if err := c.MintAsset(nft, id, seller); err != nil {
		t.Fatalf("mint asset: %v", err)
	}
	if err := c.ApproveAsset(nft, seller, esc, id); err != nil {
		t.Fatalf("approve asset: %v", err)
	}

	a, err := c.As(seller).CreateAuction(CreateParams{
		Contract:       nft,
		AssetID:        id,
		MinBidPrice:    units(50_000, 18),
		StartTime:      t0 + 60,
		EndTime:        t0 + 60 + 3600,
		RevealDeadline: t0 + 60 + 7200,
	})
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	if a.Status != "Active" || a.MinBidPrice.Cmp(units(50_000, 18)) != 0 {
		t.Fatalf("unexpected auction: %+v", a)
	}

	clock.Set(t0 + 60)

	// 55k usd against 1 btc worth 60k.
	if err := c.Fund(usd, alice, esc, units(55_000, 18)); err != nil {
		t.Fatalf("fund alice: %v", err)
	}
	if err := c.Fund(wbtc, bob, esc, units(1, 8)); err != nil {
		t.Fatalf("fund bob: %v", err)
	}

	aliceBid, err := c.As(alice).PlaceBid(nft, id, usd, units(55_000, 18))
	if err != nil {
		t.Fatalf("alice bid: %v", err)
	}
	bobBid, err := c.As(bob).PlaceBid(nft, id, wbtc, units(1, 8))
	if err != nil {
		t.Fatalf("bob bid: %v", err)
	}

	stored, err := c.Bid(nft, id, bob)
	if err != nil {
		t.Fatalf("get bid: %v", err)
	}
	if stored.Commitment != bobBid.Unveil(bob) || stored.Revealed {
		t.Fatalf("unexpected stored bid: %+v", stored)
	}

	// Revealing is not possible while bidding is open.
	err = c.As(alice).Reveal(aliceBid)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict || apiErr.Class != "temporal" {
		t.Fatalf("expected temporal conflict, got %v", err)
	}

	clock.Set(t0 + 60 + 3600)

	if err := c.As(alice).Reveal(aliceBid); err != nil {
		t.Fatalf("alice reveal: %v", err)
	}
	if err := c.As(bob).Reveal(bobBid); err != nil {
		t.Fatalf("bob reveal: %v", err)
	}

	clock.Set(t0 + 60 + 7200)

	st, err := c.As(seller).Settle(nft, id)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if !st.Settled || st.Winner != bob || st.Token != wbtc {
		t.Fatalf("unexpected settlement: %+v", st)
	}
	if st.Value.Cmp(units(60_000, 18)) != 0 {
		t.Errorf("expected 60k value, got %s", st.Value)
	}

	holder, err := c.OwnerOf(nft, id)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if holder != bob {
		t.Errorf("expected bob to hold the asset, got %s", holder)
	}

	paid, err := c.Balance(wbtc, seller)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if paid.Cmp(units(1, 8)) != 0 {
		t.Errorf("expected seller paid 1 btc, got %s", paid)
	}

	after, err := c.Auction(nft, id)
	if err != nil {
		t.Fatalf("get auction: %v", err)
	}
	if after.Status != "None" {
		t.Errorf("expected cleared slot, got %s", after.Status)
	}
}

func TestAPIErrorCarriesClass(t *testing.T) {
	c, _ := startNode(t)

	_, err := c.Settle(nft, big.NewInt(1))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}

	if apiErr.Status != http.StatusForbidden || apiErr.Class != "authorization" {
		t.Errorf("unexpected error: %v", apiErr)
	}
}

func TestBasePrice(t *testing.T) {
	c, _ := startNode(t)

	v, err := c.BasePrice(btcFeed, big.NewInt(2))
	if err != nil {
		t.Fatalf("base price: %v", err)
	}

	if v.Int64() != 120_000 {
		t.Errorf("expected 120000, got %s", v)
	}
}
