// Package client talks to an auction node over its HTTP API.
package client

import (
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"Dauction/internal/types"
)

// Client connects to an auction node via HTTP.
type Client struct {
	baseURL string        // baseURL is the node root, e.g. "http://127.0.0.1:8080"
	caller  types.Address // caller signs mutating requests; zero for read-only use
	http    *http.Client
}

// Auction is an auction record as served by the node.
type Auction struct {
	Contract       types.Address
	AssetID        *big.Int
	Owner          types.Address
	MinBidPrice    *big.Int
	StartTime      uint64
	EndTime        uint64
	RevealDeadline uint64
	Status         string
}

// Bid is a bidder's record as served by the node.
type Bid struct {
	Bidder     types.Address
	Commitment types.Hash // Commitment is the stored unveil hash
	Token      types.Address
	Amount     *big.Int
	Revealed   bool
}

// Settlement is the outcome of a settle call.
type Settlement struct {
	Settled bool
	Winner  types.Address
	Token   types.Address
	Amount  *big.Int
	Value   *big.Int
}

// CreateParams describes a new auction.
type CreateParams struct {
	Contract       types.Address
	AssetID        *big.Int
	MinBidPrice    *big.Int
	StartTime      uint64
	EndTime        uint64
	RevealDeadline uint64
}

// New creates a read-only client for the node at baseURL. A bare host:port
// is treated as http.
func New(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// As returns a copy of the client acting as caller.
func (c *Client) As(caller types.Address) *Client {
	cp := *c
	cp.caller = caller
	return &cp
}

// Caller returns the identity mutating requests are sent as.
func (c *Client) Caller() types.Address {
	return c.caller
}

// Health reports whether the node answers.
func (c *Client) Health() error {
	var resp map[string]string
	if err := c.httpGet("/health", &resp); err != nil {
		return err
	}

	if resp["status"] != "ok" {
		return fmt.Errorf("unhealthy node: %q", resp["status"])
	}

	return nil
}

// CreateAuction escrows the asset and opens an auction for it.
func (c *Client) CreateAuction(p CreateParams) (*Auction, error) {
	body := map[string]any{
		"assetContract":  p.Contract,
		"assetId":        p.AssetID.String(),
		"minBidPrice":    p.MinBidPrice.String(),
		"startTime":      p.StartTime,
		"endTime":        p.EndTime,
		"revealDeadline": p.RevealDeadline,
	}

	var resp auctionResp
	if err := c.httpPostJSON("/auctions", body, &resp); err != nil {
		return nil, fmt.Errorf("create auction:\n%w", err)
	}

	return resp.parse()
}

// Auction returns the auction in the (contract, id) slot. An unset slot has
// status "None".
func (c *Client) Auction(contract types.Address, id *big.Int) (*Auction, error) {
	var resp auctionResp
	if err := c.httpGet(auctionPath(contract, id, ""), &resp); err != nil {
		return nil, fmt.Errorf("get auction:\n%w", err)
	}

	return resp.parse()
}

// Bidders returns the auction's bidders in commit order.
func (c *Client) Bidders(contract types.Address, id *big.Int) ([]types.Address, error) {
	var resp []types.Address
	if err := c.httpGet(auctionPath(contract, id, "/bidders"), &resp); err != nil {
		return nil, fmt.Errorf("get bidders:\n%w", err)
	}

	return resp, nil
}

// Bid returns bidder's record in the auction.
func (c *Client) Bid(contract types.Address, id *big.Int, bidder types.Address) (*Bid, error) {
	var resp struct {
		Bidder     types.Address `json:"bidder"`
		Commitment types.Hash    `json:"commitment"`
		BidToken   types.Address `json:"bidToken"`
		Amount     string        `json:"amount"`
		Revealed   bool          `json:"revealed"`
	}

	if err := c.httpGet(auctionPath(contract, id, "/bids/"+bidder.String()), &resp); err != nil {
		return nil, fmt.Errorf("get bid:\n%w", err)
	}

	amount, err := parseInt("amount", resp.Amount)
	if err != nil {
		return nil, err
	}

	return &Bid{
		Bidder:     resp.Bidder,
		Commitment: resp.Commitment,
		Token:      resp.BidToken,
		Amount:     amount,
		Revealed:   resp.Revealed,
	}, nil
}

// PlaceBid seals amount of token under a fresh salt and submits the
// commitment. Keep the returned SealedBid: it is needed to reveal.
func (c *Client) PlaceBid(contract types.Address, id *big.Int, token types.Address, amount *big.Int) (*SealedBid, error) {
	sb, err := Seal(contract, id, token, amount)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"commitment": sb.Commitment,
		"bidToken":   sb.Token,
	}

	if err := c.httpPostJSON(auctionPath(contract, id, "/bids"), body, nil); err != nil {
		return nil, fmt.Errorf("place bid:\n%w", err)
	}

	return sb, nil
}

// Reveal opens a sealed bid.
func (c *Client) Reveal(sb *SealedBid) error {
	body := map[string]any{
		"amount": sb.Amount.String(),
		"salt":   sb.Salt,
	}

	if err := c.httpPostJSON(auctionPath(sb.Contract, sb.AssetID, "/reveal"), body, nil); err != nil {
		return fmt.Errorf("reveal bid:\n%w", err)
	}

	return nil
}

// Settle closes the auction after its reveal deadline.
func (c *Client) Settle(contract types.Address, id *big.Int) (*Settlement, error) {
	var resp struct {
		Settled  bool          `json:"settled"`
		Winner   types.Address `json:"winner"`
		BidToken types.Address `json:"bidToken"`
		Amount   string        `json:"amount"`
		Value    string        `json:"value"`
	}

	if err := c.httpPostJSON(auctionPath(contract, id, "/settle"), nil, &resp); err != nil {
		return nil, fmt.Errorf("settle auction:\n%w", err)
	}

	st := &Settlement{Settled: resp.Settled}
	if !resp.Settled {
		return st, nil
	}

	var err error
	if st.Amount, err = parseInt("amount", resp.Amount); err != nil {
		return nil, err
	}
	if st.Value, err = parseInt("value", resp.Value); err != nil {
		return nil, err
	}

	st.Winner = resp.Winner
	st.Token = resp.BidToken

	return st, nil
}

// BasePrice values amount through feed in the reference unit.
func (c *Client) BasePrice(feed types.Address, amount *big.Int) (*big.Int, error) {
	var resp struct {
		Value string `json:"value"`
	}

	if err := c.httpGet("/prices/"+feed.String()+"/base?amount="+amount.String(), &resp); err != nil {
		return nil, fmt.Errorf("get base price:\n%w", err)
	}

	return parseInt("value", resp.Value)
}

type auctionResp struct {
	Contract       types.Address `json:"assetContract"`
	AssetID        string        `json:"assetId"`
	Owner          types.Address `json:"owner"`
	MinBidPrice    string        `json:"minBidPrice"`
	StartTime      uint64        `json:"startTime"`
	EndTime        uint64        `json:"endTime"`
	RevealDeadline uint64        `json:"revealDeadline"`
	Status         string        `json:"status"`
}

func (r auctionResp) parse() (*Auction, error) {
	id, err := parseInt("assetId", r.AssetID)
	if err != nil {
		return nil, err
	}

	minBid, err := parseInt("minBidPrice", r.MinBidPrice)
	if err != nil {
		return nil, err
	}

	return &Auction{
		Contract:       r.Contract,
		AssetID:        id,
		Owner:          r.Owner,
		MinBidPrice:    minBid,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		RevealDeadline: r.RevealDeadline,
		Status:         r.Status,
	}, nil
}

func auctionPath(contract types.Address, id *big.Int, suffix string) string {
	return "/auctions/" + contract.String() + "/" + id.String() + suffix
}

func parseInt(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q", name, s)
	}

	return v, nil
}

// Escrow returns the node's escrow identity, the spender bidders and
// sellers must approve.
func (c *Client) Escrow() (types.Address, error) {
	var resp struct {
		Escrow types.Address `json:"escrow"`
	}

	if err := c.httpGet("/stats", &resp); err != nil {
		return types.Address{}, fmt.Errorf("get stats:\n%w", err)
	}

	return resp.Escrow, nil
}

// Snapshot downloads the node's compressed state snapshot, suitable for
// restoring another node with -restore.
func (c *Client) Snapshot() ([]byte, error) {
	resp, err := c.http.Get(c.baseURL + "/snapshot")
	if err != nil {
		return nil, fmt.Errorf("GET /snapshot:\n%w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	return io.ReadAll(resp.Body)
}
