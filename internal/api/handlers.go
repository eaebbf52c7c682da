package api

import (
	"net/http"

	"Dauction/internal/auction"
	"Dauction/internal/types"
)

// auctionView is the JSON form of an auction record.
type auctionView struct {
	Contract       types.Address `json:"assetContract"`
	AssetID        string        `json:"assetId"`
	Owner          types.Address `json:"owner"`
	MinBidPrice    string        `json:"minBidPrice"`
	StartTime      uint64        `json:"startTime"`
	EndTime        uint64        `json:"endTime"`
	RevealDeadline uint64        `json:"revealDeadline"`
	Status         string        `json:"status"`
	CreatedAt      uint64        `json:"createdAt"`
}

func newAuctionView(a auction.Auction) auctionView {
	return auctionView{
		Contract:       a.Contract,
		AssetID:        a.AssetID.String(),
		Owner:          a.Owner,
		MinBidPrice:    a.MinBidPrice.String(),
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		RevealDeadline: a.RevealDeadline,
		Status:         a.Status.String(),
		CreatedAt:      a.CreatedAt,
	}
}

// bidView is the JSON form of a bid record.
type bidView struct {
	Bidder     types.Address `json:"bidder"`
	Commitment types.Hash    `json:"commitment"`
	BidToken   types.Address `json:"bidToken"`
	Amount     string        `json:"amount"`
	Revealed   bool          `json:"revealed"`
	CreatedAt  uint64        `json:"createdAt"`
}

// handleCreateAuction handles POST /auctions requests.
func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contract       types.Address `json:"assetContract"`
		AssetID        string        `json:"assetId"`
		MinBidPrice    string        `json:"minBidPrice"`
		StartTime      uint64        `json:"startTime"`
		EndTime        uint64        `json:"endTime"`
		RevealDeadline uint64        `json:"revealDeadline"`
	}

	from, err := caller(r)
	if err != nil {
		fail(w, err)
		return
	}

	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}

	id, err := parseAmount("assetId", req.AssetID)
	if err != nil {
		fail(w, err)
		return
	}

	minBid, err := parseAmount("minBidPrice", req.MinBidPrice)
	if err != nil {
		fail(w, err)
		return
	}

	a, err := s.cfg.Machine.CreateAuction(r.Context(), from, auction.CreateParams{
		Contract:       req.Contract,
		AssetID:        id,
		MinBidPrice:    minBid,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		RevealDeadline: req.RevealDeadline,
	})
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAuctionView(a))
}

// handleCreateBid handles POST /auctions/{contract}/{id}/bids requests.
func (s *Server) handleCreateBid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Commitment types.Hash    `json:"commitment"`
		BidToken   types.Address `json:"bidToken"`
	}

	key, from, ok := s.target(w, r)
	if !ok {
		return
	}

	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}

	if err := s.cfg.Machine.CreateBid(r.Context(), from, key, req.Commitment, req.BidToken); err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"bidder":     from,
		"commitment": req.Commitment,
	})
}

// handleRevealBid handles POST /auctions/{contract}/{id}/reveal requests.
func (s *Server) handleRevealBid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string     `json:"amount"`
		Salt   types.Hash `json:"salt"`
	}

	key, from, ok := s.target(w, r)
	if !ok {
		return
	}

	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		fail(w, err)
		return
	}

	if err := s.cfg.Machine.RevealBid(r.Context(), from, key, amount, req.Salt); err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bidder": from,
		"amount": amount.String(),
	})
}

// handleSettle handles POST /auctions/{contract}/{id}/settle requests.
func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	key, from, ok := s.target(w, r)
	if !ok {
		return
	}

	st, err := s.cfg.Machine.SettleAuction(r.Context(), from, key)
	if err != nil {
		fail(w, err)
		return
	}

	resp := map[string]any{
		"assetContract": st.Key.Contract,
		"assetId":       st.Key.AssetID.String(),
		"owner":         st.Owner,
		"settled":       st.Settled(),
	}

	if st.Settled() {
		resp["winner"] = st.Winner
		resp["bidToken"] = st.Token
		resp["amount"] = st.Amount.String()
		resp["value"] = st.Value.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

// target reads the auction key and caller of a mutating request.
func (s *Server) target(w http.ResponseWriter, r *http.Request) (auction.Key, types.Address, bool) {
	key, err := auctionKey(r)
	if err != nil {
		fail(w, err)
		return auction.Key{}, types.Address{}, false
	}

	from, err := caller(r)
	if err != nil {
		fail(w, err)
		return auction.Key{}, types.Address{}, false
	}

	return key, from, true
}

// handleListAuctions handles GET /auctions requests.
func (s *Server) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	list, err := s.cfg.Machine.Auctions()
	if err != nil {
		fail(w, err)
		return
	}

	out := make([]auctionView, len(list))
	for i, a := range list {
		out[i] = newAuctionView(a)
	}

	writeJSON(w, http.StatusOK, out)
}

// handleGetAuction handles GET /auctions/{contract}/{id} requests. Unset
// slots return the empty record.
func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	key, err := auctionKey(r)
	if err != nil {
		fail(w, err)
		return
	}

	a, err := s.cfg.Machine.Auction(key)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuctionView(a))
}

// handleAuctionStatus handles GET /auctions/{contract}/{id}/status requests.
func (s *Server) handleAuctionStatus(w http.ResponseWriter, r *http.Request) {
	key, err := auctionKey(r)
	if err != nil {
		fail(w, err)
		return
	}

	st, err := s.cfg.Machine.AuctionStatus(key)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": st.String()})
}

// handleBidders handles GET /auctions/{contract}/{id}/bidders requests.
func (s *Server) handleBidders(w http.ResponseWriter, r *http.Request) {
	key, err := auctionKey(r)
	if err != nil {
		fail(w, err)
		return
	}

	bidders, err := s.cfg.Machine.Bidders(key)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bidders)
}

// handleGetBid handles GET /auctions/{contract}/{id}/bids/{bidder} requests.
func (s *Server) handleGetBid(w http.ResponseWriter, r *http.Request) {
	key, err := auctionKey(r)
	if err != nil {
		fail(w, err)
		return
	}

	bidder, err := pathAddress(r, "bidder")
	if err != nil {
		fail(w, err)
		return
	}

	b, err := s.cfg.Machine.Bid(key, bidder)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bidView{
		Bidder:     b.Bidder,
		Commitment: b.Commitment,
		BidToken:   b.Token,
		Amount:     b.Amount.String(),
		Revealed:   b.Revealed,
		CreatedAt:  b.CreatedAt,
	})
}

// handleTokens handles GET /tokens requests.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	type tokenView struct {
		auction.AcceptedToken
		Reference bool `json:"reference"`
	}

	tokens := s.cfg.Machine.AcceptedTokens()
	out := make([]tokenView, len(tokens))
	for i, t := range tokens {
		out[i] = tokenView{AcceptedToken: t, Reference: s.cfg.Machine.IsReferenceToken(t.Token)}
	}

	writeJSON(w, http.StatusOK, out)
}

// handleTokenFeed handles GET /tokens/{token}/feed requests.
func (s *Server) handleTokenFeed(w http.ResponseWriter, r *http.Request) {
	token, err := pathAddress(r, "token")
	if err != nil {
		fail(w, err)
		return
	}

	feed, err := s.cfg.Machine.BidTokenFeed(token)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"priceFeed": feed,
		"reference": s.cfg.Machine.IsReferenceToken(token),
	})
}

// handleLatestPrice handles GET /prices/{feed} requests.
func (s *Server) handleLatestPrice(w http.ResponseWriter, r *http.Request) {
	feed, err := pathAddress(r, "feed")
	if err != nil {
		fail(w, err)
		return
	}

	price, decimals, err := s.cfg.Machine.LatestPrice(r.Context(), feed)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"feed":     feed,
		"price":    price.String(),
		"decimals": decimals,
	})
}

// handleBasePrice handles GET /prices/{feed}/base?amount= requests. The zero
// feed passes the amount through.
func (s *Server) handleBasePrice(w http.ResponseWriter, r *http.Request) {
	feed, err := pathAddress(r, "feed")
	if err != nil {
		fail(w, err)
		return
	}

	amount, err := parseAmount("amount", r.URL.Query().Get("amount"))
	if err != nil {
		fail(w, err)
		return
	}

	value, err := s.cfg.Machine.CalculateBasePrice(r.Context(), feed, amount)
	if err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"amount": amount.String(),
		"value":  value.String(),
	})
}
