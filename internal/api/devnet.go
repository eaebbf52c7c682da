package api

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Dauction/internal/auction"
	"Dauction/internal/commitment"
	"Dauction/internal/devnet"
	"Dauction/internal/logger"
	"Dauction/internal/types"
)

func (s *Server) devnetRoutes(r chi.Router) {
	r.Get("/collections", s.handleDevnetCollections)
	r.Post("/collections/{contract}/mint", s.handleCollectionMint)
	r.Post("/collections/{contract}/approve", s.handleCollectionApprove)
	r.Get("/collections/{contract}/owners/{id}", s.handleCollectionOwner)

	r.Post("/tokens/{token}/mint", s.handleTokenMint)
	r.Post("/tokens/{token}/approve", s.handleTokenApprove)
	r.Get("/tokens/{token}/balances/{holder}", s.handleTokenBalance)

	r.Post("/prices/{feed}", s.handleSetPrice)
	r.Post("/commitment", s.handleCommitment)
}

// devnetFail reports collaborator errors. They are caller mistakes, never
// node faults.
func devnetFail(w http.ResponseWriter, err error) {
	var br *badRequest
	if errors.As(err, &br) {
		fail(w, err)
		return
	}

	if errors.Is(err, devnet.ErrUnknownContract) || errors.Is(err, devnet.ErrNonexistentToken) {
		writeError(w, http.StatusNotFound, auction.ClassNotFound, err.Error())
		return
	}

	writeError(w, http.StatusBadRequest, auction.ClassInput, err.Error())
}

func (s *Server) collection(r *http.Request) (*devnet.Collection, error) {
	addr, err := pathAddress(r, "contract")
	if err != nil {
		return nil, err
	}

	c, ok := s.cfg.Devnet.Registry.Collection(addr)
	if !ok {
		return nil, devnet.ErrUnknownContract
	}

	return c, nil
}

func (s *Server) token(r *http.Request) (*devnet.Token, error) {
	addr, err := pathAddress(r, "token")
	if err != nil {
		return nil, err
	}

	t, ok := s.cfg.Devnet.Registry.Token(addr)
	if !ok {
		return nil, devnet.ErrUnknownContract
	}

	return t, nil
}

// handleDevnetCollections handles GET /devnet/collections requests.
func (s *Server) handleDevnetCollections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Devnet.Registry.Collections())
}

// handleCollectionMint handles POST /devnet/collections/{contract}/mint.
func (s *Server) handleCollectionMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To types.Address `json:"to"`
		ID string        `json:"id"`
	}

	c, err := s.collection(r)
	if err != nil {
		devnetFail(w, err)
		return
	}

	if err := decodeBody(r, &req); err != nil {
		devnetFail(w, err)
		return
	}

	id, err := parseAmount("id", req.ID)
	if err != nil {
		devnetFail(w, err)
		return
	}

	if err := c.Mint(req.To, id); err != nil {
		devnetFail(w, err)
		return
	}

	logger.Debug("devnet asset minted", "contract", c.Address(), "id", id, "to", req.To)

	writeJSON(w, http.StatusCreated, map[string]any{
		"assetContract": c.Address(),
		"assetId":       id.String(),
		"owner":         req.To,
	})
}

// handleCollectionApprove handles POST /devnet/collections/{contract}/approve.
// With "all" set the spender becomes an operator over every asset of owner.
func (s *Server) handleCollectionApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner   types.Address `json:"owner"`
		Spender types.Address `json:"spender"`
		ID      string        `json:"id"`
		All     bool          `json:"all"`
	}

	c, err := s.collection(r)
	if err != nil {
		devnetFail(w, err)
		return
	}

	if err := decodeBody(r, &req); err != nil {
		devnetFail(w, err)
		return
	}

	if req.All {
		c.SetApprovalForAll(req.Owner, req.Spender, true)
		writeJSON(w, http.StatusOK, map[string]any{"owner": req.Owner, "operator": req.Spender})
		return
	}

	id, err := parseAmount("id", req.ID)
	if err != nil {
		devnetFail(w, err)
		return
	}

	if err := c.Approve(req.Owner, req.Spender, id); err != nil {
		devnetFail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assetId": id.String(),
		"spender": req.Spender,
	})
}

// handleCollectionOwner handles GET /devnet/collections/{contract}/owners/{id}.
func (s *Server) handleCollectionOwner(w http.ResponseWriter, r *http.Request) {
	c, err := s.collection(r)
	if err != nil {
		devnetFail(w, err)
		return
	}

	id, err := parseAmount("id", chi.URLParam(r, "id"))
	if err != nil {
		devnetFail(w, err)
		return
	}

	owner, err := c.OwnerOf(r.Context(), id)
	if err != nil {
		devnetFail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"owner": owner})
}

// handleTokenMint handles POST /devnet/tokens/{token}/mint.
func (s *Server) handleTokenMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To     types.Address `json:"to"`
		Amount string        `json:"amount"`
	}

	t, err := s.token(r)
	if err != nil {
		devnetFail(w, err)
		return
	}

	if err := decodeBody(r, &req); err != nil {
		devnetFail(w, err)
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		devnetFail(w, err)
		return
	}

	if err := t.Mint(req.To, amount); err != nil {
		devnetFail(w, err)
		return
	}

	s.writeBalance(w, r, t, req.To, http.StatusCreated)
}

// handleTokenApprove handles POST /devnet/tokens/{token}/approve.
func (s *Server) handleTokenApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner   types.Address `json:"owner"`
		Spender types.Address `json:"spender"`
		Amount  string        `json:"amount"`
	}

	t, err := s.token(r)
	if err != nil {
		devnetFail(w, err)
		return
	}

	if err := decodeBody(r, &req); err != nil {
		devnetFail(w, err)
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		devnetFail(w, err)
		return
	}

	if err := t.Approve(req.Owner, req.Spender, amount); err != nil {
		devnetFail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"owner":     req.Owner,
		"spender":   req.Spender,
		"allowance": amount.String(),
	})
}

// handleTokenBalance handles GET /devnet/tokens/{token}/balances/{holder}.
func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	t, err := s.token(r)
	if err != nil {
		devnetFail(w, err)
		return
	}

	holder, err := pathAddress(r, "holder")
	if err != nil {
		devnetFail(w, err)
		return
	}

	s.writeBalance(w, r, t, holder, http.StatusOK)
}

func (s *Server) writeBalance(w http.ResponseWriter, r *http.Request, t *devnet.Token, holder types.Address, status int) {
	bal, err := t.BalanceOf(r.Context(), holder)
	if err != nil {
		devnetFail(w, err)
		return
	}

	writeJSON(w, status, map[string]any{
		"token":   t.Address(),
		"holder":  holder,
		"balance": bal.String(),
	})
}

// handleSetPrice handles POST /devnet/prices/{feed}.
func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price    string `json:"price"`
		Decimals uint8  `json:"decimals"`
	}

	feed, err := pathAddress(r, "feed")
	if err != nil {
		devnetFail(w, err)
		return
	}

	if err := decodeBody(r, &req); err != nil {
		devnetFail(w, err)
		return
	}

	price, ok := new(big.Int).SetString(req.Price, 10)
	if !ok {
		devnetFail(w, badRequestf("invalid price %q", req.Price))
		return
	}

	s.cfg.Devnet.Oracle.Set(feed, price, req.Decimals)

	logger.Info("devnet price set", "feed", feed, "price", price, "decimals", req.Decimals)

	writeJSON(w, http.StatusOK, map[string]any{
		"feed":     feed,
		"price":    price.String(),
		"decimals": req.Decimals,
	})
}

// handleCommitment handles POST /devnet/commitment. It computes the sealed
// commitment a bidder submits and the unveil hash the ledger stores for it.
func (s *Server) handleCommitment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   string        `json:"amount"`
		Salt     types.Hash    `json:"salt"`
		Bidder   types.Address `json:"bidder"`
		BidToken types.Address `json:"bidToken"`
	}

	if err := decodeBody(r, &req); err != nil {
		devnetFail(w, err)
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		devnetFail(w, err)
		return
	}

	c := commitment.Commit(amount, req.Salt)

	writeJSON(w, http.StatusOK, map[string]any{
		"commitment": c,
		"unveilHash": commitment.Unveil(req.Bidder, c, req.BidToken),
	})
}
