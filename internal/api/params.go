package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Dauction/internal/auction"
	"Dauction/internal/types"
)

// badRequest is a malformed request: unparsable body, path or header.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

// fail writes err, reporting malformed requests as input errors.
func fail(w http.ResponseWriter, err error) {
	if br, ok := err.(*badRequest); ok {
		writeError(w, http.StatusBadRequest, auction.ClassInput, br.msg)
		return
	}

	writeFailure(w, err)
}

// decodeBody reads a bounded JSON body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return badRequestf("invalid body: %v", err)
	}

	return nil
}

// caller reads the caller identity header. An absent header yields the zero
// address, which the machine rejects.
func caller(r *http.Request) (types.Address, error) {
	v := r.Header.Get(callerHeader)
	if v == "" {
		return types.Address{}, nil
	}

	addr, err := types.ParseAddress(v)
	if err != nil {
		return types.Address{}, badRequestf("invalid %s header: %v", callerHeader, err)
	}

	return addr, nil
}

// auctionKey reads {contract} and {id} from the path.
func auctionKey(r *http.Request) (auction.Key, error) {
	contract, err := pathAddress(r, "contract")
	if err != nil {
		return auction.Key{}, err
	}

	id, err := types.ParseAmount(chi.URLParam(r, "id"))
	if err != nil {
		return auction.Key{}, badRequestf("invalid asset id: %v", err)
	}

	return auction.NewKey(contract, id), nil
}

func pathAddress(r *http.Request, name string) (types.Address, error) {
	addr, err := types.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		return types.Address{}, badRequestf("invalid %s: %v", name, err)
	}

	return addr, nil
}

func parseAmount(name, v string) (*big.Int, error) {
	if v == "" {
		return nil, badRequestf("%s is required", name)
	}

	n, err := types.ParseAmount(v)
	if err != nil {
		return nil, badRequestf("invalid %s: %v", name, err)
	}

	return n, nil
}

// queryUint reads an optional unsigned query parameter.
func queryUint(r *http.Request, name string, fallback uint64) (uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, badRequestf("invalid %s: %v", name, err)
	}

	return n, nil
}

func itoa(n uint64) string {
	return strconv.FormatUint(n, 10)
}

func hexString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
