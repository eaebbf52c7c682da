package client

import (
	"fmt"
	"math/big"

	"Dauction/internal/types"
)

// MintAsset mints asset id of a devnet collection to to.
func (c *Client) MintAsset(contract types.Address, id *big.Int, to types.Address) error {
	body := map[string]any{"to": to, "id": id.String()}

	if err := c.httpPostJSON("/devnet/collections/"+contract.String()+"/mint", body, nil); err != nil {
		return fmt.Errorf("mint asset:\n%w", err)
	}

	return nil
}

// ApproveAsset lets spender move owner's asset id.
func (c *Client) ApproveAsset(contract types.Address, owner, spender types.Address, id *big.Int) error {
	body := map[string]any{"owner": owner, "spender": spender, "id": id.String()}

	if err := c.httpPostJSON("/devnet/collections/"+contract.String()+"/approve", body, nil); err != nil {
		return fmt.Errorf("approve asset:\n%w", err)
	}

	return nil
}

// OwnerOf returns the holder of a devnet asset.
func (c *Client) OwnerOf(contract types.Address, id *big.Int) (types.Address, error) {
	var resp struct {
		Owner types.Address `json:"owner"`
	}

	if err := c.httpGet("/devnet/collections/"+contract.String()+"/owners/"+id.String(), &resp); err != nil {
		return types.Address{}, fmt.Errorf("get owner:\n%w", err)
	}

	return resp.Owner, nil
}

// Fund mints amount of a devnet token to holder and approves spender for it.
func (c *Client) Fund(token, holder, spender types.Address, amount *big.Int) error {
	path := "/devnet/tokens/" + token.String()

	if err := c.httpPostJSON(path+"/mint", map[string]any{"to": holder, "amount": amount.String()}, nil); err != nil {
		return fmt.Errorf("mint token:\n%w", err)
	}

	body := map[string]any{"owner": holder, "spender": spender, "amount": amount.String()}
	if err := c.httpPostJSON(path+"/approve", body, nil); err != nil {
		return fmt.Errorf("approve token:\n%w", err)
	}

	return nil
}

// Balance returns holder's balance of a devnet token.
func (c *Client) Balance(token, holder types.Address) (*big.Int, error) {
	var resp struct {
		Balance string `json:"balance"`
	}

	if err := c.httpGet("/devnet/tokens/"+token.String()+"/balances/"+holder.String(), &resp); err != nil {
		return nil, fmt.Errorf("get balance:\n%w", err)
	}

	return parseInt("balance", resp.Balance)
}
