// Package deriv implements the broker interface over the Deriv
// WebSocket API v3.
package deriv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/interfaces"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/metrics"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Options configures the websocket session.
type Options struct {
	Endpoint     string
	AppID        string
	PingInterval time.Duration
	CallTimeout  time.Duration
}

// Client multiplexes API calls and subscriptions over one websocket
// connection. Responses are correlated by req_id; subscription updates
// reuse the req_id of the originating request.
type Client struct {
	opts Options

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan json.RawMessage
	streams map[int64]*subscription

	nextID   atomic.Int64
	token    string
	accounts []types.AccountInfo

	closed    chan struct{}
	closeOnce sync.Once
}

var _ interfaces.Broker = (*Client)(nil)

// envelope is the common shape of every server message.
type envelope struct {
	ReqID        int64     `json:"req_id"`
	MsgType      string    `json:"msg_type"`
	Error        *apiError `json:"error"`
	Subscription *struct {
		ID string `json:"id"`
	} `json:"subscription"`
}

// subscription is one server-side stream keyed by the originating req_id.
type subscription struct {
	ch    chan json.RawMessage
	subID string
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// mapError folds Deriv error codes into the broker error taxonomy.
func mapError(e *apiError) error {
	switch e.Code {
	case "InvalidToken", "AuthorizationRequired", "InvalidAppID":
		return fmt.Errorf("%w: %s", types.ErrInvalidToken, e.Message)
	case "InsufficientBalance":
		return fmt.Errorf("%w: %s", types.ErrInsufficientFunds, e.Message)
	case "MarketIsClosed":
		return fmt.Errorf("%w: %s", types.ErrMarketClosed, e.Message)
	default:
		return fmt.Errorf("%w: %s: %s", types.ErrBrokerUnavailable, e.Code, e.Message)
	}
}

// Dial connects and starts the read and ping loops.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.PingInterval == 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.CallTimeout == 0 {
		opts.CallTimeout = 30 * time.Second
	}

	url := fmt.Sprintf("%s?app_id=%s", opts.Endpoint, opts.AppID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", types.ErrBrokerUnavailable, opts.Endpoint, err)
	}

	c := &Client{
		opts:    opts,
		conn:    conn,
		pending: make(map[int64]chan json.RawMessage),
		streams: make(map[int64]*subscription),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				logger.Warn(context.Background(), "Websocket read failed", "error", err)
			}
			c.failAll()
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.MsgType == "pong" || env.ReqID == 0 {
			continue
		}

		c.mu.Lock()
		if sub, ok := c.streams[env.ReqID]; ok {
			if env.Subscription != nil {
				sub.subID = env.Subscription.ID
			}
			ch := sub.ch
			c.mu.Unlock()
			select {
			case ch <- json.RawMessage(data):
			default:
				// Slow consumer drops the update, not the socket.
			}
			continue
		}
		ch, ok := c.pending[env.ReqID]
		if ok {
			delete(c.pending, env.ReqID)
		}
		c.mu.Unlock()
		if ok {
			ch <- json.RawMessage(data)
		}
	}
}

// failAll wakes every waiter after a connection loss.
func (c *Client) failAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	for id, sub := range c.streams {
		close(sub.ch)
		delete(c.streams, id)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			_ = c.write(map[string]any{"ping": 1})
		}
	}
}

func (c *Client) write(payload map[string]any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("%w: write: %v", types.ErrBrokerUnavailable, err)
	}
	return nil
}

// call sends one request and waits for the correlated response.
func (c *Client) call(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	payload["req_id"] = id

	ch := make(chan json.RawMessage, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(payload); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	timer := time.NewTimer(c.opts.CallTimeout)
	defer timer.Stop()
	select {
	case raw, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w: connection lost", types.ErrBrokerUnavailable)
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: decode: %v", types.ErrBrokerUnavailable, err)
		}
		if env.Error != nil {
			return nil, mapError(env.Error)
		}
		return raw, nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: call timed out", types.ErrBrokerUnavailable)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// stream sends a subscribing request and returns the update channel plus
// a cancel func that forgets the subscription.
func (c *Client) stream(ctx context.Context, payload map[string]any) (<-chan json.RawMessage, func(), error) {
	id := c.nextID.Add(1)
	payload["req_id"] = id

	sub := &subscription{ch: make(chan json.RawMessage, 64)}
	c.mu.Lock()
	c.streams[id] = sub
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		subID := sub.subID
		if _, ok := c.streams[id]; ok {
			delete(c.streams, id)
			close(sub.ch)
		}
		c.mu.Unlock()
		if subID != "" {
			_ = c.write(map[string]any{"forget": subID})
		}
	}

	if err := c.write(payload); err != nil {
		cancel()
		return nil, nil, err
	}
	return sub.ch, cancel, nil
}

func (c *Client) Authorize(ctx context.Context, token string) (types.AccountInfo, error) {
	raw, err := c.call(ctx, map[string]any{"authorize": token})
	if err != nil {
		return types.AccountInfo{}, err
	}

	var resp struct {
		Authorize struct {
			LoginID     string          `json:"loginid"`
			Currency    string          `json:"currency"`
			Balance     decimal.Decimal `json:"balance"`
			IsVirtual   int             `json:"is_virtual"`
			AccountList []struct {
				LoginID   string `json:"loginid"`
				Currency  string `json:"currency"`
				IsVirtual int    `json:"is_virtual"`
			} `json:"account_list"`
		} `json:"authorize"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return types.AccountInfo{}, fmt.Errorf("%w: decode authorize: %v", types.ErrBrokerUnavailable, err)
	}

	c.mu.Lock()
	c.token = token
	c.accounts = c.accounts[:0]
	for _, a := range resp.Authorize.AccountList {
		c.accounts = append(c.accounts, types.AccountInfo{
			LoginID:   a.LoginID,
			Currency:  a.Currency,
			IsVirtual: a.IsVirtual == 1,
		})
	}
	c.mu.Unlock()

	return types.AccountInfo{
		LoginID:   resp.Authorize.LoginID,
		Currency:  resp.Authorize.Currency,
		Balance:   resp.Authorize.Balance,
		IsVirtual: resp.Authorize.IsVirtual == 1,
	}, nil
}

// Accounts lists the accounts reported by the last authorize.
func (c *Client) Accounts(ctx context.Context) ([]types.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return nil, fmt.Errorf("%w: not authorized", types.ErrInvalidToken)
	}
	out := make([]types.AccountInfo, len(c.accounts))
	copy(out, c.accounts)
	return out, nil
}

// SwitchAccount re-authorizes against another loginid of the same token.
func (c *Client) SwitchAccount(ctx context.Context, loginID string) (types.AccountInfo, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return types.AccountInfo{}, fmt.Errorf("%w: not authorized", types.ErrInvalidToken)
	}

	raw, err := c.call(ctx, map[string]any{"authorize": token, "loginid": loginID})
	if err != nil {
		return types.AccountInfo{}, err
	}
	var resp struct {
		Authorize struct {
			LoginID   string          `json:"loginid"`
			Currency  string          `json:"currency"`
			Balance   decimal.Decimal `json:"balance"`
			IsVirtual int             `json:"is_virtual"`
		} `json:"authorize"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return types.AccountInfo{}, fmt.Errorf("%w: decode authorize: %v", types.ErrBrokerUnavailable, err)
	}
	return types.AccountInfo{
		LoginID:   resp.Authorize.LoginID,
		Currency:  resp.Authorize.Currency,
		Balance:   resp.Authorize.Balance,
		IsVirtual: resp.Authorize.IsVirtual == 1,
	}, nil
}

func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	raw, err := c.call(ctx, map[string]any{"balance": 1})
	if err != nil {
		return decimal.Zero, err
	}
	var resp struct {
		Balance struct {
			Balance decimal.Decimal `json:"balance"`
		} `json:"balance"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode balance: %v", types.ErrBrokerUnavailable, err)
	}
	return resp.Balance.Balance, nil
}

func (c *Client) SubscribeTicks(ctx context.Context, symbol string) (<-chan types.Tick, func(), error) {
	raws, cancel, err := c.stream(ctx, map[string]any{"ticks": symbol, "subscribe": 1})
	if err != nil {
		return nil, nil, err
	}

	ticks := make(chan types.Tick, 64)
	go func() {
		defer close(ticks)
		for raw := range raws {
			var resp struct {
				Error *apiError `json:"error"`
				Tick  struct {
					Symbol string      `json:"symbol"`
					Quote  json.Number `json:"quote"`
					Epoch  int64       `json:"epoch"`
				} `json:"tick"`
				MsgType string `json:"msg_type"`
			}
			if err := json.Unmarshal(raw, &resp); err != nil || resp.MsgType != "tick" {
				continue
			}
			price, err := resp.Tick.Quote.Float64()
			if err != nil {
				continue
			}
			tick := types.Tick{
				Symbol:    resp.Tick.Symbol,
				Price:     price,
				Epoch:     resp.Tick.Epoch,
				LastDigit: LastDigit(resp.Tick.Quote.String()),
			}
			metrics.RecordTick(tick.Symbol)
			select {
			case ticks <- tick:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ticks, cancel, nil
}

// LastDigit extracts the final digit of a quote's textual form with the
// decimal point removed, mirroring how digit contracts settle.
func LastDigit(quote string) int {
	s := strings.ReplaceAll(quote, ".", "")
	if s == "" {
		return 0
	}
	d := s[len(s)-1]
	if d < '0' || d > '9' {
		return 0
	}
	return int(d - '0')
}

// Buy purchases a digit contract and blocks until it settles.
func (c *Client) Buy(ctx context.Context, spec types.ContractSpec) (types.ContractResult, error) {
	stake, _ := spec.Stake.Round(2).Float64()
	params := map[string]any{
		"contract_type": string(spec.Type),
		"symbol":        spec.Symbol,
		"amount":        stake,
		"basis":         "stake",
		"duration":      spec.DurationTicks,
		"duration_unit": "t",
		"currency":      spec.Currency,
	}
	if spec.Barrier != "" {
		params["barrier"] = spec.Barrier
	}

	raw, err := c.call(ctx, map[string]any{
		"buy":        1,
		"price":      stake,
		"parameters": params,
	})
	if err != nil {
		return types.ContractResult{}, err
	}

	var buyResp struct {
		Buy struct {
			ContractID int64 `json:"contract_id"`
		} `json:"buy"`
	}
	if err := json.Unmarshal(raw, &buyResp); err != nil {
		return types.ContractResult{}, fmt.Errorf("%w: decode buy: %v", types.ErrBrokerUnavailable, err)
	}
	contractID := buyResp.Buy.ContractID

	return c.awaitSettlement(ctx, contractID)
}

// awaitSettlement subscribes to the open contract until is_sold.
func (c *Client) awaitSettlement(ctx context.Context, contractID int64) (types.ContractResult, error) {
	raws, cancel, err := c.stream(ctx, map[string]any{
		"proposal_open_contract": 1,
		"contract_id":            contractID,
		"subscribe":              1,
	})
	if err != nil {
		return types.ContractResult{}, err
	}
	defer cancel()

	timer := time.NewTimer(2 * c.opts.CallTimeout)
	defer timer.Stop()

	for {
		select {
		case raw, ok := <-raws:
			if !ok {
				return types.ContractResult{}, fmt.Errorf("%w: connection lost awaiting settlement", types.ErrBrokerUnavailable)
			}
			var resp struct {
				Error *apiError `json:"error"`
				POC   struct {
					IsSold int             `json:"is_sold"`
					Profit decimal.Decimal `json:"profit"`
					Payout decimal.Decimal `json:"payout"`
				} `json:"proposal_open_contract"`
			}
			if err := json.Unmarshal(raw, &resp); err != nil {
				continue
			}
			if resp.Error != nil {
				return types.ContractResult{}, mapError(resp.Error)
			}
			if resp.POC.IsSold != 1 {
				continue
			}
			result := types.ContractResult{
				ContractID: fmt.Sprintf("%d", contractID),
				Profit:     resp.POC.Profit,
				Payout:     resp.POC.Payout,
				Outcome:    types.OutcomeLoss,
			}
			if resp.POC.Profit.GreaterThan(decimal.Zero) {
				result.Outcome = types.OutcomeWin
			}
			return result, nil
		case <-timer.C:
			return types.ContractResult{}, fmt.Errorf("%w: settlement timed out for contract %d", types.ErrBrokerUnavailable, contractID)
		case <-ctx.Done():
			return types.ContractResult{}, ctx.Err()
		}
	}
}
