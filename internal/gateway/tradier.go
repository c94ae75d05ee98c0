package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/models"
	"options-trader/pkg/utils"
)

// TradierGateway implements Gateway over the Tradier REST API.
type TradierGateway struct {
	baseURL   string
	token     string
	accountID string
	client    *http.Client
	logger    zerolog.Logger
	connected bool
}

// TradierConfig holds configuration for the Tradier gateway.
type TradierConfig struct {
	BaseURL   string
	APIKey    string
	AccountID string
	Logger    zerolog.Logger
}

// NewTradierGateway creates a new Tradier gateway.
func NewTradierGateway(cfg TradierConfig) *TradierGateway {
	return &TradierGateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.APIKey,
		accountID: cfg.AccountID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Connect verifies credentials against the market clock endpoint.
func (g *TradierGateway) Connect(ctx context.Context) error {
	var dto struct {
		Clock struct {
			State string `json:"state"`
		} `json:"clock"`
	}
	if err := g.get(ctx, "/markets/clock", nil, &dto); err != nil {
		return apperrors.NewGatewayError("connect", "verifying session", err)
	}
	g.connected = true
	g.logger.Info().Str("market_state", dto.Clock.State).Msg("Connected to gateway")
	return nil
}

// Disconnect releases the session. Safe to call more than once.
func (g *TradierGateway) Disconnect() error {
	if !g.connected {
		return nil
	}
	g.connected = false
	g.client.CloseIdleConnections()
	g.logger.Info().Msg("Disconnected from gateway")
	return nil
}

// ResolveContract qualifies an underlying symbol.
func (g *TradierGateway) ResolveContract(ctx context.Context, symbol string) (models.Instrument, error) {
	quotes, err := g.fetchQuotes(ctx, symbol, false)
	if err != nil {
		return models.Instrument{}, apperrors.NewGatewayError("resolve_contract", symbol, err)
	}
	if len(quotes) == 0 {
		return models.Instrument{}, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "resolving %s", symbol)
	}
	q := quotes[0]
	return models.Instrument{
		Symbol:   q.Symbol,
		Name:     q.Description,
		Exchange: q.Exchange,
		Currency: "USD",
	}, nil
}

// ResolveOptionChain fetches the available expirations and strikes for an
// underlying.
func (g *TradierGateway) ResolveOptionChain(ctx context.Context, symbol string) (models.ChainParams, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("strikes", "true")
	params.Add("includeAllRoots", "true")

	var dto struct {
		Expirations struct {
			Expiration json.RawMessage `json:"expiration"`
		} `json:"expirations"`
	}
	if err := g.get(ctx, "/markets/options/expirations", params, &dto); err != nil {
		return models.ChainParams{}, apperrors.NewGatewayError("resolve_option_chain", symbol, err)
	}

	type expirationDTO struct {
		Date    string `json:"date"`
		Strikes struct {
			Strike []float64 `json:"strike"`
		} `json:"strikes"`
	}
	expirations, err := decodeOneOrMany[expirationDTO](dto.Expirations.Expiration)
	if err != nil {
		return models.ChainParams{}, apperrors.NewGatewayError("resolve_option_chain", "decoding expirations", err)
	}
	if len(expirations) == 0 {
		return models.ChainParams{}, apperrors.Wrapf(apperrors.ErrEmptyChain, "no expirations for %s", symbol)
	}

	chain := models.ChainParams{
		Underlying:   symbol,
		TradingClass: symbol,
		Multiplier:   100,
	}
	strikeSet := make(map[float64]struct{})
	for _, e := range expirations {
		exp, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return models.ChainParams{}, apperrors.NewGatewayError("resolve_option_chain", "parsing expiration date", err)
		}
		chain.Expirations = append(chain.Expirations, exp)
		for _, s := range e.Strikes.Strike {
			if _, ok := strikeSet[s]; !ok {
				strikeSet[s] = struct{}{}
				chain.Strikes = append(chain.Strikes, s)
			}
		}
	}
	return chain, nil
}

// Quote fetches a spot snapshot for an underlying.
func (g *TradierGateway) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	quotes, err := g.fetchQuotes(ctx, symbol, false)
	if err != nil {
		return models.Quote{}, apperrors.NewGatewayError("quote", symbol, err)
	}
	if len(quotes) == 0 {
		return models.Quote{}, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "quoting %s", symbol)
	}
	q := quotes[0]
	return models.Quote{
		Symbol:    q.Symbol,
		Last:      q.Last,
		Bid:       q.Bid,
		Ask:       q.Ask,
		Volume:    q.Volume,
		Timestamp: time.Now(),
	}, nil
}

// OptionQuote fetches a snapshot with greeks for one option contract.
func (g *TradierGateway) OptionQuote(ctx context.Context, contract models.OptionContract) (models.OptionQuote, error) {
	symbol := contract.Symbol
	if symbol == "" {
		symbol = OCCSymbol(contract)
	}
	quotes, err := g.fetchQuotes(ctx, symbol, true)
	if err != nil {
		return models.OptionQuote{}, apperrors.NewGatewayError("option_quote", symbol, err)
	}
	if len(quotes) == 0 {
		return models.OptionQuote{}, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "quoting option %s", symbol)
	}
	q := quotes[0]
	oq := models.OptionQuote{
		Bid:       q.Bid,
		Ask:       q.Ask,
		Last:      q.Last,
		Timestamp: time.Now(),
	}
	if q.Greeks != nil {
		oq.Greeks = &models.Greeks{
			Delta:             q.Greeks.Delta,
			Gamma:             q.Greeks.Gamma,
			Theta:             q.Greeks.Theta,
			Vega:              q.Greeks.Vega,
			ImpliedVolatility: q.Greeks.MidIV,
		}
	}
	return oq, nil
}

// HistoricalBars fetches OHLC candles for an underlying. Daily bars come
// from the history endpoint, intraday bars from timesales.
func (g *TradierGateway) HistoricalBars(ctx context.Context, symbol string, duration string, timeframe models.Timeframe) ([]models.Candle, error) {
	days, err := parseDays(duration)
	if err != nil {
		return nil, apperrors.NewGatewayError("historical_bars", "parsing duration", err)
	}
	start := time.Now().AddDate(0, 0, -days)

	if timeframe == models.TimeframeDaily {
		return g.fetchDailyBars(ctx, symbol, start)
	}
	return g.fetchTimesales(ctx, symbol, start, timeframe)
}

func (g *TradierGateway) fetchDailyBars(ctx context.Context, symbol string, start time.Time) ([]models.Candle, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("interval", "daily")
	params.Add("start", start.Format("2006-01-02"))

	var dto struct {
		History struct {
			Day json.RawMessage `json:"day"`
		} `json:"history"`
	}
	if err := g.get(ctx, "/markets/history", params, &dto); err != nil {
		return nil, apperrors.NewGatewayError("historical_bars", symbol, err)
	}

	type dayDTO struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume int64   `json:"volume"`
	}
	days, err := decodeOneOrMany[dayDTO](dto.History.Day)
	if err != nil {
		return nil, apperrors.NewGatewayError("historical_bars", "decoding bars", err)
	}

	candles := make([]models.Candle, 0, len(days))
	for _, d := range days {
		ts, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    d.Volume,
		})
	}
	return candles, nil
}

func (g *TradierGateway) fetchTimesales(ctx context.Context, symbol string, start time.Time, timeframe models.Timeframe) ([]models.Candle, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("interval", string(timeframe))
	params.Add("start", start.Format("2006-01-02 15:04"))
	params.Add("session_filter", "open")

	var dto struct {
		Series struct {
			Data json.RawMessage `json:"data"`
		} `json:"series"`
	}
	if err := g.get(ctx, "/markets/timesales", params, &dto); err != nil {
		return nil, apperrors.NewGatewayError("historical_bars", symbol, err)
	}

	type barDTO struct {
		Timestamp int64   `json:"timestamp"`
		Open      float64 `json:"open"`
		High      float64 `json:"high"`
		Low       float64 `json:"low"`
		Close     float64 `json:"close"`
		Volume    int64   `json:"volume"`
	}
	bars, err := decodeOneOrMany[barDTO](dto.Series.Data)
	if err != nil {
		return nil, apperrors.NewGatewayError("historical_bars", "decoding bars", err)
	}

	candles := make([]models.Candle, 0, len(bars))
	for _, b := range bars {
		candles = append(candles, models.Candle{
			Timestamp: time.Unix(b.Timestamp, 0),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return candles, nil
}

// PlaceOrder submits a limit DAY order for one option contract.
func (g *TradierGateway) PlaceOrder(ctx context.Context, contract models.OptionContract, side models.OrderSide, quantity int, limit float64) (OrderHandle, error) {
	occ := contract.Symbol
	if occ == "" {
		occ = OCCSymbol(contract)
	}

	form := url.Values{}
	form.Add("class", "option")
	form.Add("symbol", contract.Underlying)
	form.Add("option_symbol", occ)
	form.Add("side", tradierSide(side))
	form.Add("quantity", strconv.Itoa(quantity))
	form.Add("type", "limit")
	form.Add("duration", "day")
	form.Add("price", strconv.FormatFloat(limit, 'f', 2, 64))

	var dto struct {
		Order struct {
			ID     int    `json:"id"`
			Status string `json:"status"`
		} `json:"order"`
	}
	path := fmt.Sprintf("/accounts/%s/orders", g.accountID)
	if err := g.postForm(ctx, path, form, &dto); err != nil {
		return nil, apperrors.NewGatewayError("place_order", occ, err)
	}

	orderID := strconv.Itoa(dto.Order.ID)
	g.logger.Debug().
		Str("order_id", orderID).
		Str("option_symbol", occ).
		Str("side", string(side)).
		Int("quantity", quantity).
		Float64("limit", limit).
		Msg("Order placed")

	return &tradierOrder{gw: g, id: orderID, symbol: occ, side: side}, nil
}

// CurrentPositions returns the account's held instruments.
func (g *TradierGateway) CurrentPositions(ctx context.Context) ([]models.Position, error) {
	var dto struct {
		Positions struct {
			Position json.RawMessage `json:"position"`
		} `json:"positions"`
	}
	path := fmt.Sprintf("/accounts/%s/positions", g.accountID)
	if err := g.get(ctx, path, nil, &dto); err != nil {
		// An account with no positions returns "positions": "null".
		if strings.Contains(err.Error(), "cannot unmarshal") {
			return nil, nil
		}
		return nil, apperrors.NewGatewayError("current_positions", g.accountID, err)
	}

	type positionDTO struct {
		Symbol    string  `json:"symbol"`
		Quantity  float64 `json:"quantity"`
		CostBasis float64 `json:"cost_basis"`
	}
	dtos, err := decodeOneOrMany[positionDTO](dto.Positions.Position)
	if err != nil {
		return nil, apperrors.NewGatewayError("current_positions", "decoding positions", err)
	}

	positions := make([]models.Position, 0, len(dtos))
	for _, p := range dtos {
		qty := int(p.Quantity)
		avg := 0.0
		if qty != 0 {
			avg = p.CostBasis / float64(qty) / 100
		}
		positions = append(positions, models.Position{
			Symbol:       p.Symbol,
			Quantity:     qty,
			AveragePrice: avg,
		})
	}
	return positions, nil
}

// tradierOrder implements OrderHandle by polling the order status endpoint.
type tradierOrder struct {
	gw        *TradierGateway
	id        string
	symbol    string
	side      models.OrderSide
	fillPrice float64
}

func (o *tradierOrder) ID() string { return o.id }

func (o *tradierOrder) IsDone(ctx context.Context) (bool, error) {
	var dto struct {
		Order struct {
			Status       string  `json:"status"`
			AvgFillPrice float64 `json:"avg_fill_price"`
		} `json:"order"`
	}
	path := fmt.Sprintf("/accounts/%s/orders/%s", o.gw.accountID, o.id)
	if err := o.gw.get(ctx, path, nil, &dto); err != nil {
		return false, apperrors.NewGatewayError("order_status", o.id, err)
	}

	switch dto.Order.Status {
	case "filled":
		o.fillPrice = dto.Order.AvgFillPrice
		return true, nil
	case "rejected":
		return false, apperrors.NewOrderError(o.id, o.symbol, string(o.side), "rejected by broker", apperrors.ErrOrderRejected)
	default:
		return false, nil
	}
}

func (o *tradierOrder) FillPrice() float64 { return o.fillPrice }

func (o *tradierOrder) Cancel(ctx context.Context) error {
	path := fmt.Sprintf("/accounts/%s/orders/%s", o.gw.accountID, o.id)
	if err := o.gw.del(ctx, path); err != nil {
		return apperrors.NewGatewayError("cancel_order", o.id, err)
	}
	return nil
}

// quoteDTO is the shared shape of the Tradier quotes endpoint.
type quoteDTO struct {
	Symbol      string     `json:"symbol"`
	Description string     `json:"description"`
	Exchange    string     `json:"exch"`
	Last        float64    `json:"last"`
	Bid         float64    `json:"bid"`
	Ask         float64    `json:"ask"`
	Volume      int64      `json:"volume"`
	Greeks      *greeksDTO `json:"greeks"`
}

type greeksDTO struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	MidIV float64 `json:"mid_iv"`
}

// fetchQuotes retries transient failures; a dropped quote request must
// not kill a session that is holding a position.
func (g *TradierGateway) fetchQuotes(ctx context.Context, symbols string, greeks bool) ([]quoteDTO, error) {
	params := url.Values{}
	params.Add("symbols", symbols)
	if greeks {
		params.Add("greeks", "true")
	}

	return utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() ([]quoteDTO, error) {
		var dto struct {
			Quotes struct {
				Quote json.RawMessage `json:"quote"`
			} `json:"quotes"`
		}
		if err := g.get(ctx, "/markets/quotes", params, &dto); err != nil {
			return nil, err
		}
		return decodeOneOrMany[quoteDTO](dto.Quotes.Quote)
	})
}

func (g *TradierGateway) get(ctx context.Context, path string, params url.Values, target interface{}) error {
	fullURL := g.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return g.do(req, target)
}

func (g *TradierGateway) postForm(ctx context.Context, path string, form url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req, target)
}

func (g *TradierGateway) del(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return g.do(req, nil)
}

func (g *TradierGateway) do(req *http.Request, target interface{}) error {
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", g.token))

	res, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(res.Body)
		if readErr != nil {
			return fmt.Errorf("invalid status code %s", res.Status)
		}
		return fmt.Errorf("invalid status code %s: %s", res.Status, string(body))
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeOneOrMany decodes a Tradier payload that is an array for
// multiple items, a bare object for one, or the string "null" for none.
func decodeOneOrMany[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" || trimmed == `"null"` {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var many []T
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

// OCCSymbol builds the OCC identifier for an option contract, e.g.
// AAPL240621C00190000.
func OCCSymbol(c models.OptionContract) string {
	right := "C"
	if c.Right == models.RightPut {
		right = "P"
	}
	return fmt.Sprintf("%s%s%s%08d", c.Underlying, c.Expiry.Format("060102"), right, int(c.Strike*1000+0.5))
}

func tradierSide(side models.OrderSide) string {
	if side == models.OrderSideSell {
		return "sell_to_close"
	}
	return "buy_to_open"
}

func parseDays(duration string) (int, error) {
	s := strings.TrimSpace(strings.ToLower(duration))
	if !strings.HasSuffix(s, "d") {
		return 0, fmt.Errorf("unsupported duration %q (expected e.g. \"2d\")", duration)
	}
	days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
	if err != nil || days < 1 {
		return 0, fmt.Errorf("unsupported duration %q", duration)
	}
	return days, nil
}
