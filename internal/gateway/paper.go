package gateway

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	apperrors "options-trader/internal/errors"
	"options-trader/internal/models"
)

// PaperGateway implements Gateway as an in-memory simulation. It serves
// scripted or synthetic market data and fills orders after a configurable
// number of status checks, which makes it usable both for paper trading
// and for exercising the trade lifecycle in tests.
type PaperGateway struct {
	mu sync.Mutex

	connected       bool
	connectCount    int
	disconnectCount int

	chains       map[string]models.ChainParams
	spotSeries   map[string][]models.Quote
	optionSeries map[string][]models.OptionQuote
	bars         map[string][]models.Candle

	synthetic     map[string]float64 // underlying -> spot for generated data
	fillAfter     int                // total status checks before orders start filling
	checksSeen    int
	maxFills      int // 0 = unlimited
	fillCount     int
	neverFill     bool
	confirmFills  bool // create a position when an order fills
	orderCounter  int
	openOrders    int
	overlapped    bool
	placedOrders  []models.Order
	canceledCount int

	positions map[string]*models.Position
}

// NewPaperGateway creates a new paper gateway.
func NewPaperGateway() *PaperGateway {
	return &PaperGateway{
		chains:       make(map[string]models.ChainParams),
		spotSeries:   make(map[string][]models.Quote),
		optionSeries: make(map[string][]models.OptionQuote),
		bars:         make(map[string][]models.Candle),
		synthetic:    make(map[string]float64),
		positions:    make(map[string]*models.Position),
		fillAfter:    1,
		confirmFills: true,
	}
}

// Connect marks the session open.
func (p *PaperGateway) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	p.connectCount++
	return nil
}

// Disconnect releases the session. Idempotent: only the first call after
// a connect counts as a release.
func (p *PaperGateway) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil
	}
	p.connected = false
	p.disconnectCount++
	return nil
}

// SeedSynthetic registers an underlying with generated chain data around
// the given spot price. Quotes for any contract on that underlying are
// derived from moneyness, so paper mode works without any scripting.
func (p *PaperGateway) SeedSynthetic(symbol string, spot float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.synthetic[symbol] = spot

	var strikes []float64
	step := strikeStep(spot)
	for s := spot * 0.8; s <= spot*1.2; s += step {
		strikes = append(strikes, math.Round(s/step)*step)
	}
	p.chains[symbol] = models.ChainParams{
		Underlying:   symbol,
		Expirations:  []time.Time{nextFriday(time.Now()), nextFriday(time.Now()).AddDate(0, 0, 7)},
		Strikes:      strikes,
		TradingClass: symbol,
		Multiplier:   100,
	}
}

// SetChain registers scripted chain parameters for an underlying.
func (p *PaperGateway) SetChain(chain models.ChainParams) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chains[chain.Underlying] = chain
}

// SetSpotSeries scripts the spot prices served for a symbol, in order.
// The last price repeats once the series is exhausted.
func (p *PaperGateway) SetSpotSeries(symbol string, prices []float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	quotes := make([]models.Quote, 0, len(prices))
	for _, price := range prices {
		quotes = append(quotes, models.Quote{
			Symbol: symbol,
			Last:   price,
			Bid:    price - 0.01,
			Ask:    price + 0.01,
		})
	}
	p.spotSeries[symbol] = quotes
}

// SetOptionQuoteSeries scripts the option quotes served for a contract
// identity, in order. The last quote repeats once exhausted.
func (p *PaperGateway) SetOptionQuoteSeries(occSymbol string, quotes []models.OptionQuote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.optionSeries[occSymbol] = quotes
}

// SetBars scripts historical candles for a symbol.
func (p *PaperGateway) SetBars(symbol string, bars []models.Candle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars[symbol] = bars
}

// SetFillAfterChecks delays fills until the gateway has seen n status
// checks in total, which lets a test force several re-peg attempts
// before an order goes through.
func (p *PaperGateway) SetFillAfterChecks(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fillAfter = n
}

// SetMaxFills caps how many orders fill; later orders stay open. A cap
// of 1 simulates an entry that fills and an exit that never does.
func (p *PaperGateway) SetMaxFills(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxFills = n
}

// NeverFill makes all orders stay open forever.
func (p *PaperGateway) NeverFill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.neverFill = true
}

// SuppressPositionOnFill stops fills from creating positions. Used to
// simulate a fill that the account does not confirm.
func (p *PaperGateway) SuppressPositionOnFill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmFills = false
}

// ResolveContract qualifies an underlying symbol.
func (p *PaperGateway) ResolveContract(ctx context.Context, symbol string) (models.Instrument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.chains[symbol]; !ok {
		if _, ok := p.spotSeries[symbol]; !ok {
			return models.Instrument{}, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "resolving %s", symbol)
		}
	}
	return models.Instrument{Symbol: symbol, Exchange: "PAPER", Currency: "USD"}, nil
}

// ResolveOptionChain returns the registered chain for an underlying.
func (p *PaperGateway) ResolveOptionChain(ctx context.Context, symbol string) (models.ChainParams, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	chain, ok := p.chains[symbol]
	if !ok {
		return models.ChainParams{}, apperrors.Wrapf(apperrors.ErrEmptyChain, "no chain for %s", symbol)
	}
	return chain, nil
}

// Quote serves the next scripted spot price, or a synthetic one.
func (p *PaperGateway) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	series := p.spotSeries[symbol]
	if len(series) > 0 {
		quote := series[0]
		if len(series) > 1 {
			p.spotSeries[symbol] = series[1:]
		}
		quote.Timestamp = time.Now()
		return quote, nil
	}
	if spot, ok := p.synthetic[symbol]; ok {
		return models.Quote{Symbol: symbol, Last: spot, Bid: spot - 0.01, Ask: spot + 0.01, Timestamp: time.Now()}, nil
	}
	return models.Quote{}, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "quoting %s", symbol)
}

// OptionQuote serves the next scripted option quote, or a synthetic one
// derived from moneyness.
func (p *PaperGateway) OptionQuote(ctx context.Context, contract models.OptionContract) (models.OptionQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	occ := contract.Symbol
	if occ == "" {
		occ = OCCSymbol(contract)
	}
	series := p.optionSeries[occ]
	if len(series) > 0 {
		quote := series[0]
		if len(series) > 1 {
			p.optionSeries[occ] = series[1:]
		}
		quote.Timestamp = time.Now()
		return quote, nil
	}
	if spot, ok := p.synthetic[contract.Underlying]; ok {
		return syntheticOptionQuote(contract, spot), nil
	}
	return models.OptionQuote{}, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "quoting option %s", occ)
}

// HistoricalBars returns scripted candles, or a flat synthetic series.
func (p *PaperGateway) HistoricalBars(ctx context.Context, symbol string, duration string, timeframe models.Timeframe) ([]models.Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bars, ok := p.bars[symbol]; ok {
		return bars, nil
	}
	if spot, ok := p.synthetic[symbol]; ok {
		bars := make([]models.Candle, 0, 10)
		for i := 9; i >= 0; i-- {
			bars = append(bars, models.Candle{
				Timestamp: time.Now().Add(-time.Duration(i) * time.Minute),
				Open:      spot, High: spot, Low: spot, Close: spot,
			})
		}
		return bars, nil
	}
	return nil, apperrors.Wrapf(apperrors.ErrDataNotFound, "no bars for %s", symbol)
}

// PlaceOrder records a simulated limit order.
func (p *PaperGateway) PlaceOrder(ctx context.Context, contract models.OptionContract, side models.OrderSide, quantity int, limit float64) (OrderHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return nil, apperrors.ErrNotConnected
	}
	if p.openOrders > 0 {
		p.overlapped = true
	}

	p.orderCounter++
	p.openOrders++
	order := models.Order{
		ID:       fmt.Sprintf("PAPER_%d", p.orderCounter),
		Contract: contract,
		Side:     side,
		Quantity: quantity,
		Limit:    limit,
		Status:   models.OrderStatusOpen,
		PlacedAt: time.Now(),
	}
	p.placedOrders = append(p.placedOrders, order)

	return &paperOrder{gw: p, order: order}, nil
}

// CurrentPositions returns the simulated position ledger.
func (p *PaperGateway) CurrentPositions(ctx context.Context) ([]models.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	positions := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		positions = append(positions, *pos)
	}
	return positions, nil
}

// AddPosition seeds a held position.
func (p *PaperGateway) AddPosition(symbol string, quantity int, avgPrice float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[symbol] = &models.Position{Symbol: symbol, Quantity: quantity, AveragePrice: avgPrice}
}

// PlacedOrders returns a copy of all orders placed so far.
func (p *PaperGateway) PlacedOrders() []models.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	orders := make([]models.Order, len(p.placedOrders))
	copy(orders, p.placedOrders)
	return orders
}

// DisconnectCount returns how many times the session was actually
// released.
func (p *PaperGateway) DisconnectCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnectCount
}

// Overlapped reports whether two orders were ever pending at once.
func (p *PaperGateway) Overlapped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlapped
}

// CanceledCount returns how many orders were canceled.
func (p *PaperGateway) CanceledCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canceledCount
}

// paperOrder implements OrderHandle against the simulated ledger.
type paperOrder struct {
	gw       *PaperGateway
	order    models.Order
	filled   bool
	canceled bool
}

func (o *paperOrder) ID() string { return o.order.ID }

func (o *paperOrder) IsDone(ctx context.Context) (bool, error) {
	o.gw.mu.Lock()
	defer o.gw.mu.Unlock()

	if o.filled {
		return true, nil
	}
	if o.canceled {
		return false, nil
	}

	o.gw.checksSeen++
	if o.gw.neverFill || o.gw.checksSeen < o.gw.fillAfter {
		return false, nil
	}
	if o.gw.maxFills > 0 && o.gw.fillCount >= o.gw.maxFills {
		return false, nil
	}

	o.filled = true
	o.gw.fillCount++
	o.gw.openOrders--
	if o.gw.confirmFills {
		o.gw.applyFill(o.order)
	}
	return true, nil
}

func (o *paperOrder) FillPrice() float64 { return o.order.Limit }

func (o *paperOrder) Cancel(ctx context.Context) error {
	o.gw.mu.Lock()
	defer o.gw.mu.Unlock()

	if o.filled || o.canceled {
		return nil
	}
	o.canceled = true
	o.gw.openOrders--
	o.gw.canceledCount++
	return nil
}

// applyFill updates the position ledger. Caller holds the lock.
func (p *PaperGateway) applyFill(order models.Order) {
	occ := order.Contract.Symbol
	if occ == "" {
		occ = OCCSymbol(order.Contract)
	}
	pos, ok := p.positions[occ]
	if !ok {
		pos = &models.Position{Symbol: occ}
		p.positions[occ] = pos
	}
	if order.Side == models.OrderSideBuy {
		pos.Quantity += order.Quantity
		pos.AveragePrice = order.Limit
	} else {
		pos.Quantity -= order.Quantity
		if pos.Quantity <= 0 {
			delete(p.positions, occ)
		}
	}
}

// syntheticOptionQuote derives a plausible quote from moneyness.
func syntheticOptionQuote(contract models.OptionContract, spot float64) models.OptionQuote {
	m := (contract.Strike - spot) / spot
	if contract.Right == models.RightPut {
		m = -m
	}

	ask := math.Max(0.05, spot*0.04*math.Exp(-math.Abs(m)*6))
	bid := math.Max(0, ask-0.05)

	delta := clampFloat(0.5-2.0*m, 0.02, 0.98)
	if contract.Right == models.RightPut {
		delta = -clampFloat(0.5+2.0*m, 0.02, 0.98)
	}

	return models.OptionQuote{
		Bid:  bid,
		Ask:  ask,
		Last: (bid + ask) / 2,
		Greeks: &models.Greeks{
			Delta:             delta,
			Gamma:             0.08 * math.Exp(-math.Abs(m)*8),
			Theta:             -0.05 * ask,
			Vega:              0.10 * ask,
			ImpliedVolatility: 0.25 + math.Abs(m),
		},
		Timestamp: time.Now(),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func strikeStep(spot float64) float64 {
	switch {
	case spot < 50:
		return 1
	case spot < 200:
		return 2.5
	default:
		return 5
	}
}

func nextFriday(t time.Time) time.Time {
	d := (int(time.Friday) - int(t.Weekday()) + 7) % 7
	if d == 0 {
		d = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}
