package agent

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"illuminator/internal/market"
	"illuminator/internal/model"
)

// Strategy selects the order in which a prosumer plays its two games
// within a run. It is plain data, not behavior: the phase machine is the
// same for every strategy.
type Strategy int

const (
	// MarketFirst settles the wholesale market before opening the
	// flexibility game.
	MarketFirst Strategy = iota
	// P2PFirst is the mirror image.
	P2PFirst
	// MarketOnly never enters the flexibility game.
	MarketOnly
)

func (s Strategy) String() string {
	switch s {
	case P2PFirst:
		return "p2p_first"
	case MarketOnly:
		return "market_only"
	default:
		return "market_first"
	}
}

// ParseStrategy maps the configuration spelling to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "market_first":
		return MarketFirst, nil
	case "p2p_first":
		return P2PFirst, nil
	case "market_only":
		return MarketOnly, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
}

// PhaseFlags tracks a prosumer's progress through one game. Flags only
// ever advance: (F,F,F) -> (T,F,F) -> (T,T,F) -> (T,T,T), one transition
// per step, never back.
type PhaseFlags struct {
	Initiated     bool
	BidsSubmitted bool
	Settled       bool
}

// Config describes one prosumer at construction time. Forecast series and
// metrics are supplied once; nothing is reloaded during a run.
type Config struct {
	Name     string
	Strategy Strategy
	// Strict turns merit-order consistency violations into errors instead
	// of warnings.
	Strict bool

	Generators []model.AssetRow
	Demands    []model.AssetRow
	// Storages contribute a state-of-charge forecast; they do not bid.
	Storages []model.AssetRow
}

// StepInput is what the orchestrator hands the agent each step: the
// current slot plus market feedback from the previous step. Nil feedback
// means "no news yet", which is different from empty feedback.
type StepInput struct {
	Now        model.Slot
	EMFeedback *market.Feedback
	P2PBook    *market.TransactionBook
}

// StepOutput is everything the agent emits for one step.
type StepOutput struct {
	EMSupplyBids []market.Bid
	EMDemandBids []market.Bid

	P2POffers   []market.Bid
	P2PRequests []market.Bid

	// P2EM and P2P2P are real-time delivery instructions for positions
	// locked in at this exact slot: positive for delivery, negative for
	// consumption.
	P2EM  float64
	P2P2P float64

	// RTBuy and RTSell are the residual imbalances handed to the
	// balancing market once all games are settled.
	RTBuy  float64
	RTSell float64

	// RTPriceRequest is emitted on every step: agents always track the
	// quoted balancing prices.
	RTPriceRequest bool
}

// Prosumer is a per-agent bidding state machine. It is constructed once
// per run with its full forecast, advances its phase flags monotonically,
// and only ever appends to its books.
type Prosumer struct {
	cfg   Config
	slots []model.Slot

	generation model.Series
	demand     model.Series
	soc        model.Series
	net        model.Series
	excess     model.Series
	deficit    model.Series

	em  PhaseFlags
	p2p PhaseFlags

	emAccepted *market.Feedback
	p2pBook    *market.TransactionBook

	logger *log.Entry
}

// New builds a prosumer and derives its aggregate forecast position:
// net = generation - demand per slot, split into excess (positive part)
// and deficit (negative part).
func New(cfg Config, slots []model.Slot) (*Prosumer, error) {
	if cfg.Name == "" {
		return nil, errors.New("prosumer name is required")
	}
	if len(slots) == 0 {
		return nil, errors.New("horizon is empty")
	}
	for _, a := range append(append(append([]model.AssetRow{}, cfg.Generators...), cfg.Demands...), cfg.Storages...) {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("prosumer %s: %w", cfg.Name, err)
		}
	}

	p := &Prosumer{
		cfg:        cfg,
		slots:      slots,
		generation: model.NewSeries(),
		demand:     model.NewSeries(),
		soc:        model.NewSeries(),
		net:        model.NewSeries(),
		excess:     model.NewSeries(),
		deficit:    model.NewSeries(),
		logger:     log.WithField("prosumer", cfg.Name),
	}
	for _, slot := range slots {
		gen := 0.0
		for _, a := range cfg.Generators {
			gen += a.Series.At(slot)
		}
		dem := 0.0
		for _, a := range cfg.Demands {
			dem += a.Series.At(slot)
		}
		soc := 0.0
		for _, a := range cfg.Storages {
			soc += a.Series.At(slot)
		}
		net := gen - dem
		p.generation.Set(slot, gen)
		p.demand.Set(slot, dem)
		p.soc.Set(slot, soc)
		p.net.Set(slot, net)
		if net > 0 {
			p.excess.Set(slot, net)
			p.deficit.Set(slot, 0)
		} else {
			p.excess.Set(slot, 0)
			p.deficit.Set(slot, net)
		}
	}
	return p, nil
}

func (p *Prosumer) Name() string          { return p.cfg.Name }
func (p *Prosumer) EMPhase() PhaseFlags   { return p.em }
func (p *Prosumer) P2PPhase() PhaseFlags  { return p.p2p }
func (p *Prosumer) Excess() model.Series  { return p.excess }
func (p *Prosumer) Deficit() model.Series { return p.deficit }

// Step advances the agent by exactly one simulated step. The two games
// run in strategy order; the second game only opens once the first has
// settled.
func (p *Prosumer) Step(in StepInput) (StepOutput, error) {
	out := StepOutput{RTPriceRequest: true}

	switch p.cfg.Strategy {
	case P2PFirst:
		if err := p.stepP2P(in, &out); err != nil {
			return out, err
		}
		if p.p2p.Settled {
			if err := p.stepEM(in, &out); err != nil {
				return out, err
			}
		}
	case MarketOnly:
		if err := p.stepEM(in, &out); err != nil {
			return out, err
		}
	default: // MarketFirst
		if err := p.stepEM(in, &out); err != nil {
			return out, err
		}
		if p.em.Settled {
			if err := p.stepP2P(in, &out); err != nil {
				return out, err
			}
		}
	}

	if p.gamesSettled() {
		out.RTSell = p.excess.At(in.Now)
		out.RTBuy = -p.deficit.At(in.Now)
	}
	return out, nil
}

func (p *Prosumer) gamesSettled() bool {
	if p.cfg.Strategy == MarketOnly {
		return p.em.Settled
	}
	return p.em.Settled && p.p2p.Settled
}

// stepEM advances the wholesale-market game by one phase.
func (p *Prosumer) stepEM(in StepInput, out *StepOutput) error {
	switch {
	case !p.em.Initiated:
		p.em.Initiated = true

	case !p.em.BidsSubmitted:
		supply, err := buildSupplyBids(p.cfg.Name, p.slots, p.cfg.Generators, p.demand, p.excess, marketMetric, p.cfg.Strict, p.logger)
		if err != nil {
			return err
		}
		demand, err := buildDemandBids(p.cfg.Name, p.slots, p.cfg.Demands, p.generation, p.deficit, marketMetric, p.cfg.Strict, p.logger)
		if err != nil {
			return err
		}
		out.EMSupplyBids = supply
		out.EMDemandBids = demand
		p.em.BidsSubmitted = true
		p.logger.WithFields(log.Fields{
			"supply_bids": len(supply),
			"demand_bids": len(demand),
		}).Info("wholesale bids submitted")

	case !p.em.Settled:
		if in.EMFeedback == nil {
			return nil
		}
		p.emAccepted = in.EMFeedback
		for _, ab := range in.EMFeedback.SupplyBids {
			p.lockInSupply(ab.Slot, ab.ClearedQuantity, ab.Asset)
		}
		for _, ab := range in.EMFeedback.DemandBids {
			p.lockInDemand(ab.Slot, ab.ClearedQuantity, ab.Asset)
		}
		p.em.Settled = true
		p.logger.Info("wholesale position locked in")

	default:
		out.P2EM = p.deliveryEM(in.Now)
	}
	return nil
}

// stepP2P advances the flexibility-trading game by one phase.
func (p *Prosumer) stepP2P(in StepInput, out *StepOutput) error {
	switch {
	case !p.p2p.Initiated:
		p.p2p.Initiated = true

	case !p.p2p.BidsSubmitted:
		offers, err := buildSupplyBids(p.cfg.Name, p.slots, p.cfg.Generators, p.demand, p.excess, peerMetric, p.cfg.Strict, p.logger)
		if err != nil {
			return err
		}
		requests, err := buildDemandBids(p.cfg.Name, p.slots, p.cfg.Demands, p.generation, p.deficit, peerMetric, p.cfg.Strict, p.logger)
		if err != nil {
			return err
		}
		out.P2POffers = offers
		out.P2PRequests = requests
		p.p2p.BidsSubmitted = true
		p.logger.WithFields(log.Fields{
			"offers":   len(offers),
			"requests": len(requests),
		}).Info("peer trading bids submitted")

	case !p.p2p.Settled:
		if in.P2PBook == nil {
			return nil
		}
		p.p2pBook = in.P2PBook
		for _, e := range in.P2PBook.Sell {
			p.lockInSupply(e.Slot, e.Quantity, "")
		}
		for _, e := range in.P2PBook.Buy {
			p.lockInDemand(e.Slot, e.Quantity, "")
		}
		p.p2p.Settled = true
		p.logger.Info("peer trades locked in")

	default:
		out.P2P2P = p.deliveryP2P(in.Now)
	}
	return nil
}

// lockInSupply permanently reduces the forecast excess (and the producing
// asset's curve) at the slot where a sale was accepted. When the asset is
// unknown the reduction walks the generators in merit order.
func (p *Prosumer) lockInSupply(slot model.Slot, qty float64, asset string) {
	p.excess.Add(slot, -qty)
	p.reduceAssets(p.cfg.Generators, slot, qty, asset)
}

// lockInDemand reduces the forecast shortfall (deficit is stored negative,
// so accepted purchases move it toward zero).
func (p *Prosumer) lockInDemand(slot model.Slot, qty float64, asset string) {
	p.deficit.Add(slot, qty)
	p.reduceAssets(p.cfg.Demands, slot, qty, asset)
}

// reduceAssets takes qty out of the named asset's series, or out of the
// ranked stack when no asset is named (peer trades are matched per agent,
// not per asset).
func (p *Prosumer) reduceAssets(assets []model.AssetRow, slot model.Slot, qty float64, asset string) {
	if asset != "" {
		for _, a := range assets {
			if a.Name == asset {
				a.Series.Add(slot, -qty)
				return
			}
		}
	}
	for _, a := range rankByMetric(assets, peerMetric) {
		have := a.Series.At(slot)
		if have <= 0 {
			continue
		}
		take := qty
		if have < take {
			take = have
		}
		a.Series.Add(slot, -take)
		qty -= take
		if qty <= 0 {
			return
		}
	}
}

// deliveryEM is the signed real-time instruction for wholesale positions
// locked in at exactly this slot.
func (p *Prosumer) deliveryEM(now model.Slot) float64 {
	if p.emAccepted == nil {
		return 0
	}
	total := 0.0
	for _, ab := range p.emAccepted.SupplyBids {
		if ab.Slot.Equal(now) {
			total += ab.ClearedQuantity
		}
	}
	for _, ab := range p.emAccepted.DemandBids {
		if ab.Slot.Equal(now) {
			total -= ab.ClearedQuantity
		}
	}
	return total
}

func (p *Prosumer) deliveryP2P(now model.Slot) float64 {
	if p.p2pBook == nil {
		return 0
	}
	total := 0.0
	for _, e := range p.p2pBook.Sell {
		if e.Slot.Equal(now) {
			total += e.Quantity
		}
	}
	for _, e := range p.p2pBook.Buy {
		if e.Slot.Equal(now) {
			total -= e.Quantity
		}
	}
	return total
}
