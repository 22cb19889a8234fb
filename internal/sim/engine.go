package sim

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"illuminator/internal/agent"
	"illuminator/internal/market"
	"illuminator/internal/model"
)

// Scenario wires one run: the horizon, the participants and the three
// market components. Markets and agents live for exactly one run.
type Scenario struct {
	Start model.Slot
	End   model.Slot

	RTBuyPrice  float64
	RTSellPrice float64

	Agents   []*agent.Prosumer
	DayAhead *market.DayAheadMarket
	P2P      *market.P2PMarket
	Balancer *market.RealTimeBalancer
}

type Engine struct{}

func New() *Engine { return &Engine{} }

// Run drives the lock-step schedule: for every 15-minute slot each agent
// is stepped once, its bids are routed to the markets, the markets are
// stepped once, and market feedback is carried to the agents on the next
// slot. Single-threaded by design; the freeze-once-cleared markets rely
// on it.
func (e *Engine) Run(sc *Scenario) (*Result, error) {
	if sc == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	if sc.DayAhead == nil || sc.P2P == nil || sc.Balancer == nil {
		return nil, fmt.Errorf("scenario is missing a market component")
	}
	if len(sc.Agents) == 0 {
		return nil, fmt.Errorf("no agents")
	}
	slots := model.SlotsBetween(sc.Start, sc.End, model.SlotDuration)
	if len(slots) == 0 {
		return nil, fmt.Errorf("empty horizon")
	}

	runID := uuid.New().String()
	logger := log.WithFields(log.Fields{"run": runID, "agents": len(sc.Agents), "slots": len(slots)})
	logger.Info("run started")

	ledger := make([]LedgerRow, 0, len(slots))
	emFeedback := map[string]*market.Feedback{}
	p2pFeedback := map[string]*market.TransactionBook{}

	for idx, slot := range slots {
		emSubs := map[string]market.Submission{}
		p2pSubs := map[string]market.P2PSubmission{}
		rtBuys := map[string]float64{}
		rtSells := map[string]float64{}

		row := LedgerRow{Index: idx, Slot: slot}

		for _, ag := range sc.Agents {
			out, err := ag.Step(agent.StepInput{
				Now:        slot,
				EMFeedback: emFeedback[ag.Name()],
				P2PBook:    p2pFeedback[ag.Name()],
			})
			if err != nil {
				return nil, fmt.Errorf("slot %s agent %s: %w", slot, ag.Name(), err)
			}

			if len(out.EMSupplyBids) > 0 || len(out.EMDemandBids) > 0 {
				emSubs[ag.Name()] = market.Submission{
					SupplyBids: out.EMSupplyBids,
					DemandBids: out.EMDemandBids,
				}
			}
			if len(out.P2POffers) > 0 || len(out.P2PRequests) > 0 {
				p2pSubs[ag.Name()] = market.P2PSubmission{
					Offers:   out.P2POffers,
					Requests: out.P2PRequests,
				}
			}
			if out.RTBuy > 0 {
				rtBuys[ag.Name()] = out.RTBuy
			}
			if out.RTSell > 0 {
				rtSells[ag.Name()] = out.RTSell
			}
			row.DeliveredEM += out.P2EM
			row.DeliveredP2P += out.P2P2P
		}

		emStep, err := sc.DayAhead.Step(slot, emSubs)
		if err != nil {
			return nil, fmt.Errorf("slot %s day-ahead: %w", slot, err)
		}
		p2pStep, err := sc.P2P.Step(slot, p2pSubs)
		if err != nil {
			return nil, fmt.Errorf("slot %s p2p: %w", slot, err)
		}
		rtStep, err := sc.Balancer.Settle(slot, sc.RTBuyPrice, sc.RTSellPrice, rtBuys, rtSells)
		if err != nil {
			return nil, fmt.Errorf("slot %s balancer: %w", slot, err)
		}

		// Feedback produced this slot reaches agents on the next one. A
		// submitter the market will never serve (bids arriving after the
		// freeze) still gets empty feedback, so its phase machine can
		// settle with nothing locked in.
		for name, fb := range emStep.Accepted {
			emFeedback[name] = fb
		}
		for name, sub := range emSubs {
			if _, ok := emFeedback[name]; ok {
				continue
			}
			fb := &market.Feedback{}
			if len(sub.SupplyBids) > 0 {
				fb.SupplyBids = []market.AcceptedBid{}
			}
			if len(sub.DemandBids) > 0 {
				fb.DemandBids = []market.AcceptedBid{}
			}
			emFeedback[name] = fb
		}
		for name, book := range p2pStep.Transactions {
			p2pFeedback[name] = book
		}
		for name := range p2pSubs {
			if _, ok := p2pFeedback[name]; !ok {
				p2pFeedback[name] = &market.TransactionBook{}
			}
		}

		row.DayAheadPrice = emStep.Price
		row.DayAheadQuantity = emStep.Quantity
		row.P2PQuantityTraded = p2pStep.QuantityTraded
		row.RTBuyPrice = rtStep.BuyPrice
		row.RTSellPrice = rtStep.SellPrice
		for _, q := range rtBuys {
			row.RTBought += q
		}
		for _, q := range rtSells {
			row.RTSold += q
		}
		ledger = append(ledger, row)
	}

	logger.Info("run finished")

	return &Result{
		RunID:        runID,
		Ledger:       ledger,
		Settlements:  sc.DayAhead.Settlements(),
		Trades:       sc.P2P.Trades(),
		Transactions: sc.P2P.Transactions(),
	}, nil
}
