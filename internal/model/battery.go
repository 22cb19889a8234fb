package model

import (
	"errors"
	"math"
)

// BatteryParams defines the physical parameters of a storage asset.
// Units:
// - EnergyCapacityKWh: kWh
// - PowerCapacityKW: kW
// - Efficiencies: 0..1
// - SOC: fraction 0..1
type BatteryParams struct {
	EnergyCapacityKWh   float64
	PowerCapacityKW     float64
	ChargeEfficiency    float64
	DischargeEfficiency float64
	MinSOC              float64
	MaxSOC              float64
}

// BatteryState captures mutable state.
type BatteryState struct {
	// SOC is the state of charge as a fraction [0,1].
	SOC float64
}

// Battery is a bounds-clamped storage transfer function. It has no control
// logic of its own; prosumers use it to turn a requested flow into a
// feasible one and to track SOC across slots.
type Battery struct {
	Params BatteryParams
	State  BatteryState
}

func NewBattery(params BatteryParams, initialSOC float64) (*Battery, error) {
	b := &Battery{
		Params: params,
		State:  BatteryState{SOC: initialSOC},
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Battery) Validate() error {
	p := b.Params
	if p.EnergyCapacityKWh <= 0 {
		return errors.New("EnergyCapacityKWh must be > 0")
	}
	if p.PowerCapacityKW <= 0 {
		return errors.New("PowerCapacityKW must be > 0")
	}
	if p.ChargeEfficiency <= 0 || p.ChargeEfficiency > 1 {
		return errors.New("ChargeEfficiency must be in (0, 1]")
	}
	if p.DischargeEfficiency <= 0 || p.DischargeEfficiency > 1 {
		return errors.New("DischargeEfficiency must be in (0, 1]")
	}
	if p.MinSOC < 0 || p.MinSOC > 1 || p.MaxSOC < 0 || p.MaxSOC > 1 || p.MinSOC > p.MaxSOC {
		return errors.New("MinSOC/MaxSOC must satisfy 0<=MinSOC<=MaxSOC<=1")
	}
	if b.State.SOC < p.MinSOC || b.State.SOC > p.MaxSOC {
		return errors.New("initial SOC must be within [MinSOC, MaxSOC]")
	}
	return nil
}

// DischargeHeadroomKW is the maximum deliverable power for one slot given
// the current SOC.
func (b *Battery) DischargeHeadroomKW(slotHours float64) float64 {
	withdrawableKWh := (b.State.SOC - b.Params.MinSOC) * b.Params.EnergyCapacityKWh
	if withdrawableKWh <= 0 {
		return 0
	}
	limitBySOC := withdrawableKWh * b.Params.DischargeEfficiency / slotHours
	return math.Min(limitBySOC, b.Params.PowerCapacityKW)
}

// ChargeHeadroomKW is the maximum absorbable power for one slot given the
// current SOC.
func (b *Battery) ChargeHeadroomKW(slotHours float64) float64 {
	storableKWh := (b.Params.MaxSOC - b.State.SOC) * b.Params.EnergyCapacityKWh
	if storableKWh <= 0 {
		return 0
	}
	limitBySOC := storableKWh / b.Params.ChargeEfficiency / slotHours
	return math.Min(limitBySOC, b.Params.PowerCapacityKW)
}

// Apply realizes a requested flow for one slot and advances SOC.
// Convention: positive kW = discharge, negative kW = charge. The request is
// clamped to power and SOC limits; the realized flow is returned.
func (b *Battery) Apply(requestKW float64, slotHours float64) float64 {
	if slotHours <= 0 {
		return 0
	}
	switch {
	case requestKW > 0:
		flow := math.Min(requestKW, b.DischargeHeadroomKW(slotHours))
		withdrawnKWh := flow * slotHours / b.Params.DischargeEfficiency
		b.State.SOC = clamp01(b.State.SOC - withdrawnKWh/b.Params.EnergyCapacityKWh)
		return flow
	case requestKW < 0:
		flow := math.Min(-requestKW, b.ChargeHeadroomKW(slotHours))
		storedKWh := flow * slotHours * b.Params.ChargeEfficiency
		b.State.SOC = clamp01(b.State.SOC + storedKWh/b.Params.EnergyCapacityKWh)
		return -flow
	default:
		return 0
	}
}

// SOCSeries projects the state of charge over a horizon for a battery that
// follows the given net flow series (positive = discharge). The battery's
// own state is not modified.
func (b *Battery) SOCSeries(slots []Slot, flows Series) Series {
	proj := *b
	out := NewSeries()
	hours := SlotDuration.Hours()
	for _, slot := range slots {
		proj.Apply(flows.At(slot), hours)
		out.Set(slot, proj.State.SOC)
	}
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
