package model

import "fmt"

// AgentID identifies an agent.
type AgentID string

// Objective is the single-objective appraisal rule an agent uses.
type Objective int

const (
	// ObjectiveNPV ranks investment options by profitability index.
	ObjectiveNPV Objective = iota
	// ObjectiveLCOX ranks investment options by levelised cost.
	ObjectiveLCOX
)

func (o Objective) String() string {
	switch o {
	case ObjectiveNPV:
		return "npv"
	case ObjectiveLCOX:
		return "lcox"
	}
	return fmt.Sprintf("Objective(%d)", int(o))
}

// PortionKey locates a responsibility portion.
type PortionKey struct {
	Commodity CommodityID
	Region    RegionID
}

// Agent is a decision maker responsible for a share of commodity demand.
// Only the "simple" single-objective decision rule is supported.
type Agent struct {
	ID        AgentID
	Regions   map[RegionID]bool
	Objective Objective
	// Portions are the shares of demand the agent is responsible for.
	// Across agents they must sum to one per commodity and region.
	Portions map[PortionKey]float64
}
