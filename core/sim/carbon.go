package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/gridplan/core/dispatch"
	"github.com/kilianp07/gridplan/core/model"
	"github.com/kilianp07/gridplan/core/solver"
)

// resolveCarbon runs the full-system dispatch for the year and settles the
// carbon price. With a budget configured the price is the budget row's
// shadow price; a negative dual means the budget is slack and the price is
// zero. An infeasible budget falls back to an unconstrained dispatch priced
// at the previous year's carbon price, with a warning.
func (r *Runner) resolveCarbon(year int, portfolio model.Portfolio, prevCO2 float64) (*dispatch.Result, float64, error) {
	carbon := r.model.Carbon
	if carbon == nil {
		res, err := r.dispatch(year, portfolio, dispatch.Options{})
		return res, 0, err
	}
	if budget, ok := carbon.BudgetFor(year); ok {
		res, err := r.dispatch(year, portfolio, dispatch.Options{CO2Budget: &budget})
		switch {
		case errors.Is(err, solver.ErrInfeasible):
			r.warn(Warning{
				Year:        year,
				Kind:        WarnBudgetNotMet,
				Commodities: []model.CommodityID{carbon.Commodity},
				Message:     fmt.Sprintf("carbon budget %g infeasible in %d, keeping price %g", budget, year, prevCO2),
				Time:        time.Now(),
			})
			res, err = r.dispatch(year, portfolio, dispatch.Options{CO2Price: &prevCO2})
			return res, prevCO2, err
		case err != nil:
			return nil, 0, err
		}
		price := 0.0
		if res.CO2Dual != nil {
			price = -*res.CO2Dual
		}
		if price < 0 {
			// budget slack, price settles at zero without the cap
			res, err = r.dispatch(year, portfolio, dispatch.Options{})
			return res, 0, err
		}
		return res, price, nil
	}
	if price, ok := carbon.PriceFor(year); ok {
		res, err := r.dispatch(year, portfolio, dispatch.Options{CO2Price: &price})
		return res, price, err
	}
	res, err := r.dispatch(year, portfolio, dispatch.Options{})
	return res, 0, err
}
