// Package input loads a system model from a directory of CSV files and
// cross-validates it before any solve runs.
package input

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/gridplan/core/model"
)

// File names expected in a model directory. Files marked optional may be
// absent.
const (
	fileRegions        = "regions.csv"
	fileTimeSlices     = "time_slices.csv"
	fileCommodities    = "commodities.csv"
	fileDemand         = "demand.csv"
	fileLevies         = "commodity_levies.csv" // optional
	fileProcesses      = "processes.csv"
	fileFlows          = "process_flows.csv"
	fileAvailabilities = "process_availabilities.csv" // optional
	fileAgents         = "agents.csv"
	filePortions       = "agent_portions.csv"
	fileAssets         = "assets.csv" // optional
)

// Load reads the model directory and returns the validated model together
// with the base-year asset portfolio. Milestone years come from the run
// configuration, not from the input files.
func Load(dir string, years []int) (*model.Model, model.Portfolio, error) {
	m := &model.Model{
		Years:       years,
		Commodities: make(map[model.CommodityID]*model.Commodity),
		Processes:   make(map[model.ProcessID]*model.Process),
		Agents:      make(map[model.AgentID]*model.Agent),
	}

	steps := []struct {
		name     string
		optional bool
		load     func(*model.Model, *table) error
	}{
		{fileRegions, false, loadRegions},
		{fileTimeSlices, false, loadTimeSlices},
		{fileCommodities, false, loadCommodities},
		{fileDemand, false, loadDemand},
		{fileLevies, true, loadLevies},
		{fileProcesses, false, loadProcesses},
		{fileFlows, false, loadFlows},
		{fileAvailabilities, true, loadAvailabilities},
		{fileAgents, false, loadAgents},
		{filePortions, false, loadPortions},
	}
	for _, step := range steps {
		tbl, err := readTable(filepath.Join(dir, step.name))
		if err != nil {
			if step.optional && os.IsNotExist(err) {
				continue
			}
			return nil, nil, err
		}
		if err := step.load(m, tbl); err != nil {
			return nil, nil, err
		}
	}

	portfolio, err := loadAssets(m, dir)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}
	return m, portfolio, nil
}

// table is one parsed CSV file: a header index plus its data rows.
type table struct {
	name string
	cols map[string]int
	rows [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header row", filepath.Base(path))
	}
	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.TrimSpace(h)] = i
	}
	return &table{name: filepath.Base(path), cols: cols, rows: records[1:]}, nil
}

// row wraps one record with typed accessors. Accessors record the first
// error; the caller checks it once per row.
type row struct {
	t   *table
	n   int // 1-based data row number
	rec []string
	err error
}

func (t *table) each(fn func(r *row) error) error {
	for i, rec := range t.rows {
		r := &row{t: t, n: i + 1, rec: rec}
		if err := fn(r); err != nil {
			return fmt.Errorf("%s row %d: %w", t.name, r.n, err)
		}
		if r.err != nil {
			return fmt.Errorf("%s row %d: %w", t.name, r.n, r.err)
		}
	}
	return nil
}

func (r *row) str(col string) string {
	idx, ok := r.t.cols[col]
	if !ok {
		r.fail(fmt.Errorf("missing column %q", col))
		return ""
	}
	if idx >= len(r.rec) {
		r.fail(fmt.Errorf("short record, no %q", col))
		return ""
	}
	return strings.TrimSpace(r.rec[idx])
}

func (r *row) float(col string) float64 {
	s := r.str(col)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail(fmt.Errorf("column %q: %w", col, err))
	}
	return v
}

func (r *row) int(col string) int {
	s := r.str(col)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.fail(fmt.Errorf("column %q: %w", col, err))
	}
	return v
}

func (r *row) bool(col string) bool {
	switch s := strings.ToLower(r.str(col)); s {
	case "true", "1", "yes":
		return true
	case "false", "0", "no", "":
		return false
	default:
		r.fail(fmt.Errorf("column %q: invalid boolean %q", col, s))
		return false
	}
}

func (r *row) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func loadRegions(m *model.Model, t *table) error {
	seen := make(map[model.RegionID]bool)
	err := t.each(func(r *row) error {
		id := model.RegionID(r.str("id"))
		if id == "" {
			return fmt.Errorf("empty region id")
		}
		if seen[id] {
			return fmt.Errorf("duplicate region %s", id)
		}
		seen[id] = true
		m.Regions = append(m.Regions, id)
		return nil
	})
	if err != nil {
		return err
	}
	if len(m.Regions) == 0 {
		return fmt.Errorf("%s: no regions defined", t.name)
	}
	return nil
}

func loadTimeSlices(m *model.Model, t *table) error {
	info := &model.TimeSliceInfo{Fractions: make(map[model.TimeSliceID]float64)}
	seasons := make(map[string]bool)
	err := t.each(func(r *row) error {
		ts := model.TimeSliceID{Season: r.str("season"), TimeOfDay: r.str("time_of_day")}
		if _, dup := info.Fractions[ts]; dup {
			return fmt.Errorf("duplicate time slice %s", ts)
		}
		info.Slices = append(info.Slices, ts)
		info.Fractions[ts] = r.float("fraction")
		if !seasons[ts.Season] {
			seasons[ts.Season] = true
			info.Seasons = append(info.Seasons, ts.Season)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.TimeSlices = info
	return nil
}

func loadCommodities(m *model.Model, t *table) error {
	return t.each(func(r *row) error {
		id := model.CommodityID(r.str("id"))
		if _, dup := m.Commodities[id]; dup {
			return fmt.Errorf("duplicate commodity %s", id)
		}
		kind, err := parseKind(r.str("kind"))
		if err != nil {
			return err
		}
		level, err := parseLevel(r.str("balance_level"))
		if err != nil {
			return err
		}
		m.Commodities[id] = &model.Commodity{
			ID:           id,
			Description:  r.str("description"),
			Kind:         kind,
			BalanceLevel: level,
			AllowUnmet:   r.bool("allow_unmet"),
			VoLL:         r.float("voll"),
		}
		return nil
	})
}

func loadDemand(m *model.Model, t *table) error {
	return t.each(func(r *row) error {
		com, err := commodityRef(m, r.str("commodity"))
		if err != nil {
			return err
		}
		if com.Kind != model.KindSVD {
			return fmt.Errorf("demand given for %s commodity %s", com.Kind, com.ID)
		}
		region, err := regionRef(m, r.str("region"))
		if err != nil {
			return err
		}
		ts, err := sliceRef(m, r.str("season"), r.str("time_of_day"))
		if err != nil {
			return err
		}
		if com.Demand == nil {
			com.Demand = make(model.DemandMap)
		}
		key := model.DemandKey{Region: region, Year: r.int("year"), Slice: ts}
		if _, dup := com.Demand[key]; dup {
			return fmt.Errorf("duplicate demand for %s/%s/%d/%s", com.ID, region, key.Year, ts)
		}
		com.Demand[key] = r.float("quantity")
		return nil
	})
}

func loadLevies(m *model.Model, t *table) error {
	return t.each(func(r *row) error {
		com, err := commodityRef(m, r.str("commodity"))
		if err != nil {
			return err
		}
		region, err := regionRef(m, r.str("region"))
		if err != nil {
			return err
		}
		ts, err := sliceRef(m, r.str("season"), r.str("time_of_day"))
		if err != nil {
			return err
		}
		balance, err := parseBalance(r.str("balance"))
		if err != nil {
			return err
		}
		if com.Levies == nil {
			com.Levies = make(model.LevyMap)
		}
		key := model.LevyKey{Region: region, Year: r.int("year"), Slice: ts}
		if _, dup := com.Levies[key]; dup {
			return fmt.Errorf("duplicate levy for %s/%s/%d/%s", com.ID, region, key.Year, ts)
		}
		com.Levies[key] = model.Levy{Balance: balance, Value: r.float("value")}
		return nil
	})
}

func loadProcesses(m *model.Model, t *table) error {
	return t.each(func(r *row) error {
		id := model.ProcessID(r.str("id"))
		if _, dup := m.Processes[id]; dup {
			return fmt.Errorf("duplicate process %s", id)
		}
		regions, err := parseRegionSet(m, r.str("regions"))
		if err != nil {
			return err
		}
		m.Processes[id] = &model.Process{
			ID:          id,
			Description: r.str("description"),
			Regions:     regions,
			StartYear:   r.int("start_year"),
			EndYear:     r.int("end_year"),
			Flexible:    r.bool("flexible"),
			Param: model.ProcessParam{
				CapitalCost:  r.float("capital_cost"),
				FixedOM:      r.float("fixed_om"),
				VarOM:        r.float("var_om"),
				Lifetime:     r.int("lifetime"),
				DiscountRate: r.float("discount_rate"),
				Cap2Act:      r.float("cap2act"),
				CapMaxBuild:  r.float("cap_max_build"),
			},
		}
		return nil
	})
}

func loadFlows(m *model.Model, t *table) error {
	return t.each(func(r *row) error {
		p, err := processRef(m, r.str("process"))
		if err != nil {
			return err
		}
		if _, err := commodityRef(m, r.str("commodity")); err != nil {
			return err
		}
		p.Flows = append(p.Flows, model.Flow{
			Commodity: model.CommodityID(r.str("commodity")),
			Coeff:     r.float("coeff"),
			IsPAC:     r.bool("is_pac"),
			Cost:      r.float("cost"),
			ShareMin:  r.float("share_min"),
			ShareMax:  r.float("share_max"),
		})
		return nil
	})
}

func loadAvailabilities(m *model.Model, t *table) error {
	return t.each(func(r *row) error {
		p, err := processRef(m, r.str("process"))
		if err != nil {
			return err
		}
		level, err := parseLevel(r.str("level"))
		if err != nil {
			return err
		}
		kind, err := parseBound(r.str("kind"))
		if err != nil {
			return err
		}
		av := model.Availability{Level: level, Kind: kind, Value: r.float("value")}
		switch level {
		case model.LevelSlice:
			ts, err := sliceRef(m, r.str("season"), r.str("time_of_day"))
			if err != nil {
				return err
			}
			av.Slice = ts
		case model.LevelSeason:
			av.Season = r.str("season")
		}
		p.Avail = append(p.Avail, av)
		return nil
	})
}

func loadAgents(m *model.Model, t *table) error {
	return t.each(func(r *row) error {
		id := model.AgentID(r.str("id"))
		if _, dup := m.Agents[id]; dup {
			return fmt.Errorf("duplicate agent %s", id)
		}
		regions, err := parseRegionSet(m, r.str("regions"))
		if err != nil {
			return err
		}
		objective, err := parseObjective(r.str("objective"))
		if err != nil {
			return err
		}
		m.Agents[id] = &model.Agent{
			ID:        id,
			Regions:   regions,
			Objective: objective,
			Portions:  make(map[model.PortionKey]float64),
		}
		return nil
	})
}

func loadPortions(m *model.Model, t *table) error {
	return t.each(func(r *row) error {
		agent, ok := m.Agents[model.AgentID(r.str("agent"))]
		if !ok {
			return fmt.Errorf("unknown agent %s", r.str("agent"))
		}
		com, err := commodityRef(m, r.str("commodity"))
		if err != nil {
			return err
		}
		region, err := regionRef(m, r.str("region"))
		if err != nil {
			return err
		}
		key := model.PortionKey{Commodity: com.ID, Region: region}
		if _, dup := agent.Portions[key]; dup {
			return fmt.Errorf("duplicate portion for %s/%s/%s", agent.ID, com.ID, region)
		}
		agent.Portions[key] = r.float("portion")
		return nil
	})
}

func loadAssets(m *model.Model, dir string) (model.Portfolio, error) {
	t, err := readTable(filepath.Join(dir, fileAssets))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var portfolio model.Portfolio
	seen := make(map[model.AssetID]bool)
	err = t.each(func(r *row) error {
		id := model.AssetID(r.str("id"))
		if seen[id] {
			return fmt.Errorf("duplicate asset %s", id)
		}
		seen[id] = true
		p, err := processRef(m, r.str("process"))
		if err != nil {
			return err
		}
		region, err := regionRef(m, r.str("region"))
		if err != nil {
			return err
		}
		agent := model.AgentID(r.str("agent"))
		if _, ok := m.Agents[agent]; !ok {
			return fmt.Errorf("unknown agent %s", agent)
		}
		commissioned := r.int("commission_year")
		if !p.OperatesIn(region, commissioned) {
			return fmt.Errorf("process %s does not operate in %s in %d", p.ID, region, commissioned)
		}
		portfolio = append(portfolio, &model.Asset{
			ID:             id,
			Process:        p,
			Region:         region,
			Agent:          agent,
			Capacity:       r.float("capacity"),
			CommissionYear: commissioned,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return portfolio.Sorted(), nil
}

func commodityRef(m *model.Model, id string) (*model.Commodity, error) {
	com, ok := m.Commodities[model.CommodityID(id)]
	if !ok {
		return nil, fmt.Errorf("unknown commodity %s", id)
	}
	return com, nil
}

func processRef(m *model.Model, id string) (*model.Process, error) {
	p, ok := m.Processes[model.ProcessID(id)]
	if !ok {
		return nil, fmt.Errorf("unknown process %s", id)
	}
	return p, nil
}

func regionRef(m *model.Model, id string) (model.RegionID, error) {
	for _, r := range m.Regions {
		if r == model.RegionID(id) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %s", id)
}

func sliceRef(m *model.Model, season, timeOfDay string) (model.TimeSliceID, error) {
	ts := model.TimeSliceID{Season: season, TimeOfDay: timeOfDay}
	if _, ok := m.TimeSlices.Fractions[ts]; !ok {
		return ts, fmt.Errorf("unknown time slice %s", ts)
	}
	return ts, nil
}

// parseRegionSet parses a semicolon-separated region list. Empty or "all"
// means every region.
func parseRegionSet(m *model.Model, s string) (map[model.RegionID]bool, error) {
	if s == "" || s == "all" {
		return nil, nil
	}
	out := make(map[model.RegionID]bool)
	for _, part := range strings.Split(s, ";") {
		id, err := regionRef(m, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, nil
}

func parseKind(s string) (model.CommodityKind, error) {
	switch s {
	case "sed":
		return model.KindSED, nil
	case "svd":
		return model.KindSVD, nil
	case "inc":
		return model.KindInput, nil
	case "ouc":
		return model.KindOutput, nil
	}
	return 0, fmt.Errorf("unknown commodity kind %q", s)
}

func parseLevel(s string) (model.TimeSliceLevel, error) {
	switch s {
	case "timeslice", "":
		return model.LevelSlice, nil
	case "season":
		return model.LevelSeason, nil
	case "annual":
		return model.LevelAnnual, nil
	}
	return 0, fmt.Errorf("unknown time slice level %q", s)
}

func parseBalance(s string) (model.LevyBalance, error) {
	switch s {
	case "net", "":
		return model.LevyNet, nil
	case "consumption":
		return model.LevyConsumption, nil
	case "production":
		return model.LevyProduction, nil
	}
	return 0, fmt.Errorf("unknown levy balance %q", s)
}

func parseBound(s string) (model.BoundKind, error) {
	switch s {
	case "lower":
		return model.BoundLower, nil
	case "upper":
		return model.BoundUpper, nil
	case "fixed":
		return model.BoundFixed, nil
	}
	return 0, fmt.Errorf("unknown bound kind %q", s)
}

func parseObjective(s string) (model.Objective, error) {
	switch s {
	case "npv":
		return model.ObjectiveNPV, nil
	case "lcox":
		return model.ObjectiveLCOX, nil
	}
	return 0, fmt.Errorf("unknown objective %q", s)
}
