package features

import (
	"math"

	"evintel/internal/config"
	"evintel/pkg/contracts/domain"
)

// Coordinate is a state's representative point, used only for region
// classification.
type Coordinate struct {
	Lat float64
	Lon float64
}

// stateCoordinates maps every state and union territory appearing in the
// sales data to its representative coordinate (approximate centroid).
var stateCoordinates = map[string]Coordinate{
	"Andaman and Nicobar Islands": {11.74, 92.66},
	"Andhra Pradesh":              {15.91, 79.74},
	"Arunachal Pradesh":           {28.22, 94.73},
	"Assam":                       {26.20, 92.94},
	"Bihar":                       {25.10, 85.31},
	"Chandigarh":                  {30.73, 76.78},
	"Chhattisgarh":                {21.28, 81.87},
	"DNH and DD":                  {20.18, 73.02},
	"Delhi":                       {28.70, 77.10},
	"Goa":                         {15.30, 74.12},
	"Gujarat":                     {22.26, 71.19},
	"Haryana":                     {29.06, 76.09},
	"Himachal Pradesh":            {31.10, 77.17},
	"Jammu and Kashmir":           {33.78, 76.58},
	"Jharkhand":                   {23.61, 85.28},
	"Karnataka":                   {15.32, 75.71},
	"Kerala":                      {10.85, 76.27},
	"Ladakh":                      {34.23, 77.56},
	"Lakshadweep":                 {10.57, 72.64},
	"Madhya Pradesh":              {22.97, 78.66},
	"Maharashtra":                 {19.75, 75.71},
	"Manipur":                     {24.66, 93.91},
	"Meghalaya":                   {25.47, 91.37},
	"Mizoram":                     {23.16, 92.94},
	"Nagaland":                    {26.16, 94.56},
	"Odisha":                      {20.95, 84.80},
	"Puducherry":                  {11.94, 79.81},
	"Punjab":                      {31.15, 75.34},
	"Rajasthan":                   {27.02, 74.22},
	"Sikkim":                      {27.53, 88.51},
	"Tamil Nadu":                  {11.13, 78.66},
	"Telangana":                   {18.11, 79.02},
	"Tripura":                     {23.94, 91.99},
	"Uttar Pradesh":               {26.85, 80.95},
	"Uttarakhand":                 {30.07, 79.02},
	"West Bengal":                 {22.99, 87.85},
}

// ClassifyRegion assigns a region from a coordinate using a fixed
// latitude/longitude quadrant rule. The rule is purely geometric, so a
// handful of states land in their geographic rather than administrative
// zone; it is deterministic and total over the coordinate plane.
func ClassifyRegion(c Coordinate) domain.Region {
	switch {
	case c.Lon >= 88 && c.Lat >= 22:
		return domain.RegionNortheast
	case c.Lat >= 28 && c.Lon >= 76:
		return domain.RegionNorth
	case c.Lat >= 24 && c.Lon < 76:
		return domain.RegionNorthwest
	case c.Lat < 19:
		return domain.RegionSouth
	case c.Lon < 77:
		return domain.RegionWest
	case c.Lon >= 84:
		return domain.RegionEast
	default:
		return domain.RegionCentral
	}
}

// RegionForState resolves a state name to its region, Unclassified when
// the state has no known coordinate.
func RegionForState(state string) domain.Region {
	coord, ok := stateCoordinates[state]
	if !ok {
		return domain.RegionUnclassified
	}
	return ClassifyRegion(coord)
}

// BuildRegionalFeatures assigns regions and computes every regional
// aggregate: average penetration, state-to-region ratio, regional dense
// rank, the weighted maturity score and adoption velocity. Region
// assignment is resolved once per distinct state and cached for the run.
func BuildRegionalFeatures(table []domain.EnrichedRecord, g *Grouping, weights config.MaturityWeights) {
	regionCache := make(map[string]domain.Region)
	for i := range table {
		region, ok := regionCache[table[i].State]
		if !ok {
			region = RegionForState(table[i].State)
			regionCache[table[i].State] = region
		}
		table[i].Region = region
	}
	g.AttachRegions(table)

	buildRegionalAverages(table, g)
	buildRegionalRanks(table, g)
	buildAdoptionVelocity(table, g)
	buildMaturityScores(table, g, weights)
}

// buildRegionalAverages computes the mean penetration per (region, date).
// Missing penetrations are excluded from both numerator and denominator,
// so a zero-total row never drags a regional average toward zero.
func buildRegionalAverages(table []domain.EnrichedRecord, g *Grouping) {
	for _, indices := range g.RegionDates {
		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = table[idx].EVPenetration
		}
		avg := Mean(values)

		for _, idx := range indices {
			table[idx].RegionalAvgPenetration = avg

			pen := table[idx].EVPenetration
			if math.IsNaN(pen) || math.IsNaN(avg) || avg == 0 {
				table[idx].StateToRegionRatio = math.NaN()
				continue
			}
			table[idx].StateToRegionRatio = pen / avg
		}
	}
}

// buildRegionalRanks dense-ranks penetration within each (region, date),
// with the same tie policy as the national state rank.
func buildRegionalRanks(table []domain.EnrichedRecord, g *Grouping) {
	for _, indices := range g.RegionDates {
		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = table[idx].EVPenetration
		}
		ranks := DenseRankDesc(values)
		for i, idx := range indices {
			table[idx].RegionalRank = ranks[i]
		}
	}
}

// buildAdoptionVelocity computes the first difference of penetration per
// elapsed month within each partition. The first observation and any pair
// with a missing penetration are undefined; forward fill happens in the
// quality pass, capping too.
func buildAdoptionVelocity(table []domain.EnrichedRecord, g *Grouping) {
	for _, indices := range g.Partitions {
		for pos := range indices {
			if pos == 0 {
				continue // stays NaN
			}
			cur := table[indices[pos]].EVPenetration
			prev := table[indices[pos-1]].EVPenetration
			months := monthsBetween(table[indices[pos-1]].Date, table[indices[pos]].Date)
			if math.IsNaN(cur) || math.IsNaN(prev) || months <= 0 {
				continue
			}
			table[indices[pos]].AdoptionVelocity = (cur - prev) / float64(months)
		}
	}
}

// buildMaturityScores combines normalised penetration, growth consistency
// and market age into a 0-100 weighted index. Consistency and age are
// partition-level; the penetration level is per row. A missing component
// contributes zero rather than making the score undefined.
func buildMaturityScores(table []domain.EnrichedRecord, g *Grouping, weights config.MaturityWeights) {
	maxPen := 0.0
	for i := range table {
		if !math.IsNaN(table[i].EVPenetration) && table[i].EVPenetration > maxPen {
			maxPen = table[i].EVPenetration
		}
	}
	totalMonths := g.TotalMonths()

	for _, indices := range g.Partitions {
		// Growth consistency: share of defined growth observations in the
		// partition that are positive.
		positive, defined := 0, 0
		for _, idx := range indices {
			growth := table[idx].EVGrowthRate
			if math.IsNaN(growth) {
				continue
			}
			defined++
			if growth > 0 {
				positive++
			}
		}
		consistency := 0.0
		if defined > 0 {
			consistency = float64(positive) / float64(defined) * 100
		}

		firstDate := table[indices[0]].Date
		for _, idx := range indices {
			penLevel := 0.0
			if pen := table[idx].EVPenetration; !math.IsNaN(pen) && maxPen > 0 {
				penLevel = pen / maxPen * 100
			}

			age := 0.0
			if totalMonths > 0 {
				age = float64(monthsBetween(firstDate, table[idx].Date)) / float64(totalMonths) * 100
			}

			score := weights.Penetration*penLevel + weights.Consistency*consistency + weights.MarketAge*age
			if score < 0 {
				score = 0
			} else if score > 100 {
				score = 100
			}
			table[idx].MarketMaturityScore = score
		}
	}
}
