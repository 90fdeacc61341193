// Package seed holds the sample projects loaded by the seed command.
package seed

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/store"
)

const (
	seriesYears     = 10
	seriesFirstYear = 2016
)

type sample struct {
	code, name, location, description string
	start                             string
	centre                            [2]float64
	ring                              []project.Position
	scores                            [4]float64
	landUse                           [4]float64
	documents                         []string
}

var samples = []sample{
	{
		code:        "project-001",
		name:        "Amazon Forest Conservation",
		location:    "Brazil",
		description: "Conservation project focused on preventing deforestation in the Amazon rainforest.",
		start:       "2022-01-15",
		centre:      [2]float64{-61.0, -4.0},
		ring:        []project.Position{{-62.0, -5.0}, {-62.0, -3.0}, {-60.0, -3.0}, {-60.0, -5.0}, {-62.0, -5.0}},
		scores:      [4]float64{75, 45, 38, 52},
		landUse:     [4]float64{68, 17, 9, 6},
		documents: []string{
			"Project design document: the project protects 10,000 hectares of primary Amazon rainforest in Brazil. The baseline assumes continued conversion to cattle pasture at regional rates.",
			"Risk analysis: leakage is the dominant risk. Logging pressure is shifting to unprotected land along the northern boundary, and the buffer zone is not yet enforced.",
		},
	},
	{
		code:        "project-002",
		name:        "Congo Basin Protection",
		location:    "Democratic Republic of Congo",
		description: "Project aimed at protecting the Congo Basin rainforest from illegal logging and land conversion.",
		start:       "2021-05-20",
		centre:      [2]float64{19.0, 0.0},
		ring:        []project.Position{{18.0, -1.0}, {18.0, 1.0}, {20.0, 1.0}, {20.0, -1.0}, {18.0, -1.0}},
		scores:      [4]float64{48, 66, 41, 35},
		landUse:     [4]float64{74, 11, 10, 5},
		documents: []string{
			"Project design document: 8,500 hectares of Congo Basin forest under community patrols. Illegal logging and shifting agriculture are the main deforestation drivers.",
			"Risk analysis: permanence risk is elevated because governance in the province is weak and the concession boundaries are contested.",
		},
	},
	{
		code:        "project-003",
		name:        "Borneo Peatland Restoration",
		location:    "Indonesia",
		description: "Restoration of degraded peatlands in Borneo to prevent carbon emissions and protect biodiversity.",
		start:       "2022-08-10",
		centre:      [2]float64{114.0, 1.0},
		ring:        []project.Position{{113.0, 0.0}, {113.0, 2.0}, {115.0, 2.0}, {115.0, 0.0}, {113.0, 0.0}},
		scores:      [4]float64{33, 58, 71, 29},
		landUse:     [4]float64{52, 21, 19, 8},
		documents: []string{
			"Project design document: rewetting of 5,200 hectares of drained peat in Borneo. Emission reductions depend on keeping the water table within 40 cm of the surface.",
			"Risk analysis: baseline overestimation is the main concern, since the reference fire frequency was taken from an unusually dry period.",
		},
	},
}

var riskFactors = [4]struct {
	category    string
	description string
}{
	{"Leakage", "Risk of deforestation activities shifting to areas outside the project boundaries."},
	{"Permanence", "Risk that carbon benefits may not be sustained over time due to natural disasters or human activities."},
	{"Baseline Overestimation", "Risk that the baseline scenario overestimates the rate of deforestation that would occur in the absence of the project."},
	{"Additionality", "Risk that the project activities would have occurred anyway without carbon finance."},
}

var landUseCategories = [4]string{"Forest", "Agriculture", "Degraded Land", "Other"}

var recommendations = []string{
	"Implement a buffer zone around the project area to mitigate leakage risks.",
	"Enhance community engagement through benefit-sharing mechanisms.",
	"Improve monitoring technology to track forest changes more accurately.",
	"Diversify project activities to address multiple drivers of deforestation.",
	"Establish a contingency fund for addressing unexpected threats to permanence.",
}

const (
	summaryText = "This project demonstrates moderate to high effectiveness in reducing deforestation in the target area. However, there are some concerns about leakage effects and the accuracy of the baseline scenario. The project has established reasonable monitoring protocols but could benefit from improved community engagement to ensure long-term sustainability."
	insightText = "The project area shows signs of recovery in previously degraded sections, particularly in the northern region. Satellite imagery confirms an increase in vegetation density over the past three years. Local species diversity appears to be stabilizing based on limited monitoring data."
)

// Bundles returns the sample project bundles.
func Bundles() []project.Bundle {
	bundles := make([]project.Bundle, 0, len(samples))
	for _, s := range samples {
		bundles = append(bundles, s.bundle())
	}
	return bundles
}

// Documents returns the sample passages for every project.
func Documents() []project.Document {
	var docs []project.Document
	for _, s := range samples {
		for i, text := range s.documents {
			typ := "pdd"
			if i > 0 {
				typ = "risk_analysis"
			}
			docs = append(docs, project.Document{
				ProjectCode: s.code,
				Text:        text,
				Source:      project.DocumentSource{Type: typ, Version: "1.0"},
			})
		}
	}
	return docs
}

func (s sample) bundle() project.Bundle {
	metrics := make([]project.RiskMetric, 0, len(riskFactors))
	for i, rf := range riskFactors {
		metrics = append(metrics, project.RiskMetric{
			Category:    rf.category,
			Score:       s.scores[i],
			Impact:      impactFor(s.scores[i]),
			Likelihood:  likelihoodFor(s.scores[i]),
			Description: rf.description,
		})
	}

	landUse := make([]project.LandUseSlice, 0, len(landUseCategories))
	for i, c := range landUseCategories {
		landUse = append(landUse, project.LandUseSlice{Category: c, Value: s.landUse[i]})
	}

	return project.Bundle{
		Project: project.Project{
			Code:        s.code,
			Name:        s.name,
			Description: s.description,
			Location:    s.location,
			Coordinates: s.centre,
			Status:      "Active",
			StartDate:   s.start,
		},
		Summary: project.Summary{
			Summary:            summaryText,
			Recommendations:    recommendations,
			AdditionalInsights: insightText,
		},
		RiskMetrics: metrics,
		TimeSeries:  append(decaying(project.MetricDeforestation, 1000, 0.97), decaying(project.MetricEmissions, 5000, 0.95)...),
		LandUse:     landUse,
		GeoShapes: []project.GeoShape{{
			Geometry:   project.NewPolygon(s.ring),
			Properties: map[string]any{"name": s.name, "id": s.code},
		}},
	}
}

// decaying builds a yearly series starting at start and multiplied by rate
// each year, rounded to whole units.
func decaying(metric project.MetricType, start, rate float64) []project.TimeSeriesPoint {
	points := make([]project.TimeSeriesPoint, 0, seriesYears)
	v := start
	for i := 0; i < seriesYears; i++ {
		points = append(points, project.TimeSeriesPoint{
			Timestamp:  time.Date(seriesFirstYear+i, 1, 1, 0, 0, 0, 0, time.UTC),
			MetricType: metric,
			Value:      math.Round(v),
		})
		v *= rate
	}
	return points
}

func impactFor(score float64) project.Impact {
	switch {
	case score >= 65:
		return project.ImpactHigh
	case score >= 40:
		return project.ImpactMedium
	default:
		return project.ImpactLow
	}
}

func likelihoodFor(score float64) project.Likelihood {
	switch {
	case score >= 60:
		return project.LikelihoodLikely
	case score >= 35:
		return project.LikelihoodPossible
	default:
		return project.LikelihoodUnlikely
	}
}

// Result counts what Load wrote.
type Result struct {
	Projects  int
	Skipped   int
	Documents int
}

// Load seeds every sample project that is not already present and, when docs
// is configured, the sample documents of the newly inserted projects.
func Load(ctx context.Context, s store.Seeder, docs docstore.Store) (Result, error) {
	var res Result
	inserted := map[string]bool{}
	for _, b := range Bundles() {
		ok, err := s.SeedBundle(ctx, b)
		if err != nil {
			return res, fmt.Errorf("seeding %s: %w", b.Project.Code, err)
		}
		if !ok {
			logging.Log.Infof("Project %s already present, skipping", b.Project.Code)
			res.Skipped++
			continue
		}
		inserted[b.Project.Code] = true
		res.Projects++
	}

	if docs == nil || docstore.IsNoop(docs) {
		return res, nil
	}
	var pending []project.Document
	for _, d := range Documents() {
		if inserted[d.ProjectCode] {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return res, nil
	}
	ids, err := docs.Add(ctx, pending)
	if err != nil {
		return res, fmt.Errorf("seeding documents: %w", err)
	}
	res.Documents = len(ids)
	return res, nil
}
