package project

import "time"

// Project is a carbon-offset project as stored in the relational store.
type Project struct {
	ID          int64      `json:"-"`
	Code        string     `json:"projectCode"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Coordinates [2]float64 `json:"coordinates"` // [lng, lat]
	Status      string     `json:"status"`
	StartDate   string     `json:"startDate"`
	EndDate     string     `json:"endDate"`
}

// Summary holds the analyst summary for a project.
type Summary struct {
	Summary            string   `json:"summary"`
	Recommendations    []string `json:"recommendations"`
	AdditionalInsights string   `json:"additionalInsights"`
	LastUpdated        string   `json:"lastUpdated"`
}

// Impact is the categorical impact of a risk.
type Impact string

const (
	ImpactLow    Impact = "Low"
	ImpactMedium Impact = "Medium"
	ImpactHigh   Impact = "High"
)

// Likelihood is the categorical likelihood of a risk.
type Likelihood string

const (
	LikelihoodUnlikely Likelihood = "Unlikely"
	LikelihoodPossible Likelihood = "Possible"
	LikelihoodLikely   Likelihood = "Likely"
)

// RiskMetric is one scored risk. Score is expected in [0, 100] but is passed
// through exactly as the store returns it.
type RiskMetric struct {
	Category    string     `json:"category"`
	Score       float64    `json:"score"`
	Impact      Impact     `json:"impact"`
	Likelihood  Likelihood `json:"likelihood"`
	Description string     `json:"description"`
}

// MetricType distinguishes the two time series kept per project.
type MetricType string

const (
	MetricDeforestation MetricType = "deforestation"
	MetricEmissions     MetricType = "emissions"
)

// TimeSeriesPoint is a single observation; series are ordered by timestamp.
type TimeSeriesPoint struct {
	Timestamp  time.Time  `json:"timestamp"`
	MetricType MetricType `json:"metricType"`
	Value      float64    `json:"value"`
}

// LandUseSlice is one pie-chart segment. Values need not sum to any total.
type LandUseSlice struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// Bundle is the full set of relational records for one project.
type Bundle struct {
	Project     Project
	Summary     Summary
	RiskMetrics []RiskMetric
	TimeSeries  []TimeSeriesPoint
	LandUse     []LandUseSlice
	GeoShapes   []GeoShape
}

// DocumentSource describes where a retrieved passage came from.
type DocumentSource struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

// RetrievedDocument is a passage returned by the document store for a query.
// Rank is 1-based in store order.
type RetrievedDocument struct {
	ID          string         `json:"id"`
	ProjectCode string         `json:"projectCode"`
	Text        string         `json:"text"`
	Rank        int            `json:"rank"`
	Source      DocumentSource `json:"source"`
}

// Document is a passage submitted for ingestion.
type Document struct {
	ProjectCode string
	Text        string
	Source      DocumentSource
}

// Degraded reports which optional subsystems fell back while composing.
type Degraded struct {
	Retrieval  bool `json:"retrieval"`
	Generation bool `json:"generation"`
}

// Details is the payload of GET /api/projects/{code}.
type Details struct {
	Project        Project           `json:"project"`
	Summary        Summary           `json:"summary"`
	RiskMetrics    []RiskMetric      `json:"riskMetrics"`
	TimeSeriesData []TimeSeriesPoint `json:"timeSeriesData"`
	PieChartData   []LandUseSlice    `json:"pieChartData"`
	GeospatialData []GeoShape        `json:"geospatialData"`
}

// AnalysisResponse is the composed result of an analysis request. Every
// field is always populated; lists are never nil.
type AnalysisResponse struct {
	Details
	DeforestationData []TimeSeriesPoint   `json:"deforestationData"`
	EmissionsData     []TimeSeriesPoint   `json:"emissionsData"`
	Analysis          string              `json:"analysis"`
	AnalysisHTML      string              `json:"analysisHtml"`
	Context           []string            `json:"context"`
	Documents         []RetrievedDocument `json:"documents"`
	Degraded          Degraded            `json:"degraded"`
}

// NewDetails converts a bundle into its wire form with non-nil lists.
func NewDetails(b *Bundle) Details {
	d := Details{
		Project:        b.Project,
		Summary:        b.Summary,
		RiskMetrics:    b.RiskMetrics,
		TimeSeriesData: b.TimeSeries,
		PieChartData:   b.LandUse,
		GeospatialData: b.GeoShapes,
	}
	if d.Summary.Recommendations == nil {
		d.Summary.Recommendations = []string{}
	}
	if d.RiskMetrics == nil {
		d.RiskMetrics = []RiskMetric{}
	}
	if d.TimeSeriesData == nil {
		d.TimeSeriesData = []TimeSeriesPoint{}
	}
	if d.PieChartData == nil {
		d.PieChartData = []LandUseSlice{}
	}
	if d.GeospatialData == nil {
		d.GeospatialData = []GeoShape{}
	}
	return d
}

// SplitSeries partitions points by metric type, preserving order.
func SplitSeries(points []TimeSeriesPoint) (deforestation, emissions []TimeSeriesPoint) {
	deforestation = []TimeSeriesPoint{}
	emissions = []TimeSeriesPoint{}
	for _, p := range points {
		switch p.MetricType {
		case MetricDeforestation:
			deforestation = append(deforestation, p)
		case MetricEmissions:
			emissions = append(emissions, p)
		}
	}
	return deforestation, emissions
}
