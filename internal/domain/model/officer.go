// Package model contains domain models passed between layers.
package model

// Metric names as used by scoring policies, configuration files and the
// rank history snapshot.
const (
	MetricBodyCamPercent         = "body_cam_percent"
	MetricPatrolFeedback         = "patrol_feedback"
	MetricComplaintCount         = "complaint_count"
	MetricArrestsMade            = "arrests_made"
	MetricUseOfForceIncidents    = "use_of_force_incidents"
	MetricTrainingScore          = "training_score"
	MetricAvgResponseTimePeakHrs = "avg_response_time_peak_hrs"
	MetricGeoPatrolCoverageIndex = "geo_patrol_coverage_index"
	MetricPublicFeedbackScore    = "public_feedback_score"
	MetricOfficerAbsenteeismRate = "officer_absenteeism_rate"
)

// MetricNames lists every metric in a stable order.
var MetricNames = []string{
	MetricBodyCamPercent,
	MetricPatrolFeedback,
	MetricComplaintCount,
	MetricArrestsMade,
	MetricUseOfForceIncidents,
	MetricTrainingScore,
	MetricAvgResponseTimePeakHrs,
	MetricGeoPatrolCoverageIndex,
	MetricPublicFeedbackScore,
	MetricOfficerAbsenteeismRate,
}

// Metrics is the fixed set of behavioural attributes scored for an officer.
type Metrics struct {
	BodyCamPercent         float64 `json:"body_cam_percent" db:"body_cam_percent"`
	PatrolFeedback         float64 `json:"patrol_feedback" db:"patrol_feedback"`
	ComplaintCount         int     `json:"complaint_count" db:"complaint_count"`
	ArrestsMade            int     `json:"arrests_made" db:"arrests_made"`
	UseOfForceIncidents    int     `json:"use_of_force_incidents" db:"use_of_force_incidents"`
	TrainingScore          float64 `json:"training_score" db:"training_score"`
	AvgResponseTimePeakHrs float64 `json:"avg_response_time_peak_hrs" db:"avg_response_time_peak_hrs"`
	GeoPatrolCoverageIndex float64 `json:"geo_patrol_coverage_index" db:"geo_patrol_coverage_index"`
	PublicFeedbackScore    float64 `json:"public_feedback_score" db:"public_feedback_score"`
	OfficerAbsenteeismRate float64 `json:"officer_absenteeism_rate" db:"officer_absenteeism_rate"`
}

// Value returns the named metric. ok is false for unknown names.
func (m Metrics) Value(name string) (v float64, ok bool) {
	switch name {
	case MetricBodyCamPercent:
		return m.BodyCamPercent, true
	case MetricPatrolFeedback:
		return m.PatrolFeedback, true
	case MetricComplaintCount:
		return float64(m.ComplaintCount), true
	case MetricArrestsMade:
		return float64(m.ArrestsMade), true
	case MetricUseOfForceIncidents:
		return float64(m.UseOfForceIncidents), true
	case MetricTrainingScore:
		return m.TrainingScore, true
	case MetricAvgResponseTimePeakHrs:
		return m.AvgResponseTimePeakHrs, true
	case MetricGeoPatrolCoverageIndex:
		return m.GeoPatrolCoverageIndex, true
	case MetricPublicFeedbackScore:
		return m.PublicFeedbackScore, true
	case MetricOfficerAbsenteeismRate:
		return m.OfficerAbsenteeismRate, true
	}
	return 0, false
}

// IsMetric reports whether name is one of the scored metrics.
func IsMetric(name string) bool {
	_, ok := Metrics{}.Value(name)
	return ok
}

// Officer is the monitored entity: identity plus its current metrics.
// The core treats it as an immutable snapshot read from the store.
type Officer struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	BadgeNumber string `json:"badge_number" db:"badge_number"`
	Grade       string `json:"grade" db:"grade"`
	Metrics
}
