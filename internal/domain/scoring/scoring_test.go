package scoring_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/okian/patrolrank/internal/domain/model"
	scoring "github.com/okian/patrolrank/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func perfectMetrics() model.Metrics {
	return model.Metrics{
		BodyCamPercent:         100,
		PatrolFeedback:         5,
		ComplaintCount:         0,
		ArrestsMade:            30,
		UseOfForceIncidents:    0,
		TrainingScore:          1,
		AvgResponseTimePeakHrs: 2,
		GeoPatrolCoverageIndex: 1,
		PublicFeedbackScore:    5,
		OfficerAbsenteeismRate: 0,
	}
}

func worstMetrics() model.Metrics {
	return model.Metrics{
		BodyCamPercent:         0,
		PatrolFeedback:         0,
		ComplaintCount:         10,
		ArrestsMade:            0,
		UseOfForceIncidents:    5,
		TrainingScore:          0,
		AvgResponseTimePeakHrs: 30,
		GeoPatrolCoverageIndex: 0,
		PublicFeedbackScore:    0,
		OfficerAbsenteeismRate: 0.25,
	}
}

func TestNormalize(t *testing.T) {
	Convey("Given the normalizer", t, func() {
		Convey("When the domain is degenerate", func() {
			Convey("Then it returns 0 regardless of value", func() {
				So(scoring.Normalize(5, 3, 3), ShouldEqual, 0)
				So(scoring.Normalize(-1, 0, 0), ShouldEqual, 0)
			})
		})

		Convey("When the value lies inside the domain", func() {
			Convey("Then it is scaled linearly", func() {
				So(scoring.Normalize(50, 100, 0), ShouldEqual, 0.5)
				So(scoring.Normalize(16, 30, 2), ShouldEqual, 0.5)
				So(scoring.Normalize(0.05, 0.25, 0), ShouldAlmostEqual, 0.2, 1e-12)
			})
		})

		Convey("When the value lies outside the domain", func() {
			Convey("Then it is clamped", func() {
				So(scoring.Normalize(-4, 10, 0), ShouldEqual, 0)
				So(scoring.Normalize(1, 30, 2), ShouldEqual, 0)
				So(scoring.Normalize(250, 100, 0), ShouldEqual, 1)
			})
		})

		Convey("When sweeping values across and beyond the domain", func() {
			prev := -1.0
			monotonic := true
			inRange := true
			for v := -2.0; v <= 12.0; v += 0.25 {
				n := scoring.Normalize(v, 10, 0)
				if n < prev {
					monotonic = false
				}
				if n < 0 || n > 1 {
					inRange = false
				}
				prev = n
			}

			Convey("Then the result is monotonic and stays in [0,1]", func() {
				So(monotonic, ShouldBeTrue)
				So(inRange, ShouldBeTrue)
			})
		})
	})
}

func TestRoundScore(t *testing.T) {
	Convey("Given the score rounding", t, func() {
		Convey("Then halves round away from zero", func() {
			So(scoring.RoundScore(0.0125), ShouldEqual, 0.013)
			So(scoring.RoundScore(-0.0125), ShouldEqual, -0.013)
		})

		Convey("And other values round to the nearest thousandth", func() {
			So(scoring.RoundScore(0.12345), ShouldEqual, 0.123)
			So(scoring.RoundScore(0.9996), ShouldEqual, 1.0)
		})
	})
}

func TestCalculatorCompute(t *testing.T) {
	Convey("Given a calculator on the default policy", t, func() {
		calc := scoring.MustCalculator(scoring.DefaultPolicy())

		Convey("When scoring a perfect officer", func() {
			Convey("Then the score is 1", func() {
				So(calc.Compute(perfectMetrics()), ShouldEqual, 1.0)
			})
		})

		Convey("When scoring the worst possible officer", func() {
			Convey("Then the score is 0", func() {
				So(calc.Compute(worstMetrics()), ShouldEqual, 0.0)
			})
		})

		Convey("When scoring a typical officer", func() {
			m := model.Metrics{
				BodyCamPercent:         80,
				PatrolFeedback:         4,
				ComplaintCount:         2,
				ArrestsMade:            15,
				UseOfForceIncidents:    1,
				TrainingScore:          0.9,
				AvgResponseTimePeakHrs: 16,
				GeoPatrolCoverageIndex: 0.6,
				PublicFeedbackScore:    4,
				OfficerAbsenteeismRate: 0.05,
			}

			Convey("Then the weighted sum matches the hand computed value", func() {
				So(calc.Compute(m), ShouldEqual, 0.715)
			})

			Convey("And the breakdown inverts lower-is-better metrics", func() {
				b := calc.Breakdown(m)
				So(b[model.MetricComplaintCount], ShouldAlmostEqual, 0.8, 1e-12)
				So(b[model.MetricAvgResponseTimePeakHrs], ShouldAlmostEqual, 0.5, 1e-12)
				So(b[model.MetricBodyCamPercent], ShouldAlmostEqual, 0.8, 1e-12)
			})
		})

		Convey("When metrics fall outside their domains", func() {
			m := perfectMetrics()
			m.BodyCamPercent = 180
			m.ComplaintCount = -3
			m.AvgResponseTimePeakHrs = 0.5

			Convey("Then contributions are clamped and the score stays at 1", func() {
				So(calc.Compute(m), ShouldEqual, 1.0)
			})
		})

		Convey("When scoring random officers", func() {
			rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic fixture
			inRange, threeDecimals := true, true
			for i := 0; i < 500; i++ {
				m := model.Metrics{
					BodyCamPercent:         rng.Float64() * 120,
					PatrolFeedback:         rng.Float64() * 6,
					ComplaintCount:         rng.Intn(14),
					ArrestsMade:            rng.Intn(60),
					UseOfForceIncidents:    rng.Intn(7),
					TrainingScore:          rng.Float64(),
					AvgResponseTimePeakHrs: rng.Float64() * 40,
					GeoPatrolCoverageIndex: rng.Float64(),
					PublicFeedbackScore:    rng.Float64() * 5,
					OfficerAbsenteeismRate: rng.Float64() * 0.3,
				}
				s := calc.Compute(m)
				if s < 0 || s > 1 {
					inRange = false
				}
				if math.Abs(s*1000-math.Round(s*1000)) > 1e-6 {
					threeDecimals = false
				}
			}

			Convey("Then every score is in [0,1] with three decimals", func() {
				So(inRange, ShouldBeTrue)
				So(threeDecimals, ShouldBeTrue)
			})
		})
	})

	Convey("Given a single-metric policy", t, func() {
		calc := scoring.MustCalculator(scoring.Policy{
			model.MetricTrainingScore: {Weight: 1, Max: 1},
		})

		Convey("Then the score is the normalized metric alone", func() {
			So(calc.Compute(model.Metrics{TrainingScore: 0.42, ArrestsMade: 30}), ShouldEqual, 0.42)
		})

		Convey("And the calculator hands out a copy of its policy", func() {
			p := calc.Policy()
			p[model.MetricTrainingScore] = scoring.MetricRule{Weight: 0}
			So(calc.Policy()[model.MetricTrainingScore].Weight, ShouldEqual, 1)
		})
	})

	Convey("Given an invalid policy", t, func() {
		Convey("Then NewCalculator refuses it", func() {
			_, err := scoring.NewCalculator(scoring.Policy{})
			So(err, ShouldEqual, scoring.ErrEmptyPolicy)
			So(func() { scoring.MustCalculator(scoring.Policy{}) }, ShouldPanic)
		})
	})
}
