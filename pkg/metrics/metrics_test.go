package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// value reads the current value of a counter or gauge.
func value(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return -1
	}
	if c := out.GetCounter(); c != nil {
		return c.GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "dropout")
				So(manager.subsystem, ShouldEqual, "predictor")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("ns"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.predictions.WithLabelValues("term1", "Low").Inc()

			Convey("Then the metric names and labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "ns_sub_predictions_total" {
						found = true
						labels := f.GetMetric()[0].GetLabel()
						names := make([]string, 0, len(labels))
						for _, l := range labels {
							names = append(names, l.GetName())
						}
						So(strings.Join(names, ","), ShouldContainSubstring, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options carry empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "dropout")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording predictions", func() {
			before := value(globalManager.predictions.WithLabelValues("term2", "High"))
			RecordPrediction("term2", "High")
			RecordInferenceLatency("term2", 1.5)

			Convey("Then the counter increases", func() {
				So(value(globalManager.predictions.WithLabelValues("term2", "High")), ShouldEqual, before+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateModelsLoaded(2)
			UpdateQueueSize(5)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.5)

			Convey("Then the values are set", func() {
				So(value(globalManager.modelsLoaded), ShouldEqual, 2)
				So(value(globalManager.queueSize), ShouldEqual, 5)
				So(value(globalManager.queueUtilization), ShouldEqual, 0.5)
			})
		})

		Convey("When recording the remaining families", func() {
			So(func() {
				RecordInferenceError("term1", "unavailable")
				RecordCoercionFallback("faculty")
				RecordModelLoadAttempt("term3", "failure")
				RecordModelReload("term3", "success")
				RecordBatchRow("success")
				RecordBatchJobSubmitted()
				RecordBatchJobDuplicate()
				UpdateBatchJobsStored(1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordHTTPRequest("/api/v1/health", "GET", "200")
				RecordHTTPRequestDuration("/api/v1/health", "GET", "200", 0.2)
				RecordErrorByEndpoint("/api/v1/predict", "POST", "bad_request")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it exposes dropout metrics only", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(f.GetName(), ShouldStartWith, "dropout_predictor_")
				}
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		c := globalManager.batchRows.WithLabelValues("concurrent")
		before := value(c)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordBatchRow("concurrent")
			}()
		}
		wg.Wait()
		So(value(c), ShouldEqual, before+50)
	})
}
