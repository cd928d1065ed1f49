// File: pkg/storage/gcp/metrics.go
package gcp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	monitoringpb "cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// total_bytes is reported roughly daily, so the window spans a few samples
const metricTimeWindow = 72 * time.Hour

const usageMetricFilter = `metric.type="storage.googleapis.com/storage/v2/total_bytes"`

// ErrMetricsNotFound means Cloud Monitoring has no total_bytes sample for the bucket yet
var ErrMetricsNotFound = errors.New("usage metrics not found in the monitoring window")

// bucketUsage returns stored bytes keyed by bucket name, for one bucket or for the whole
// project when bucketName is empty. One aggregated query covers every bucket.
func (g *GCPStorage) bucketUsage(ctx context.Context, bucketName string) (map[string]int64, error) {
	g.logger.Debug("Querying bucket usage", "project", g.projectID, "bucket", bucketName)

	client, err := monitoring.NewMetricClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitoring client: %w", err)
	}
	defer client.Close()

	usage := make(map[string]int64)
	it := client.ListTimeSeries(ctx, usageRequest(g.projectID, bucketName, time.Now()))
	for {
		series, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read usage time series: %w", err)
		}

		name, ok := series.GetResource().GetLabels()["bucket_name"]
		if !ok || len(series.GetPoints()) == 0 {
			continue
		}
		usage[name] = extractUsageValue(series.GetPoints()[0].GetValue())
	}

	if bucketName != "" {
		if _, ok := usage[bucketName]; !ok {
			return nil, ErrMetricsNotFound
		}
	}
	return usage, nil
}

// usageRequest builds the summed total_bytes query, grouped per bucket and optionally
// filtered to bucketName
func usageRequest(projectID, bucketName string, endTime time.Time) *monitoringpb.ListTimeSeriesRequest {
	filter := usageMetricFilter
	if bucketName != "" {
		filter += fmt.Sprintf(` AND resource.labels.bucket_name="%s"`, bucketName)
	}

	return &monitoringpb.ListTimeSeriesRequest{
		Name:   "projects/" + projectID,
		Filter: filter,
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(endTime.Add(-metricTimeWindow)),
			EndTime:   timestamppb.New(endTime),
		},
		Aggregation: &monitoringpb.Aggregation{
			AlignmentPeriod:    durationpb.New(metricTimeWindow),
			PerSeriesAligner:   monitoringpb.Aggregation_ALIGN_MEAN,
			CrossSeriesReducer: monitoringpb.Aggregation_REDUCE_SUM,
			GroupByFields:      []string{"resource.labels.bucket_name"},
		},
	}
}

// extractUsageValue accepts both point encodings; ALIGN_MEAN yields doubles
func extractUsageValue(v *monitoringpb.TypedValue) int64 {
	switch val := v.GetValue().(type) {
	case *monitoringpb.TypedValue_DoubleValue:
		return int64(math.Round(val.DoubleValue))
	case *monitoringpb.TypedValue_Int64Value:
		return val.Int64Value
	default:
		return 0
	}
}
