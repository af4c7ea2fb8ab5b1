package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsAPI is the subset of the CloudWatch client used by the sink.
type MetricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
	PutDashboard(ctx context.Context, params *cloudwatch.PutDashboardInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutDashboardOutput, error)
}

// CloudWatch publishes LogMetric values as custom metrics.
type CloudWatch struct {
	client    MetricsAPI
	namespace string
	region    string
	timeout   time.Duration
	log       *Log
}

// EnableCloudWatch loads the default AWS configuration and attaches a
// CloudWatch sink to l. An empty region falls back to AWS_REGION.
func (l *Log) EnableCloudWatch(ctx context.Context, region, namespace string) error {
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	l.AttachMetrics(cloudwatch.NewFromConfig(cfg), namespace)
	l.metrics.region = cfg.Region
	l.WithComponent("cloudwatch").WithFields(Fields{"region": region, "namespace": l.metrics.namespace}).Info("initialized CloudWatch client")
	return nil
}

// AttachMetrics installs client as the metric sink.
func (l *Log) AttachMetrics(client MetricsAPI, namespace string) {
	if namespace == "" {
		namespace = "TradeScanner"
	}
	l.metrics = &CloudWatch{client: client, namespace: namespace, timeout: 5 * time.Second, log: l}
}

func (c *CloudWatch) put(component, metric string, value float64, fields Fields) {
	dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(component)}}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			dims = append(dims, cwtypes.Dimension{Name: aws.String(k), Value: aws.String(s)})
		}
	}

	unit := cwtypes.StandardUnitCount
	if strings.HasSuffix(metric, "_ms") {
		unit = cwtypes.StandardUnitMilliseconds
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if _, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(c.namespace),
		MetricData: []cwtypes.MetricDatum{{
			MetricName: aws.String(metric),
			Dimensions: dims,
			Unit:       unit,
			Value:      aws.Float64(value),
		}},
	}); err != nil {
		c.log.Logger.WithError(err).WithField("metric", metric).Warn("failed to publish CloudWatch metric")
	}
}

// dashboardMetrics are charted one widget each, split by exchange.
var dashboardMetrics = []struct{ name, stat string }{
	{"pairs_found", "Average"},
	{"scan_duration_ms", "Average"},
	{"request_failures", "Sum"},
}

// dashboardBody selects metrics with SEARCH because every datum carries the
// component and exchange dimensions.
func (c *CloudWatch) dashboardBody() (string, error) {
	widgets := make([]map[string]interface{}, 0, len(dashboardMetrics))
	for i, m := range dashboardMetrics {
		expr := fmt.Sprintf(`SEARCH('{%s,component,exchange} MetricName="%s"', '%s', 300)`, c.namespace, m.name, m.stat)
		props := map[string]interface{}{
			"metrics": [][]map[string]string{{{"expression": expr, "id": fmt.Sprintf("e%d", i+1)}}},
			"view":    "timeSeries",
			"period":  300,
			"title":   m.name,
		}
		if c.region != "" {
			props["region"] = c.region
		}
		widgets = append(widgets, map[string]interface{}{
			"type":       "metric",
			"x":          0,
			"y":          i * 6,
			"width":      24,
			"height":     6,
			"properties": props,
		})
	}
	body, err := json.Marshal(map[string]interface{}{"widgets": widgets})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// EnsureDashboard creates or replaces a dashboard charting scan metrics.
func (l *Log) EnsureDashboard(ctx context.Context, name string) error {
	if l.metrics == nil {
		return nil
	}
	body, err := l.metrics.dashboardBody()
	if err != nil {
		return fmt.Errorf("failed to render CloudWatch dashboard: %w", err)
	}

	if _, err := l.metrics.client.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(name),
		DashboardBody: aws.String(body),
	}); err != nil {
		return fmt.Errorf("failed to create CloudWatch dashboard: %w", err)
	}
	return nil
}
