package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hatlonely/dbx/log"
	"github.com/hatlonely/dbx/log/logger"
)

type ObservableDriverOptions struct {
	// EnableMetrics 是否启用指标收集
	EnableMetrics bool `cfg:"enableMetrics" def:"true"`

	// EnableLogging 是否启用日志记录
	EnableLogging bool `cfg:"enableLogging" def:"true"`

	// EnableTracing 是否启用分布式追踪
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 组件名称标识，用于所有观测维度
	Name string `cfg:"name" def:"driver"`
}

// ObservableMetrics 封装 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
}

// NewObservableMetrics 创建指标收集器
func NewObservableMetrics(name string) *ObservableMetrics {
	metrics := &ObservableMetrics{
		operationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of driver operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of driver operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		activeOperations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of active driver operations",
			},
			[]string{"operation"},
		),
	}

	// 注册到默认 prometheus registry
	prometheus.MustRegister(
		metrics.operationCounter,
		metrics.operationDuration,
		metrics.activeOperations,
	)

	return metrics
}

// ObservableDriver 装饰器，为任何 Driver 添加观测能力
type ObservableDriver struct {
	driver Driver

	logger        logger.Logger
	metrics       *ObservableMetrics
	tracer        trace.Tracer
	name          string
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableDriverWithOptions(d Driver, options *ObservableDriverOptions) (*ObservableDriver, error) {
	if d == nil {
		return nil, errors.New("driver is nil")
	}
	if options == nil {
		options = &ObservableDriverOptions{EnableMetrics: true, EnableLogging: true}
	}
	if options.Name == "" {
		options.Name = "driver"
	}

	obs := &ObservableDriver{
		driver:        d,
		name:          options.Name,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}

	if options.EnableLogging {
		obs.logger = log.Default().WithGroup("observableDriver")
	}

	if options.EnableMetrics {
		obs.metrics = NewObservableMetrics(options.Name)
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("driver.%s", options.Name))
	}

	return obs, nil
}

// observeOperation 统一的操作观测逻辑
func (obs *ObservableDriver) observeOperation(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("driver.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
			),
		)
		defer span.End()
	}

	if obs.enableMetrics && obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if obs.enableTracing && span != nil {
		span.SetAttributes(
			attribute.Int64("duration_ms", duration.Milliseconds()),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.enableLogging && obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "driver operation failed",
				"component", obs.name,
				"operation", operation,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.InfoContext(ctx, "driver operation completed",
				"component", obs.name,
				"operation", operation,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

func (obs *ObservableDriver) Connect(ctx context.Context) error {
	return obs.observeOperation(ctx, "connect", func(ctx context.Context) error {
		return obs.driver.Connect(ctx)
	})
}

func (obs *ObservableDriver) Disconnect() error {
	return obs.observeOperation(context.Background(), "disconnect", func(ctx context.Context) error {
		return obs.driver.Disconnect()
	})
}

func (obs *ObservableDriver) Query(ctx context.Context, sql string) ([]Row, error) {
	var rows []Row
	err := obs.observeOperation(ctx, "query", func(ctx context.Context) error {
		var err error
		rows, err = obs.driver.Query(ctx, sql)
		return err
	})
	return rows, err
}

func (obs *ObservableDriver) GetTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := obs.observeOperation(ctx, "getTables", func(ctx context.Context) error {
		var err error
		tables, err = obs.driver.GetTables(ctx)
		return err
	})
	return tables, err
}

func (obs *ObservableDriver) GetTableSchema(ctx context.Context, table string) ([]Column, error) {
	var columns []Column
	err := obs.observeOperation(ctx, "getTableSchema", func(ctx context.Context) error {
		var err error
		columns, err = obs.driver.GetTableSchema(ctx, table)
		return err
	})
	return columns, err
}

func (obs *ObservableDriver) GetTableData(ctx context.Context, table string, options *TableQueryOptions) (*TableQueryResult, error) {
	var result *TableQueryResult
	err := obs.observeOperation(ctx, "getTableData", func(ctx context.Context) error {
		var err error
		result, err = obs.driver.GetTableData(ctx, table, options)
		return err
	})
	return result, err
}

func (obs *ObservableDriver) DeleteRows(ctx context.Context, table string, ids []any) error {
	return obs.observeOperation(ctx, "deleteRows", func(ctx context.Context) error {
		return obs.driver.DeleteRows(ctx, table, ids)
	})
}

func (obs *ObservableDriver) InsertRow(ctx context.Context, table string, row Row) error {
	return obs.observeOperation(ctx, "insertRow", func(ctx context.Context) error {
		return obs.driver.InsertRow(ctx, table, row)
	})
}

func (obs *ObservableDriver) UpdateRows(ctx context.Context, table string, rows []Row) error {
	return obs.observeOperation(ctx, "updateRows", func(ctx context.Context) error {
		return obs.driver.UpdateRows(ctx, table, rows)
	})
}
